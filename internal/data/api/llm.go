package api

import (
	"context"
	"fmt"

	"github.com/colonyops/sage/internal/core/llm"
)

// LLMClient is the LLM integration endpoint group. LLM integrations are
// global to the account, not scoped to a workspace.
type LLMClient struct {
	c *Client
}

// LLM returns the LLM integration endpoints.
func (c *Client) LLM() LLMClient {
	return LLMClient{c: c}
}

func (l LLMClient) List(ctx context.Context) ([]llm.Integration, error) {
	var out []llm.Integration
	err := l.c.get(ctx, "/llm/integrations/list/", nil, listOf(&out, llmWire.domain))
	return out, err
}

func (l LLMClient) Create(ctx context.Context, in llm.Input) (llm.Integration, error) {
	var out llm.Integration
	err := l.c.post(ctx, "/llm/integrations/create/", in.Sanitize(), objectOf(&out, llmWire.domain))
	return out, err
}

func (l LLMClient) Update(ctx context.Context, id int64, in llm.Input) (llm.Integration, error) {
	var out llm.Integration
	err := l.c.patch(ctx, fmt.Sprintf("/llm/integrations/%d/update/", id), in.Sanitize(), objectOf(&out, llmWire.domain))
	if err == nil && out.ID == 0 {
		out.ID = id
	}
	return out, err
}

func (l LLMClient) Delete(ctx context.Context, id int64) error {
	return l.c.delete(ctx, fmt.Sprintf("/llm/integrations/%d/delete/", id))
}
