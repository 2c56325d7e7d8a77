package devserver

import (
	"net/http"

	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/validate"
)

func (s *Server) llmParam(c Context) (*llmRecord, error) {
	id, ok := c.ParamID("id")
	if !ok {
		return nil, c.BadRequest("invalid id")
	}
	rec, ok := s.st.llms[id]
	if !ok {
		return nil, c.NotFound("LLM integration not found")
	}
	return rec, nil
}

// rejectOllamaKey mirrors the service: local providers never take a key.
func rejectOllamaKey(c Context, in llm.Input) (bool, error) {
	if in.Provider == llm.ProviderOllama && in.APIKey != "" {
		return true, c.JSON(http.StatusBadRequest, map[string][]string{"api_key": {"Ollama does not accept an API key."}})
	}
	return false, nil
}

func (s *Server) listLLMs(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []llm.Integration{}
	for _, rec := range sorted(s.st.llms, nil) {
		out = append(out, rec.Integration)
	}
	return c.OK(out)
}

func (s *Server) createLLM(c Context) error {
	var in llm.Input
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}
	if rejected, err := rejectOllamaKey(c, in); rejected {
		return err
	}
	if err := validate.LLMCreate(in); err != nil {
		return c.Invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.st.createLLM(in)
	return c.Created(rec.Integration)
}

func (s *Server) updateLLM(c Context) error {
	var in llm.Input
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}
	if err := validate.LLMUpdate(in); err != nil {
		return c.Invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.llmParam(c)
	if rec == nil {
		return err
	}
	provider := rec.Provider
	if in.Provider != "" {
		provider = in.Provider
	}
	if rejected, err := rejectOllamaKey(c, llm.Input{Provider: provider, APIKey: in.APIKey}); rejected {
		return err
	}

	if in.Name != "" {
		rec.Name = in.Name
	}
	rec.Provider = provider
	if in.Model != "" {
		rec.Model = in.Model
	}
	if in.BaseURL != "" {
		rec.BaseURL = in.BaseURL
	}
	switch {
	case provider == llm.ProviderOllama:
		rec.apiKey = ""
	case in.APIKey != "":
		rec.apiKey = in.APIKey
	}
	rec.APIKeyPresent = rec.apiKey != ""
	return c.OK(rec.Integration)
}

func (s *Server) deleteLLM(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.llmParam(c)
	if rec == nil {
		return err
	}
	delete(s.st.llms, rec.ID)
	return c.NoContent()
}
