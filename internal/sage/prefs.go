package sage

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/colonyops/sage/internal/core/kv"
)

const (
	prefsNamespace   = "console"
	keyLastWorkspace = "last_workspace"
	keyLastLLM       = "last_llm"
)

// Prefs remembers console choices between runs.
type Prefs struct {
	ids *kv.TypedKV[int64]
}

// NewPrefs returns preferences stored under the "console" namespace.
func NewPrefs(store kv.KV) *Prefs {
	return &Prefs{ids: kv.Scoped[int64](store, prefsNamespace)}
}

func (p *Prefs) get(ctx context.Context, key string) int64 {
	v, err := p.ids.GetOr(ctx, key, 0)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("read preference")
		return 0
	}
	return v
}

// LastWorkspace returns the workspace selected when the console last
// exited, or zero.
func (p *Prefs) LastWorkspace(ctx context.Context) int64 { return p.get(ctx, keyLastWorkspace) }

// LastLLM returns the LLM integration last chosen, or zero.
func (p *Prefs) LastLLM(ctx context.Context) int64 { return p.get(ctx, keyLastLLM) }

// Remember stores the console selection. Zero ids are removed.
func (p *Prefs) Remember(ctx context.Context, workspaceID, llmID int64) error {
	for key, id := range map[string]int64{keyLastWorkspace: workspaceID, keyLastLLM: llmID} {
		var err error
		if id == 0 {
			err = p.ids.Delete(ctx, key)
		} else {
			err = p.ids.Set(ctx, key, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear forgets every preference, including ones this version no longer
// reads.
func (p *Prefs) Clear(ctx context.Context) error {
	return p.ids.Clear(ctx)
}
