package logging

import (
	"github.com/rs/zerolog"
)

// ContextHook copies the review ids carried by an event's context onto the
// event. Zero ids are left out.
type ContextHook struct{}

func (ContextHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	for _, key := range reviewKeys {
		if id := int64Value(ctx, key); id != 0 {
			e.Int64(string(key), id)
		}
	}
}
