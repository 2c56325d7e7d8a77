package console

import (
	"context"
)

// Msg is an event applied to the console state. Results of network calls,
// timer ticks and user intents are all messages.
type Msg any

// Cmd performs work off the update loop and reports its outcome as a Msg.
// A nil result is ignored.
type Cmd func() Msg

// Updater applies one message and returns follow-up commands.
type Updater interface {
	Update(msg Msg) []Cmd
}

// Run drives u outside Bubble Tea. Commands execute on their own goroutines
// and their messages are applied one at a time on the calling goroutine.
// Run returns when done reports true after a message is applied, or when
// ctx ends.
func Run(ctx context.Context, u Updater, initial []Cmd, done func() bool) error {
	msgs := make(chan Msg)

	start := func(cmds []Cmd) {
		for _, cmd := range cmds {
			if cmd == nil {
				continue
			}
			go func() {
				msg := cmd()
				if msg == nil {
					return
				}
				select {
				case msgs <- msg:
				case <-ctx.Done():
				}
			}()
		}
	}

	if done() {
		return nil
	}
	start(initial)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			start(u.Update(msg))
			if done() {
				return nil
			}
		}
	}
}
