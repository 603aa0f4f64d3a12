package safe

import (
	"ChatBuddy/logger"
)

// Go starts a goroutine that recovers from panics so a single misbehaving
// connection worker cannot take the whole gateway down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
