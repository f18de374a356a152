package worker

import (
	"sync/atomic"
	"time"
)

// Generation is a monotonic token. Deferred actions capture the value at
// schedule time and only run if no newer action has bumped it since.
type Generation struct {
	value atomic.Uint64
}

// Next advances the token and returns the new value.
func (g *Generation) Next() uint64 {
	return g.value.Add(1)
}

// Current returns the latest token.
func (g *Generation) Current() uint64 {
	return g.value.Load()
}

// Valid reports whether token is still the latest.
func (g *Generation) Valid(token uint64) bool {
	return g.value.Load() == token
}

// AfterFunc runs fn after d unless the generation has moved past token.
func (g *Generation) AfterFunc(d time.Duration, token uint64, fn func()) *time.Timer {
	return time.AfterFunc(d, func() {
		if g.Valid(token) {
			fn()
		}
	})
}
