// Package besteffort isolates side calls whose failure must never fail
// the primary operation: knowledge search, secondary indexing, version
// history commits. Wrapping a call here makes the degradation policy
// visible in the code structure instead of hiding it in scattered
// error-swallowing.
package besteffort

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Do runs fn and logs any failure at warn level. The error never
// propagates.
func Do(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("call", name).Any("panic", r).Msg("Best-effort call panicked")
		}
	}()
	if err := fn(); err != nil {
		log.Warn().Err(err).Str("call", name).Msg("Best-effort call failed")
	}
}

// Go runs fn in a goroutine, fire-and-forget, logging any failure.
// Used for side calls the caller must not even wait for.
func Go(name string, fn func() error) {
	go Do(name, fn)
}

// Value runs fn and returns its result, or the fallback when fn fails.
// Used for advisory lookups that degrade to "no extra context".
func Value[T any](ctx context.Context, name string, fallback T, fn func(ctx context.Context) (T, error)) T {
	out, err := fn(ctx)
	if err != nil {
		log.Warn().Err(err).Str("call", name).Msg("Best-effort lookup failed, using fallback")
		return fallback
	}
	return out
}
