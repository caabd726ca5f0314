package rules

import (
	"context"

	"github.com/rs/zerolog/log"
)

// #region syncer
// Syncer refreshes rule tables from a remote source.
type Syncer interface {
	Sync(ctx context.Context) error
}

// NoopSyncer is the placeholder used until a remote rule service exists.
// Tables only ever come from the bundle or a local override file.
type NoopSyncer struct{}

// Sync implements Syncer and does nothing.
func (NoopSyncer) Sync(ctx context.Context) error {
	log.Debug().Str("component", "rules").Msg("rule sync skipped: no remote source configured")
	return ctx.Err()
}

// #endregion syncer
