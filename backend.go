package main

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/guunterr/thrust/internal/match"
)

const defaultMatchLabel = "thrust"

func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := initializer.RegisterMatch(defaultMatchLabel, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &match.GameMatch{}, nil
	}); err != nil {
		logger.Error("unable to register %s match: %v", defaultMatchLabel, err)
		return err
	}

	if err := ensureDefaultMatch(ctx, nk, logger); err != nil {
		logger.Error("failed to ensure default match exists: %v", err)
		return err
	}

	logger.Info("module loaded with %s match, default match ensured", defaultMatchLabel)
	return nil
}

// ensureDefaultMatch makes sure one open physics world exists when the
// module loads, so a client connecting before any player has created a
// match still finds one to join.
func ensureDefaultMatch(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) error {
	matches, err := nk.MatchList(ctx, 10, true, defaultMatchLabel, nil, nil, "")
	if err != nil {
		return err
	}
	if len(matches) > 0 {
		logger.Info("found %d existing %s matches", len(matches), defaultMatchLabel)
		return nil
	}

	matchID, err := nk.MatchCreate(ctx, defaultMatchLabel, map[string]interface{}{})
	if err != nil {
		return err
	}
	logger.Info("created default %s match: %s", defaultMatchLabel, matchID)
	return nil
}
