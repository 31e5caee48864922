package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/compound/internal/config"
	"github.com/roach88/compound/internal/engine"
	"github.com/roach88/compound/internal/keeper"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/sim"
	"github.com/roach88/compound/internal/store"
)

// newLogger builds the process logger: production JSON on stderr, or a
// development console logger with --verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// session is a ledger restored from the database, with the simulated
// collaborators it was persisted with.
type session struct {
	cfg    *config.Config
	store  *store.Store
	ledger *ledger.Ledger
	engine *engine.Engine
	logger *zap.Logger
}

// openSession loads config, opens the database, and restores the pool.
// The engine's clock resumes after the last journaled seq.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	fail := func(err error) (*session, error) {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", zap.Error(closeErr))
		}
		return nil, err
	}

	snap, err := st.LoadSnapshot(ctx)
	if errors.Is(err, store.ErrNoPool) {
		return fail(NewExitError(ExitCommandError, fmt.Sprintf("no pool in %s: run 'compound init' first", cfg.Database)))
	}
	if err != nil {
		return fail(WrapExitError(ExitCommandError, "failed to load pool", err))
	}

	src := sim.NewSource(cfg.Source.RateBPS)
	state, ok, err := st.LoadSource(ctx)
	if err != nil {
		return fail(WrapExitError(ExitCommandError, "failed to load source state", err))
	}
	if ok {
		src = sim.RestoreSource(state)
	}
	st.TrackSource(src.State)

	// The stored pool decides the variant; config only supplies the venue.
	cfg.Pool.Variant = string(snap.Pool.Variant)
	cfg.Pool.MinSwapThreshold = snap.Pool.MinSwapThreshold
	l, err := ledger.Restore(snap, ledger.Deps{
		Source:    engine.ObserveSource(src),
		Strategy:  cfg.Strategy(engine.ObserveVenue(sim.NewVenue(cfg.Venue.RateBPS))),
		Persister: st,
		Logger:    logger,
	})
	if err != nil {
		return fail(WrapExitError(ExitCommandError, "failed to restore pool", err))
	}

	last, err := st.LastSeq(ctx)
	if err != nil {
		return fail(WrapExitError(ExitCommandError, "failed to read journal", err))
	}
	logger.Debug("pool restored",
		zap.String("db", cfg.Database),
		zap.Uint64("last_seq", last),
		zap.Uint64("harvest_count", snap.Pool.HarvestCount),
	)

	return &session{
		cfg:    cfg,
		store:  st,
		ledger: l,
		engine: engine.New(l, engine.WithClock(engine.NewClockAt(last)), engine.WithLogger(logger)),
		logger: logger,
	}, nil
}

// Close closes the database and flushes the logger.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// wallRounds maps wall-clock time to rounds using the keeper settings.
func (s *session) wallRounds() keeper.WallRounds {
	return keeper.WallRounds{
		Genesis: s.cfg.Keeper.Genesis,
		Period:  s.cfg.Keeper.RoundPeriod,
		Offset:  s.cfg.Keeper.RoundOffset,
	}
}

// round returns the explicit --round value, or the wall-clock round when the
// config sets a genesis time.
func (s *session) round(explicit uint64, set bool) (uint64, error) {
	if set {
		return explicit, nil
	}
	if s.cfg.Keeper.Genesis.IsZero() {
		return 0, NewExitError(ExitCommandError, "--round is required when keeper.genesis is not configured")
	}
	return s.wallRounds().Round(), nil
}
