package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/sim"
	"github.com/roach88/compound/internal/store"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the pool database from config",
		Long: `Create the pool described by the config file in a new database.

The pool starts uninitialized; the admin primes it with 'compound setup'.

Example:
  compound init --config pool.yaml --db ./pool.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initPool(rootOpts, cmd)
		},
	}
}

func initPool(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	lc, err := cfg.Ledger()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	defer func() { _ = logger.Sync() }()

	src := sim.NewSource(cfg.Source.RateBPS)
	l, err := ledger.New(lc, ledger.Deps{
		Source:   src,
		Strategy: cfg.Strategy(sim.NewVenue(cfg.Venue.RateBPS)),
		Logger:   logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid pool", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", zap.Error(closeErr))
		}
	}()

	ctx := cmd.Context()
	if err := st.CreatePool(ctx, l.Pool()); err != nil {
		if fault.HasCode(err, fault.CodeAlreadyExists) {
			return WrapExitError(ExitCommandError, "pool already initialized in "+cfg.Database, err)
		}
		return WrapExitError(ExitCommandError, "failed to create pool", err)
	}
	if err := st.SaveSource(ctx, src.State()); err != nil {
		return WrapExitError(ExitCommandError, "failed to save source state", err)
	}
	logger.Info("pool created", zap.String("db", cfg.Database), zap.String("variant", cfg.Pool.Variant))

	p := l.Pool()
	return opts.formatter(cmd).Success(statusView(p, 0, l.NextDue(0)))
}
