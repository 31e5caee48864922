package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/compound/internal/keeper"
	"github.com/roach88/compound/internal/ledger"
)

// KeeperOptions holds flags for the keeper command.
type KeeperOptions struct {
	*RootOptions
	Cron        string
	Caller      string
	MetricsAddr string
}

// NewKeeperCommand creates the keeper command.
func NewKeeperCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeeperOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keeper",
		Short: "Trigger scheduled harvests until interrupted",
		Long: `Run the harvest keeper against the pool database.

The keeper derives the current round from keeper.genesis and
keeper.round_period, checks the schedule on every cron tick, and submits a
trigger when a harvest is due. Prometheus metrics are served at /metrics.

Example:
  compound keeper --config pool.yaml
  compound keeper --cron "*/5 * * * * *" --metrics-addr :9200`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeeper(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Cron, "cron", "", "six-field cron spec (overrides config)")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "account to trigger as (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "metrics listen address (overrides config; \"off\" disables)")

	return cmd
}

func runKeeper(opts *KeeperOptions, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.Keeper.Genesis.IsZero() {
		return NewExitError(ExitCommandError, "keeper.genesis must be configured to derive rounds")
	}
	spec := s.cfg.Keeper.Cron
	if opts.Cron != "" {
		spec = opts.Cron
	}
	callerName := s.cfg.Keeper.Caller
	if opts.Caller != "" {
		callerName = opts.Caller
	}
	var caller ledger.AccountID
	if callerName != "" {
		if caller, err = ledger.ParseAccount(callerName); err != nil {
			return WrapExitError(ExitCommandError, "invalid keeper caller", err)
		}
	}
	addr := s.cfg.Keeper.MetricsAddr
	if opts.MetricsAddr != "" {
		addr = opts.MetricsAddr
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			s.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	engineDone := make(chan error, 1)
	go func() { engineDone <- s.engine.Run(ctx) }()

	k := keeper.New(keeper.Config{Spec: spec, Caller: caller}, s.wallRounds(), s.ledger, s.engine, s.logger)
	if err := k.Start(ctx); err != nil {
		cancel()
		<-engineDone
		return WrapExitError(ExitCommandError, "failed to start keeper", err)
	}
	if addr != "off" {
		keeper.ServeMetrics(ctx, addr, s.logger)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Keeper started at round %d (cron %q).\n", s.wallRounds().Round(), spec)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	<-ctx.Done()
	k.Stop()
	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	s.logger.Info("keeper stopped gracefully")
	return nil
}
