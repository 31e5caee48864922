// Package keeper fires permissionless harvest triggers on a cron schedule.
//
// Each tick reads the current round, asks the ledger whether a harvest is
// due, and submits a trigger through the engine when it is. The trigger is
// paid from the pool's fee reserve, so the keeper attaches no escrow.
package keeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/roach88/compound/internal/engine"
	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/metrics"
	"github.com/roach88/compound/internal/schedule"
)

// Tick outcomes.
const (
	ResultTriggered = "triggered"
	ResultIdle      = "idle"
	ResultError     = "error"
)

// DefaultCaller is the account the keeper triggers harvests as.
const DefaultCaller ledger.AccountID = "keeper"

// RoundSource reports the current chain round.
type RoundSource interface {
	Round() uint64
}

// Planner evaluates the harvest schedule. *ledger.Ledger implements it.
type Planner interface {
	NextDue(round uint64) schedule.Due
}

// Submitter runs an operation. *engine.Engine implements it.
type Submitter interface {
	Submit(ctx context.Context, req engine.Request) (ledger.Receipt, error)
}

// Config configures a Keeper.
type Config struct {
	// Spec is a six-field cron expression (seconds first).
	Spec   string
	Caller ledger.AccountID
}

// Keeper polls the schedule and triggers due harvests.
type Keeper struct {
	cfg     Config
	rounds  RoundSource
	planner Planner
	submit  Submitter
	logger  *zap.Logger
	metrics *metrics.Keeper

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a keeper. A nil logger means zap.NewNop().
func New(cfg Config, rounds RoundSource, planner Planner, submit Submitter, logger *zap.Logger) *Keeper {
	if cfg.Caller == "" {
		cfg.Caller = DefaultCaller
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keeper{
		cfg:     cfg,
		rounds:  rounds,
		planner: planner,
		submit:  submit,
		logger:  logger,
		metrics: metrics.NewKeeper(),
	}
}

// Tick runs one schedule check and returns its outcome.
func (k *Keeper) Tick(ctx context.Context) (string, error) {
	result, err := k.tick(ctx)
	k.metrics.ObserveTick(result)
	return result, err
}

func (k *Keeper) tick(ctx context.Context) (string, error) {
	round := k.rounds.Round()
	due := k.planner.NextDue(round)
	if !due.Ready() {
		k.logger.Debug("harvest not due",
			zap.Uint64("round", round),
			zap.String("status", due.Status.String()),
			zap.Uint64("next_round", due.Round),
		)
		return ResultIdle, nil
	}

	receipt, err := k.submit.Submit(ctx, engine.Request{
		Kind:   ledger.OpTrigger,
		Caller: k.cfg.Caller,
		Round:  round,
	})
	switch {
	case err == nil:
	case fault.HasCode(err, fault.CodePoolNotYetLive), fault.HasCode(err, fault.CodeNotDue):
		return ResultIdle, nil
	default:
		k.logger.Error("trigger failed", zap.Uint64("round", round), zap.Error(err))
		return ResultError, fmt.Errorf("trigger at round %d: %w", round, err)
	}

	fields := []zap.Field{zap.Uint64("round", round), zap.Uint64("seq", receipt.Op.Seq)}
	if receipt.Harvest != nil {
		fields = append(fields,
			zap.Uint64("index", receipt.Harvest.Index),
			zap.Uint64("realized", receipt.Harvest.Realized),
		)
	}
	k.logger.Info("keeper triggered harvest", fields...)
	return ResultTriggered, nil
}

// Start registers the tick job and starts the cron scheduler. Ticks run
// under ctx.
func (k *Keeper) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cron != nil {
		return fmt.Errorf("keeper already started")
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(k.cfg.Spec, func() {
		_, _ = k.Tick(ctx)
	}); err != nil {
		return fmt.Errorf("register keeper tick %q: %w", k.cfg.Spec, err)
	}
	c.Start()
	k.cron = c
	k.logger.Info("keeper started", zap.String("spec", k.cfg.Spec), zap.String("caller", string(k.cfg.Caller)))
	return nil
}

// Stop stops the scheduler and waits for a running tick to finish.
func (k *Keeper) Stop() {
	k.mu.Lock()
	c := k.cron
	k.cron = nil
	k.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	k.logger.Info("keeper stopped")
}

// WallRounds derives rounds from wall-clock time: round Offset at Genesis,
// then one round per Period.
type WallRounds struct {
	Genesis time.Time
	Period  time.Duration
	Offset  uint64

	now func() time.Time
}

// Round implements RoundSource.
func (w WallRounds) Round() uint64 {
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	elapsed := now().Sub(w.Genesis)
	if elapsed <= 0 || w.Period <= 0 {
		return w.Offset
	}
	return w.Offset + uint64(elapsed/w.Period)
}
