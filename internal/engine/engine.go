package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/metrics"
)

// ErrStopped is returned by Submit once the engine has stopped.
var ErrStopped = errors.New("engine stopped")

// Request is one caller-initiated ledger operation.
type Request struct {
	Kind   ledger.OpKind
	Caller ledger.AccountID
	Round  uint64
	Escrow uint64

	// Amount is the stake/withdraw amount, the claim-through index, or the
	// purge-down-to index. Ignored by other kinds.
	Amount uint64
}

// Result is the outcome of one request.
type Result struct {
	Receipt ledger.Receipt
	Err     error
}

// Engine serializes every mutating operation on one ledger.
//
// Requests are queued FIFO and executed one at a time by the Run goroutine,
// each stamped with the next seq from the logical clock and a fresh
// operation id.
type Engine struct {
	ledger  *ledger.Ledger
	clock   *Clock
	queue   *requestQueue
	ids     IDGenerator
	logger  *zap.Logger
	metrics *metrics.Ledger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the logical clock. Use NewClockAt to resume after the last
// journaled seq.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDs sets the operation id generator. Defaults to UUIDv7Generator.
func WithIDs(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over l.
func New(l *ledger.Ledger, opts ...Option) *Engine {
	e := &Engine{
		ledger:  l,
		clock:   NewClock(),
		queue:   newRequestQueue(),
		ids:     UUIDv7Generator{},
		logger:  zap.NewNop(),
		metrics: metrics.NewLedger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger for read-only queries.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Submit queues req and waits for its result. Safe from any goroutine.
//
// If ctx ends first Submit returns ctx.Err(); the request may still run.
func (e *Engine) Submit(ctx context.Context, req Request) (ledger.Receipt, error) {
	reply := make(chan Result, 1)
	if !e.queue.Enqueue(pending{req: req, reply: reply}) {
		return ledger.Receipt{}, ErrStopped
	}
	select {
	case <-ctx.Done():
		return ledger.Receipt{}, ctx.Err()
	case res := <-reply:
		return res.Receipt, res.Err
	}
}

// Run drains the request queue until ctx ends or Stop is called.
// Requests still queued at exit are answered with ErrStopped.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", zap.Uint64("seq", e.clock.Current()))
	defer e.queue.drain(ErrStopped)

	for {
		if p, ok := e.queue.TryDequeue(); ok {
			receipt, err := e.Execute(ctx, p.req)
			p.reply <- Result{Receipt: receipt, Err: err}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()
		case <-e.queue.Wait():
			// The signal channel is closed once the queue is closed.
			if e.queue.Len() == 0 && e.queue.Closed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the queued requests are done.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Execute runs req synchronously on the calling goroutine. Callers must not
// run it concurrently with Run. On error the receipt still identifies the
// attempted operation.
func (e *Engine) Execute(ctx context.Context, req Request) (ledger.Receipt, error) {
	started := time.Now()
	call := ledger.Call{
		OpID:   e.ids.Generate(),
		Seq:    e.clock.Next(),
		Caller: req.Caller,
		Round:  req.Round,
		Escrow: req.Escrow,
	}

	receipt, err := e.dispatch(ctx, req, call)
	e.metrics.Observe(string(req.Kind), err, started)
	if err != nil {
		e.logger.Warn("operation rejected",
			zap.String("op", string(req.Kind)),
			zap.String("op_id", call.OpID),
			zap.Uint64("seq", call.Seq),
			zap.String("caller", string(req.Caller)),
			zap.Uint64("round", req.Round),
			zap.Error(err),
		)
		return ledger.Receipt{Op: attempted(req, call)}, err
	}

	if receipt.Harvest != nil {
		e.metrics.ObserveHarvest(receipt.Harvest.Realized)
	}
	p := e.ledger.Pool()
	e.metrics.SetPool(p.TotalStake, p.FeeBalance, p.HarvestCount)
	return receipt, nil
}

func attempted(req Request, call ledger.Call) ledger.OpRecord {
	return ledger.OpRecord{
		ID:     call.OpID,
		Seq:    call.Seq,
		Kind:   req.Kind,
		Caller: call.Caller,
		Round:  call.Round,
		Escrow: call.Escrow,
		Amount: req.Amount,
	}
}

func (e *Engine) dispatch(ctx context.Context, req Request, call ledger.Call) (ledger.Receipt, error) {
	l := e.ledger
	switch req.Kind {
	case ledger.OpSetup:
		return l.Setup(ctx, call)
	case ledger.OpJoin:
		return l.Join(ctx, call)
	case ledger.OpLeave:
		return l.Leave(ctx, call)
	case ledger.OpForceLeave:
		return l.ForceLeave(ctx, call)
	case ledger.OpStake:
		return l.Stake(ctx, call, req.Amount)
	case ledger.OpWithdraw:
		return l.Withdraw(ctx, call, req.Amount)
	case ledger.OpTrigger:
		return l.TriggerHarvest(ctx, call)
	case ledger.OpCompoundNow:
		return l.CompoundNow(ctx, call)
	case ledger.OpFundTriggers:
		return l.FundTriggers(ctx, call)
	case ledger.OpLocalClaim:
		return l.LocalClaim(ctx, call, req.Amount)
	case ledger.OpPurge:
		return l.PurgeHarvests(ctx, call, req.Amount)
	case ledger.OpDeletePool:
		return l.DeletePool(ctx, call)
	default:
		return ledger.Receipt{}, fault.New(fault.CodeInvalidInput, "unknown operation %q", req.Kind)
	}
}

var kinds = []ledger.OpKind{
	ledger.OpSetup, ledger.OpJoin, ledger.OpLeave, ledger.OpForceLeave,
	ledger.OpStake, ledger.OpWithdraw, ledger.OpTrigger, ledger.OpCompoundNow,
	ledger.OpFundTriggers, ledger.OpLocalClaim, ledger.OpPurge, ledger.OpDeletePool,
}

// ParseKind resolves an operation name such as "stake" or "compound_now".
func ParseKind(s string) (ledger.OpKind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fault.New(fault.CodeInvalidInput, "unknown operation %q", s)
}
