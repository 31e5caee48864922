package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/compound/internal/engine"
	"github.com/roach88/compound/internal/keeper"
	"github.com/roach88/compound/internal/ledger"
)

// operationSpec describes a command that submits one ledger operation.
type operationSpec struct {
	use  string
	kind ledger.OpKind

	// arg names the positional amount, if the operation takes one.
	arg string

	// caller is the --caller default; empty makes the flag required.
	caller string

	short   string
	example string
}

var operations = []operationSpec{
	{use: "setup", kind: ledger.OpSetup, short: "Prime the pool (admin)",
		example: "compound setup --caller admin --round 10 --escrow 100000"},
	{use: "join", kind: ledger.OpJoin, short: "Open a position",
		example: "compound join --caller alice --round 50"},
	{use: "leave", kind: ledger.OpLeave, short: "Close an empty position",
		example: "compound leave --caller alice --round 900"},
	{use: "force-leave", kind: ledger.OpForceLeave, short: "Close a position, forfeiting its stake",
		example: "compound force-leave --caller alice --round 900"},
	{use: "stake", kind: ledger.OpStake, arg: "amount", short: "Deposit stake",
		example: "compound stake 256 --caller alice --round 50 --escrow 22100"},
	{use: "withdraw", kind: ledger.OpWithdraw, arg: "amount", short: "Withdraw whole units of stake",
		example: "compound withdraw 100 --caller alice --round 700 --escrow 22100"},
	{use: "trigger", kind: ledger.OpTrigger, caller: string(keeper.DefaultCaller), short: "Run a scheduled harvest if one is due",
		example: "compound trigger --round 550"},
	{use: "compound-now", kind: ledger.OpCompoundNow, short: "Run an extra harvest paid by the caller",
		example: "compound compound-now --caller alice --round 300 --escrow 19100"},
	{use: "fund", kind: ledger.OpFundTriggers, short: "Add fee credit that buys scheduled harvests",
		example: "compound fund --caller carol --round 600 --escrow 57300"},
	{use: "claim", kind: ledger.OpLocalClaim, arg: "through-index", short: "Replay harvests onto the caller's position",
		example: "compound claim 3 --caller alice --round 700"},
	{use: "purge", kind: ledger.OpPurge, arg: "down-to-index", short: "Delete the newest harvest records (admin, after end)",
		example: "compound purge 0 --caller admin --round 1200"},
	{use: "delete", kind: ledger.OpDeletePool, short: "Tear down the pool (admin, after end)",
		example: "compound delete --caller admin --round 1200"},
}

type operationOptions struct {
	*RootOptions
	Caller string
	Round  uint64
	Escrow uint64
}

func newOperationCommand(rootOpts *RootOptions, spec operationSpec) *cobra.Command {
	opts := &operationOptions{RootOptions: rootOpts}

	use := spec.use
	args := cobra.NoArgs
	if spec.arg != "" {
		use = fmt.Sprintf("%s <%s>", spec.use, spec.arg)
		args = cobra.ExactArgs(1)
	}

	cmd := &cobra.Command{
		Use:           use,
		Short:         spec.short,
		Example:       "  " + spec.example,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(opts, spec, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", spec.caller, "calling account")
	cmd.Flags().Uint64Var(&opts.Round, "round", 0, "current round (defaults to the wall-clock round)")
	cmd.Flags().Uint64Var(&opts.Escrow, "escrow", 0, "fee escrow supplied with the call")
	if spec.caller == "" {
		_ = cmd.MarkFlagRequired("caller")
	}

	return cmd
}

func runOperation(opts *operationOptions, spec operationSpec, args []string, cmd *cobra.Command) error {
	var amount uint64
	if spec.arg != "" {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", spec.arg, args[0]), err)
		}
		amount = v
	}
	caller, err := ledger.ParseAccount(opts.Caller)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --caller", err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	round, err := s.round(opts.Round, cmd.Flags().Changed("round"))
	if err != nil {
		return err
	}

	out := opts.formatter(cmd)
	out.VerboseLog("submitting %s by %s at round %d", spec.kind, caller, round)
	receipt, err := s.engine.Execute(ctx, engine.Request{
		Kind:   spec.kind,
		Caller: caller,
		Round:  round,
		Escrow: opts.Escrow,
		Amount: amount,
	})
	if err != nil {
		return out.Reject(err)
	}
	return out.Success(receiptView(receipt))
}
