package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/compound/internal/ledger"
)

type queryOptions struct {
	*RootOptions
	Round uint64
}

func addRoundFlag(cmd *cobra.Command, opts *queryOptions) {
	cmd.Flags().Uint64Var(&opts.Round, "round", 0, "round to evaluate at (defaults to the wall-clock round)")
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &queryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pool aggregates and the next harvest slot",
		Example: `  compound status --round 600
  compound status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			round, err := s.round(opts.Round, cmd.Flags().Changed("round"))
			if err != nil {
				return err
			}
			return opts.formatter(cmd).Success(statusView(s.ledger.Pool(), round, s.ledger.NextDue(round)))
		},
	}
	addRoundFlag(cmd, opts)
	return cmd
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &queryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show when the next scheduled harvest may fire",
		Long: `Show when the next scheduled harvest may fire.

The status is one of scheduled, due_now, no_funded_trigger,
no_more_triggers_needed, or pool_already_ended.`,
		Example:       "  compound schedule --round 549",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			round, err := s.round(opts.Round, cmd.Flags().Changed("round"))
			if err != nil {
				return err
			}
			return opts.formatter(cmd).Success(dueView(round, s.ledger.NextDue(round)))
		},
	}
	addRoundFlag(cmd, opts)
	return cmd
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account's stake projected onto every harvest",
		Long: `Show an account's stake projected onto every recorded harvest.

Nothing is written; the stored position catches up only through 'claim' or
the next operation the account makes.`,
		Example:       "  compound balance alice",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := ledger.ParseAccount(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid account", err)
			}
			s, err := openSession(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := rootOpts.formatter(cmd)
			units, exact, err := s.ledger.Balance(account)
			if err != nil {
				return out.Reject(err)
			}
			pos, err := s.ledger.Position(account)
			if err != nil {
				return out.Reject(err)
			}
			return out.Success(BalanceView{
				Account:      string(account),
				Units:        units,
				Stake:        exact.String(),
				LastObserved: pos.LastObserved,
				HarvestCount: s.ledger.Pool().HarvestCount,
			})
		},
	}
}

type logOptions struct {
	*RootOptions
	From  uint64
	To    uint64
	Ops   bool
	After uint64
	Limit int
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &logOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List harvest records, or the operation journal with --ops",
		Example: `  compound log --from 2 --to 5
  compound log --ops --after 10 --limit 20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showLog(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.From, "from", 1, "first harvest index")
	cmd.Flags().Uint64Var(&opts.To, "to", 0, "last harvest index (default: newest)")
	cmd.Flags().BoolVar(&opts.Ops, "ops", false, "list journaled operations instead of harvests")
	cmd.Flags().Uint64Var(&opts.After, "after", 0, "with --ops, list operations after this seq")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "with --ops, maximum operations to list (0 for all)")

	return cmd
}

func showLog(opts *logOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()
	out := opts.formatter(cmd)

	if opts.Ops {
		ops, err := s.store.ReadOperations(ctx, opts.After, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		list := make(OpList, 0, len(ops))
		for _, op := range ops {
			list = append(list, receiptView(ledger.Receipt{Op: op}))
		}
		return out.Success(list)
	}

	to := opts.To
	if to == 0 {
		to = s.ledger.Pool().HarvestCount
	}
	list := RecordList{}
	for _, r := range s.ledger.Records(opts.From, to) {
		list = append(list, recordView(r))
	}
	return out.Success(list)
}
