package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/config"
	"github.com/mmynk/settleup/internal/ledger"
)

var errMemoryBackend = errors.New("the memory backend holds no data outside a running server; use --db or DATA_BACKEND=sqlite")

// loadSnapshot reads a group from the configured database. Only a persistent
// backend has anything to read.
func loadSnapshot(ctx context.Context, a *app, groupID string) (*ledger.Snapshot, error) {
	if a.cfg.DataBackend == config.BackendMemory {
		return nil, errMemoryBackend
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return ledger.Load(ctx, store, groupID)
}

func balancesCmd(a *app) *cobra.Command {
	var groupID string
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Print every member's paid, owed and net amounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), a, groupID)
			if err != nil {
				return err
			}
			balances, err := snap.Balances()
			if err != nil {
				return err
			}
			printBalances(cmd.OutOrStdout(), snap, balances)
			return nil
		},
	}
	cmd.Flags().StringVarP(&groupID, "group", "g", "", "group ID")
	cmd.MarkFlagRequired("group")
	return cmd
}

func planCmd(a *app) *cobra.Command {
	var groupID string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the transfers that settle a group (nothing is saved)",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), a, groupID)
			if err != nil {
				return err
			}
			_, transfers, err := snap.Plan()
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), snap, transfers)
			return nil
		},
	}
	cmd.Flags().StringVarP(&groupID, "group", "g", "", "group ID")
	cmd.MarkFlagRequired("group")
	return cmd
}

func displayName(snap *ledger.Snapshot, id string) string {
	if m, ok := snap.Member(id); ok {
		return m.DisplayName
	}
	return id
}

func printBalances(w io.Writer, snap *ledger.Snapshot, balances []calculator.Balance) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MEMBER\tPAID\tOWED\tNET\t")
	for _, b := range balances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			displayName(snap, b.MemberID),
			calculator.Round2(b.Paid).StringFixed(2),
			calculator.Round2(b.Owed).StringFixed(2),
			calculator.Round2(b.Net).StringFixed(2),
		)
	}
	tw.Flush()
}

func printPlan(w io.Writer, snap *ledger.Snapshot, transfers []calculator.Transfer) {
	if len(transfers) == 0 {
		fmt.Fprintln(w, "All settled.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tAMOUNT")
	for _, t := range transfers {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", displayName(snap, t.From), displayName(snap, t.To), t.Amount.StringFixed(2))
	}
	tw.Flush()
}
