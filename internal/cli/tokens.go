package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"scriptmentor/internal/domain/models"
)

func init() {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Inspect and administer token accounts",
	}

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the signed-in user's balance and recent spending",
		Args:  cobra.NoArgs,
		Run:   runBalance,
	}

	resetCmd := &cobra.Command{
		Use:   "reset-due",
		Short: "Restore the allowance of every account whose cycle has elapsed",
		Args:  cobra.NoArgs,
		Run:   runResetDue,
	}

	tierCmd := &cobra.Command{
		Use:   "set-tier <user-id> <free|creator|pro>",
		Short: "Move a user to another tier",
		Args:  cobra.ExactArgs(2),
		Run:   runSetTier,
	}

	tokensCmd.AddCommand(balanceCmd, resetCmd, tierCmd)
	RootCmd.AddCommand(tokensCmd)
}

func runBalance(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, cfg, logger, done := openApp(ctx)
	defer done()

	userID := signedInUser(ctx, cfg, logger)
	account, err := a.Ledger.Account(ctx, userID)
	if err != nil {
		exitErr("read balance", err)
	}
	history, err := a.Ledger.History(ctx, userID, 10)
	if err != nil {
		exitErr("read history", err)
	}

	if !textOutput() {
		printJSON(map[string]any{"account": account, "recent_transactions": history})
		return
	}
	fmt.Printf("%d / %d tokens (%s tier, cycle started %s)\n",
		account.Balance, account.MonthlyAllowance, account.Tier, account.LastResetDate.Format("2006-01-02"))
	for _, t := range history {
		fmt.Printf("  %s  %-20s -%d\n", t.Timestamp.Format("2006-01-02 15:04"), t.ActionType, t.Cost)
	}
}

func runResetDue(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, _, _, done := openApp(ctx)
	defer done()

	n, err := a.Ledger.ResetDue(ctx)
	if err != nil {
		exitErr("reset", err)
	}
	if textOutput() {
		fmt.Printf("reset %d accounts\n", n)
		return
	}
	printJSON(map[string]int64{"reset": n})
}

func runSetTier(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, _, _, done := openApp(ctx)
	defer done()

	if err := a.Ledger.SetTier(ctx, args[0], models.Tier(args[1])); err != nil {
		exitErr("set tier", err)
	}
	account, err := a.Ledger.Account(ctx, args[0])
	if err != nil {
		exitErr("read account", err)
	}
	printJSON(account)
}
