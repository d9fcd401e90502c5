package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"scriptmentor/internal/domain/models"
)

var cleanupDays int

func init() {
	scriptsCmd := &cobra.Command{
		Use:   "scripts",
		Short: "Manage the signed-in user's scripts",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List scripts without their content",
		Args:  cobra.NoArgs,
		Run:   runScriptsList,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate-encryption",
		Short: "Encrypt every legacy plaintext script",
		Args:  cobra.NoArgs,
		Run:   runMigrateEncryption,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete scripts created more than --days ago",
		Args:  cobra.NoArgs,
		Run:   runCleanup,
	}
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 90, "Age in days")

	scriptsCmd.AddCommand(listCmd, migrateCmd, cleanupCmd)
	RootCmd.AddCommand(scriptsCmd)
}

func runScriptsList(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, cfg, logger, done := openApp(ctx)
	defer done()

	records, err := a.Store.GetAll(ctx, signedInUser(ctx, cfg, logger))
	if err != nil {
		exitErr("list scripts", err)
	}

	summaries := make([]models.ScriptSummary, 0, len(records))
	for i := range records {
		summaries = append(summaries, records[i].Summary())
	}
	if !textOutput() {
		printJSON(summaries)
		return
	}
	for _, s := range summaries {
		lock := "plain"
		if s.IsEncrypted {
			lock = "encrypted"
		}
		fmt.Printf("%s  %-40s  %d chunks  %s\n", s.ID, s.Title, s.ChunkCount, lock)
	}
}

func runMigrateEncryption(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, cfg, logger, done := openApp(ctx)
	defer done()

	report, err := a.Store.MigrateAllToEncrypted(ctx, signedInUser(ctx, cfg, logger))
	if err != nil {
		exitErr("migrate", err)
	}
	if textOutput() {
		fmt.Printf("migrated %d, failed %d\n", report.Migrated, report.Failed)
		return
	}
	printJSON(report)
}

func runCleanup(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, cfg, logger, done := openApp(ctx)
	defer done()

	deleted, err := a.Store.CleanupOlderThan(ctx, signedInUser(ctx, cfg, logger), cleanupDays)
	if err != nil {
		exitErr("cleanup", err)
	}
	if textOutput() {
		fmt.Printf("deleted %d scripts\n", deleted)
		return
	}
	printJSON(map[string]int64{"deleted": deleted})
}
