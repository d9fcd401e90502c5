// Package cli implements the scriptctl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"scriptmentor/internal/app"
	"scriptmentor/internal/auth"
	"scriptmentor/internal/config"
	serviceAuth "scriptmentor/internal/service/auth"
)

var (
	driverFlag string
	formatFlag string
	tokenFlag  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "scriptctl",
	Short: "Operate a scriptmentor deployment",
	Long:  "Maintenance and inspection commands for scripts, token accounts and chunking.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver: postgres or sqlite (default: $DATABASE_DRIVER)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&tokenFlag, "access-token", "", "Session token (default: $SUPABASE_ACCESS_TOKEN)")
}

func loadConfig() *config.Config {
	cfg := config.Load()
	if driverFlag != "" {
		cfg.DatabaseDriver = driverFlag
	}
	return cfg
}

// newLogger writes to stderr so command output stays parseable.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	logger, closer, err := config.NewLogger(cfg, "scriptctl", os.Stderr)
	if err != nil {
		exitErr("set up logging", err)
	}
	return logger, closer
}

// openApp wires every service. The caller must call the returned cleanup.
func openApp(ctx context.Context) (*app.App, *config.Config, *slog.Logger, func()) {
	cfg := loadConfig()
	logger, closer := newLogger(cfg)
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		closer.Close()
		exitErr("open services", err)
	}
	return a, cfg, logger, func() {
		a.Close()
		closer.Close()
	}
}

// signedInUser resolves the session token to a user id through the auth
// provider.
func signedInUser(ctx context.Context, cfg *config.Config, logger *slog.Logger) string {
	token := tokenFlag
	if token == "" {
		token = os.Getenv("SUPABASE_ACCESS_TOKEN")
	}
	resolver := serviceAuth.NewSessionResolver(auth.NewUserClient(cfg.SupabaseURL, cfg.SupabaseKey), token, logger)
	userID, err := resolver.Resolve(ctx)
	if err != nil {
		exitErr("resolve session", err)
	}
	return userID
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textOutput() bool {
	return formatFlag == "text"
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
