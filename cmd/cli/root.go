package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// globalOptions are shared by every subcommand that talks to a running server.
type globalOptions struct {
	server     string
	adminToken string
	output     string
	timeout    time.Duration
}

// NewRootCmd builds the `authcore-admin` command tree.
// NewRootCmd 构建 `authcore-admin` 命令树。
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "authcore-admin",
		Short: "A CLI tool for administering authcore signing keys.",
		Long: `authcore-admin generates and validates signing keys offline, and rotates,
inspects or cleans up the keys of a running authcore server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.server == "" {
				opts.server = os.Getenv("AUTHCORE_SERVER")
			}
			if opts.adminToken == "" {
				opts.adminToken = os.Getenv("AUTHCORE_ADMIN_TOKEN")
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", "", "authcore base URL (or set AUTHCORE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&opts.adminToken, "admin-token", "", "Admin token (or set AUTHCORE_ADMIN_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&opts.output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(newKeyCmd(opts))
	return rootCmd
}

// Execute is the main entry point for the CLI application.
// Execute 是 CLI 应用程序的主入口点。
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
