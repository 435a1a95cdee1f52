package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
)

func newKeyCmd(opts *globalOptions) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage signing keys",
	}
	keyCmd.AddCommand(
		newKeyGenerateCmd(),
		newKeyValidateCmd(),
		newKeyInfoCmd(opts),
		newKeyRotateCmd(opts),
		newKeyCleanupCmd(opts),
	)
	return keyCmd
}

// newKeyGenerateCmd prints a fresh key. It never contacts a server.
func newKeyGenerateCmd() *cobra.Command {
	var lengthBytes int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lengthBytes <= 0 {
				return fmt.Errorf("--bytes must be positive")
			}
			fmt.Fprintln(cmd.OutOrStdout(), models.GenerateKeyMaterial(lengthBytes).Value())
			return nil
		},
	}
	cmd.Flags().IntVar(&lengthBytes, "bytes", constants.DefaultKeyLengthBytes, "Number of random bytes")
	return cmd
}

func newKeyValidateCmd() *cobra.Command {
	var minLength int
	cmd := &cobra.Command{
		Use:   "validate <value>",
		Short: "Check that a value is usable as a signing key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !models.ValidateKeyMaterial(args[0], minLength) {
				return fmt.Errorf("invalid key: must be base64url and at least %d characters", effectiveMinLength(minLength))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	cmd.Flags().IntVar(&minLength, "min-length", constants.DefaultMinKeyLength, "Minimum key length in characters")
	return cmd
}

func newKeyInfoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the server's key state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(opts)
			if err != nil {
				return err
			}
			body, err := client.do(cmd.Context(), http.MethodGet, "/admin/keys/info", nil)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printRaw(cmd.OutOrStdout(), body)
			}

			var info models.KeyInfo
			if err := json.Unmarshal(body, &info); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Current key:   %s (%d chars)\n", info.CurrentKeyPreview, info.CurrentKeyLength)
			fmt.Fprintf(out, "Retired keys:  %d\n", info.OldKeysCount)
			if info.LastRotatedAt != nil {
				fmt.Fprintf(out, "Last rotated:  %s\n", info.LastRotatedAt.UTC().Format("2006-01-02T15:04:05Z"))
			} else {
				fmt.Fprintln(out, "Last rotated:  never")
			}
			return nil
		},
	}
}

func newKeyRotateCmd(opts *globalOptions) *cobra.Command {
	var newKey string
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate the server's signing key",
		Long: `Rotate installs --new-key as the current signing key, or asks the server to
generate one. The previous key stays valid for verification until cleanup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(opts)
			if err != nil {
				return err
			}
			body, err := client.do(cmd.Context(), http.MethodPost, "/admin/keys/rotate", &dto.RotateKeyRequest{NewKey: newKey})
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printRaw(cmd.OutOrStdout(), body)
			}

			var result dto.RotateKeyResponse
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rotated signing key %s -> %s\n", result.PreviousKeyPreview, result.NewKeyPreview)
			fmt.Fprintf(out, "Retained old keys: %d\n", result.RetainedOldKeyCount)
			if newKey == "" {
				fmt.Fprintf(out, "New key (store it now, it is not shown again): %s\n", result.NewKey)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&newKey, "new-key", "", "Key to install; generated by the server when empty")
	return cmd
}

func newKeyCleanupCmd(opts *globalOptions) *cobra.Command {
	var graceDays int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove retired keys once the grace period has elapsed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(opts)
			if err != nil {
				return err
			}
			req := &dto.CleanupRequest{}
			if cmd.Flags().Changed("grace-days") {
				req.GraceDays = &graceDays
			}
			body, err := client.do(cmd.Context(), http.MethodPost, "/admin/keys/cleanup", req)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printRaw(cmd.OutOrStdout(), body)
			}

			var result dto.CleanupResponse
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d retired key(s)\n", result.Removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&graceDays, "grace-days", 0, "Grace period in days; server default when unset, 0 purges now")
	return cmd
}

func printRaw(w io.Writer, body []byte) error {
	_, err := fmt.Fprintln(w, string(body))
	return err
}

func effectiveMinLength(n int) int {
	if n <= 0 {
		return constants.DefaultMinKeyLength
	}
	return n
}
