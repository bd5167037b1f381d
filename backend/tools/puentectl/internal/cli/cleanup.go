package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune expired OTP codes and lapsed rate-limit windows",
	Long: `cleanup runs the same pruning the auth-service cron performs nightly.
Unverified codes are removed once expired; verified codes are kept for
24 hours after verification.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

var skipRateLimits bool

func init() {
	cleanupCmd.Flags().BoolVar(&skipRateLimits, "skip-rate-limits", false, "only prune OTP codes")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	return withStores(cmd.Context(), func(s *Stores) error {
		n, err := s.OtpCodes.CleanupExpired(cmd.Context())
		if err != nil {
			return fmt.Errorf("prune otp codes: %w", err)
		}
		_, _ = fmt.Fprintf(out, "otp codes removed: %d\n", n)

		if skipRateLimits {
			return nil
		}
		if err := s.RateLimit.CleanupExpired(cmd.Context()); err != nil {
			return fmt.Errorf("prune rate limits: %w", err)
		}
		_, _ = fmt.Fprintln(out, "rate-limit windows pruned")
		return nil
	})
}
