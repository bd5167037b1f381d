package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:   "puentectl",
	Short: "Operator tool for the Puente auth and chat database",
	Long: `puentectl applies the shared schema, prunes expired OTP codes and
rate-limit windows, and inspects the latest code issued to a phone.

The database URL is read from --database-url, falling back to the
DATABASE_URL environment variable (a local .env file is honoured).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if databaseURL == "" {
			databaseURL = os.Getenv("DATABASE_URL")
		}
	},
}

// Execute runs the root command.
func Execute() error {
	if err := utils.LoadDotEnv(); err != nil {
		utils.Logger.WithError(err).Warn("Could not load .env")
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres connection string")
}
