package cmd

import (
	"strings"

	"github.com/Iron-Ham/postflow/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the postflow command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "postflow",
		Short: "Multi-tenant post approval workflow",
		Long: `Postflow moves social media posts through ordered, role-gated review
steps before they are published or scheduled. Reviewers receive tasks,
approvals are recorded per step, and every transition emits an event to
the audit trail and metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/postflow/config.yaml)")
	flags.Bool("json", false, "print results as JSON")
	flags.String("tenant", "", "tenant the command acts in (env POSTFLOW_TENANT)")
	flags.String("user", "", "user id the command acts as (env POSTFLOW_USER)")
	flags.String("role", "member", "organization role the user acts with (env POSTFLOW_ROLE)")
	for _, name := range []string{"config", "json", "tenant", "user", "role"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initConfig()
		return nil
	}

	root.AddCommand(
		newConfigCmd(),
		newDBCmd(),
		newMemberCmd(),
		newTemplateCmd(),
		newPostCmd(),
		newTaskCmd(),
		newWorkerCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("POSTFLOW")
	// Replace dots with underscores for nested keys in env vars
	// e.g., POSTFLOW_DATABASE_URL for database.url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
