package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/planforge/planforge/internal/cmd/planning"
	"github.com/planforge/planforge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "planforge",
	Short: "Turn a PRD into an ordered, validated task plan",
	Long: `Planforge reads a product requirements document, generates a structured
set of implementation tasks with dependencies, validates the plan for
internal consistency, and produces a dependency-respecting execution
order with parallel batches.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context, so commands
// observe cancellation through cmd.Context().
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/planforge/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	planning.Register(rootCmd)
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
		viper.AddConfigPath("$HOME/.config/planforge")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PLANFORGE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PLANFORGE_PLANNER_MAX_ITERATIONS for planner.max_iterations
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
