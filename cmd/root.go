package cmd

import (
	"status-service/config"
	"status-service/core/utils"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "status-service",
	Short:         "status-service records service incidents and serves the status board",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "config file path (YAML); env variables override it")
	rootCmd.SetUsageTemplate(rootCmd.UsageTemplate() + "\nEnvironment:\n" + config.Usage())
	rootCmd.AddCommand(serveCmd, generateCmd, versionCmd)
}

// loadRuntime reads the config and builds a logger over the command's stderr.
// Stdout is left to command output.
func loadRuntime(cmd *cobra.Command) (*config.AppConfig, *utils.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, utils.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format), nil
}
