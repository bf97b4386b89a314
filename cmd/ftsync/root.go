package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/config"
	logpkg "github.com/kailas-cloud/ftsync/internal/logger"
	"github.com/kailas-cloud/ftsync/internal/version"
)

// runtime is the state shared by every command after bootstrap.
type runtime struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	var (
		env        string
		configPath string
		envFile    string
	)
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:   "ftsync",
		Short: "Keep a full-text index in sync with application records",
		Long: `ftsync mirrors records of a relational database into a full-text index
(Redis with the search module, or an embedded bleve index) and searches it.

The configuration is read from config/<env>.yaml, found by walking up from
the working directory. A .env file in the working directory is loaded first.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional
			_ = godotenv.Load(envFile)

			if env == "" {
				env = config.GetEnv()
			}
			var err error
			if configPath != "" {
				rt.cfg, err = config.LoadFile(configPath, env)
			} else {
				rt.cfg, err = config.Load(env)
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			rt.env = env
			rt.logger, err = logpkg.NewLogger(env, rt.cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.SetVersionTemplate(fmt.Sprintf("ftsync version {{.Version}} (commit %s, built %s)\n", version.Commit, version.Date))

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment name (default: $ENV or local)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before the config")

	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newSearchCmd(rt))
	cmd.AddCommand(newReindexCmd(rt))
	cmd.AddCommand(newClearCmd(rt))
	cmd.AddCommand(newListCmd(rt))

	return cmd
}
