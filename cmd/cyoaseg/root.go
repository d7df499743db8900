package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ivlev/cyoaseg/internal/config"
	"github.com/ivlev/cyoaseg/internal/logging"
)

var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "cyoaseg",
	Short:         "Segment CYOA pages into text chunks and illustrations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File with CYOASEG_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")

	rootCmd.AddCommand(runCmd, chunksCmd, reportCmd, configCmd, versionCmd)
}

// loadConfig layers defaults, the config file, .env, the environment and
// finally the flags of cmd that were set explicitly.
func loadConfig(cmd *cobra.Command, apply func(*config.Config)) (config.Config, *logrus.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	cfg.ApplyEnv()
	cfg.BuildVersion = buildVersion

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if apply != nil {
		apply(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}
