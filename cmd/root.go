package main

import (
	"github.com/spf13/cobra"

	"github.com/fyerfyer/penalty-amount/config"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "penalty-amount",
	Short: "Compute fine and confiscation amounts from penalty decisions",
	Long: `penalty-amount reads administrative penalty decision texts and computes,
for each document, the total fine and the total confiscated amount.

Commands:
  run        batch-process a CSV file or the document table with checkpoints
  extract    compute the amounts of a single text
  normalize  print the normalized form of a text
  import     load a CSV file into the document table
  show       print persisted results from the database`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "env file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd, extractCmd, normalizeCmd, importCmd, showCmd)
}

// loadApp 加载配置并创建应用，命令行参数覆盖配置文件
func loadApp(override func(*config.Config)) (*app, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newApp(cfg)
}
