package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/airchains-network/gethrpc/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// InitCmd represents the init command
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file",
	Long: `Create ~/.gethrpc (or the directory of --config) with a config.toml and the
witness database directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd)
	},
}

func init() {
	InitCmd.Flags().Bool("check-mem-strict", false, "Capture memory when tracing single transactions")
	InitCmd.Flags().String("log-level", "info", "Log level")
	InitCmd.Flags().Float64("rps", 0, "Maximum requests per second to the node, 0 for no limit")
	InitCmd.Flags().Int("burst", 1, "Request burst allowed by the rate limit")
	InitCmd.Flags().String("fork.upstream-url", "", "Upstream RPC URL anvil forks from")
	InitCmd.Flags().Uint64("fork.block", 0, "Block number anvil forks at")
	InitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func initCommand(cmd *cobra.Command) error {
	checkMemStrict, _ := cmd.Flags().GetBool("check-mem-strict")
	logLevel, _ := cmd.Flags().GetString("log-level")
	rps, _ := cmd.Flags().GetFloat64("rps")
	burst, _ := cmd.Flags().GetInt("burst")
	upstreamURL, _ := cmd.Flags().GetString("fork.upstream-url")
	forkBlock, _ := cmd.Flags().GetUint64("fork.block")
	force, _ := cmd.Flags().GetBool("force")
	rpcURL, _ := cmd.Flags().GetString("rpc-url")

	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists, use --force to overwrite it", path)
	}
	dir := filepath.Dir(path)

	cfg := config.DefaultConfig()
	if rpcURL != "" {
		cfg.General.GethRPCURL = rpcURL
	}
	cfg.General.CheckMemStrict = checkMemStrict
	cfg.General.LogLevel = logLevel
	cfg.General.RequestsPerSecond = rps
	cfg.General.RequestBurst = burst
	cfg.Fork.UpstreamRPCURL = upstreamURL
	cfg.Fork.BlockNumber = forkBlock
	cfg.Database.WitnessDBPath = filepath.Join(dir, "data", "witness_db")
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Database.WitnessDBPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", cfg.Database.WitnessDBPath, err)
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	log := newLogger(cfg)
	log.WithFields(logrus.Fields{
		"rpc_url":          cfg.General.GethRPCURL,
		"check_mem_strict": cfg.General.CheckMemStrict,
		"witness_db":       cfg.Database.WitnessDBPath,
	}).Infof("Created config file at: %s", path)
	return nil
}
