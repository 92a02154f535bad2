package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/airchains-network/gethrpc/config"
	"github.com/airchains-network/gethrpc/eth"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const homeDirName = ".gethrpc"

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Config file (default ~/.gethrpc/config.toml)")
	root.PersistentFlags().String("rpc-url", "", "Geth RPC URL, overrides the config file")
	root.PersistentFlags().String("block", "latest", "Block number or tag (latest, pending, safe, finalized, earliest)")
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, homeDirName), nil
}

func configPath(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return path, nil
	}
	dir, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads the config file if there is one, then applies the
// environment and the --rpc-url flag.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := configPath(cmd)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		explicit, _ := cmd.Flags().GetString("config")
		if explicit != "" || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
		cfg = config.DefaultConfig()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if url, _ := cmd.Flags().GetString("rpc-url"); url != "" {
		cfg.General.GethRPCURL = url
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stderr)
	level, err := cfg.Level()
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// session is what a command needs to talk to the node.
type session struct {
	cfg    config.Config
	log    *logrus.Logger
	client *eth.GethClient
	close  func()
}

func connect(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	rpcClient, err := rpc.DialContext(cmd.Context(), cfg.General.GethRPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.General.GethRPCURL, err)
	}
	var transport eth.Transport = rpcClient
	transport = eth.NewRateLimitedTransport(transport, cfg.General.RequestsPerSecond, cfg.General.RequestBurst)
	transport = eth.NewLoggingTransport(transport, log)

	log.Debugf("Connected to %s", cfg.General.GethRPCURL)
	return &session{
		cfg:    cfg,
		log:    log,
		client: eth.NewGethClient(transport, eth.WithMemoryStrict(cfg.General.CheckMemStrict)),
		close:  rpcClient.Close,
	}, nil
}

// withSession runs fn with a connected client and closes it afterwards.
func withSession(fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd, s, args)
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// parseBlock accepts a tag, a hex quantity or a decimal number.
func parseBlock(s string) (rpc.BlockNumber, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 63); err == nil {
		return rpc.BlockNumber(n), nil
	}
	var number rpc.BlockNumber
	if err := number.UnmarshalJSON([]byte(strconv.Quote(s))); err != nil {
		return 0, fmt.Errorf("invalid block %q: %w", s, err)
	}
	return number, nil
}

func blockFlag(cmd *cobra.Command) (rpc.BlockNumber, error) {
	s, _ := cmd.Flags().GetString("block")
	return parseBlock(s)
}

// blockArg reads the block from the first argument, falling back to --block.
func blockArg(cmd *cobra.Command, args []string) (rpc.BlockNumber, error) {
	if len(args) > 0 {
		return parseBlock(args[0])
	}
	return blockFlag(cmd)
}

func isHash(s string) bool {
	return strings.HasPrefix(s, "0x") && len(s) == 2+2*common.HashLength
}

func parseHash(s string) (common.Hash, error) {
	if !isHash(s) {
		return common.Hash{}, fmt.Errorf("invalid hash %q", s)
	}
	return common.HexToHash(s), nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// parseWord accepts a decimal or 0x-prefixed hex 256-bit value. Leading
// zeros are allowed so padded storage keys can be pasted as is.
func parseWord(s string) (*uint256.Int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			return new(uint256.Int), nil
		}
		return uint256.FromHex("0x" + digits)
	}
	return uint256.FromDecimal(s)
}
