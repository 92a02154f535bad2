package commands

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

// ForkCmd groups the anvil_* dev node commands.
var ForkCmd = &cobra.Command{
	Use:   "fork",
	Short: "Steer a forked anvil dev node",
}

var forkMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine one block",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if err := s.client.Mine(cmd.Context()); err != nil {
			return err
		}
		s.log.Info("Mined one block")
		return nil
	}),
}

var forkResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the fork to [fork] upstream_rpc_url at block_number",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		fork, err := forkFromFlags(cmd, s)
		if err != nil {
			return err
		}
		if err := s.client.Reset(cmd.Context(), fork.UpstreamURL, fork.BlockNumber); err != nil {
			return err
		}
		s.log.Infof("Reset fork to block %d of %s", fork.BlockNumber, fork.UpstreamURL)
		return nil
	}),
}

var forkSetNonceCmd = &cobra.Command{
	Use:   "set-nonce <address> <nonce>",
	Short: "Set the nonce of an account",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		account, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		nonce, err := parseWord(args[1])
		if err != nil {
			return fmt.Errorf("invalid nonce %q: %w", args[1], err)
		}
		return s.client.SetNonce(cmd.Context(), account, nonce)
	}),
}

var forkBaseFeeCmd = &cobra.Command{
	Use:   "base-fee <wei>",
	Short: "Set the base fee of the next block",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		fee, err := parseWord(args[0])
		if err != nil {
			return fmt.Errorf("invalid base fee %q: %w", args[0], err)
		}
		return s.client.SetNextBlockBaseFeePerGas(cmd.Context(), fee)
	}),
}

// MinerCmd groups miner_start and miner_stop.
var MinerCmd = &cobra.Command{
	Use:   "miner",
	Short: "Start or stop mining on a dev node",
}

var minerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start mining with one thread",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		return s.client.MinerStart(cmd.Context())
	}),
}

var minerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop mining",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		return s.client.MinerStop(cmd.Context())
	}),
}

var SendRawCmd = &cobra.Command{
	Use:   "send-raw <hex>",
	Short: "Submit a signed transaction and print its hash",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		txHex := strings.TrimSpace(args[0])
		if !strings.HasPrefix(txHex, "0x") {
			txHex = "0x" + txHex
		}
		raw, err := hexutil.Decode(txHex)
		if err != nil {
			return fmt.Errorf("invalid transaction hex: %w", err)
		}
		hash, err := s.client.SendRawTransaction(cmd.Context(), raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash.Hex())
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{forkResetCmd, ReplayCmd} {
		c.Flags().String("upstream-url", "", "Upstream RPC URL, overrides [fork] upstream_rpc_url")
		c.Flags().Uint64("fork-block", 0, "Fork block, overrides [fork] block_number")
	}
	ForkCmd.AddCommand(forkMineCmd, forkResetCmd, forkSetNonceCmd, forkBaseFeeCmd)
	MinerCmd.AddCommand(minerStartCmd, minerStopCmd)
}
