package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

var CoinbaseCmd = &cobra.Command{
	Use:   "coinbase",
	Short: "Print the coinbase address of the node",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		coinbase, err := s.client.Coinbase(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), coinbase.Hex())
		return nil
	}),
}

var ChainIDCmd = &cobra.Command{
	Use:   "chain-id",
	Short: "Print the chain id",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		id, err := s.client.ChainID(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	}),
}

var BlockCmd = &cobra.Command{
	Use:   "block [hash|number|tag]",
	Short: "Print a block with its transactions",
	Long:  "Print a block with its transactions. Without an argument the block given by --block is printed.",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if len(args) == 1 && isHash(args[0]) {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			block, err := s.client.BlockByHash(cmd.Context(), hash)
			if err != nil {
				return err
			}
			return printJSON(cmd, block)
		}

		number, err := blockArg(cmd, args)
		if err != nil {
			return err
		}
		block, err := s.client.BlockByNumber(cmd.Context(), number)
		if err != nil {
			return err
		}
		return printJSON(cmd, block)
	}),
}

var TxCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "Print a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		hash, err := parseHash(args[0])
		if err != nil {
			return err
		}
		tx, err := s.client.TransactionByHash(cmd.Context(), hash)
		if err != nil {
			return err
		}
		return printJSON(cmd, tx)
	}),
}

var CodeCmd = &cobra.Command{
	Use:   "code <address>",
	Short: "Print the code of an account at --block",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		account, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		number, err := blockFlag(cmd)
		if err != nil {
			return err
		}
		code, err := s.client.Code(cmd.Context(), account, number)
		if err != nil {
			return err
		}
		s.log.Infof("Code of %s at %s: %s", account.Hex(), number, humanize.Bytes(uint64(len(code))))
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(code))
		return nil
	}),
}

var ProofCmd = &cobra.Command{
	Use:   "proof <address> [storage keys...]",
	Short: "Print the EIP-1186 proof of an account and storage keys at --block",
	Args:  cobra.MinimumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		account, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		keys := make([]*uint256.Int, 0, len(args)-1)
		for _, arg := range args[1:] {
			key, err := parseWord(arg)
			if err != nil {
				return fmt.Errorf("invalid storage key %q: %w", arg, err)
			}
			keys = append(keys, key)
		}
		number, err := blockFlag(cmd)
		if err != nil {
			return err
		}
		proof, err := s.client.Proof(cmd.Context(), account, keys, number)
		if err != nil {
			return err
		}
		return printJSON(cmd, proof)
	}),
}
