package main

import (
	"os"

	"github.com/airchains-network/gethrpc/cmd/gethrpc/commands"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gethrpc",
		Short: "Typed client for geth and anvil JSON-RPC nodes",
		Long: `Query blocks, transactions, traces, code and proofs from a geth node, steer a
forked anvil dev node, and collect block witnesses for offline proving.`,
		SilenceUsage: true,
	}
	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.CoinbaseCmd)
	rootCmd.AddCommand(commands.ChainIDCmd)
	rootCmd.AddCommand(commands.BlockCmd)
	rootCmd.AddCommand(commands.TxCmd)
	rootCmd.AddCommand(commands.CodeCmd)
	rootCmd.AddCommand(commands.ProofCmd)
	rootCmd.AddCommand(commands.TraceCmd)
	rootCmd.AddCommand(commands.ForkCmd)
	rootCmd.AddCommand(commands.MinerCmd)
	rootCmd.AddCommand(commands.SendRawCmd)
	rootCmd.AddCommand(commands.WitnessCmd)
	rootCmd.AddCommand(commands.ReplayCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
