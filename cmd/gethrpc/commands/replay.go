package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/airchains-network/gethrpc/internal/replay"
	"github.com/spf13/cobra"
)

var ReplayCmd = &cobra.Command{
	Use:   "replay [raw tx hex...]",
	Short: "Replay signed transactions on a forked anvil node, one block each",
	Long: `Reset the dev node to the configured fork, then submit every raw transaction
in order, setting the sender nonce first and mining a block after each one.
Transactions come from the arguments and from --file, one hex string per line.`,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		fork, err := forkFromFlags(cmd, s)
		if err != nil {
			return err
		}
		if baseFee, _ := cmd.Flags().GetString("base-fee"); baseFee != "" {
			fork.BaseFee, err = parseWord(baseFee)
			if err != nil {
				return fmt.Errorf("invalid base fee %q: %w", baseFee, err)
			}
		}

		replayer := replay.NewReplayer(s.client, s.log)
		for i, txHex := range args {
			if err := replayer.AddTxHex(txHex); err != nil {
				return fmt.Errorf("argument %d: %w", i, err)
			}
		}
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			if err := addTxsFromFile(replayer, file); err != nil {
				return err
			}
		}
		if replayer.Pending() == 0 {
			return fmt.Errorf("no transactions to replay")
		}

		hashes, err := replayer.Replay(cmd.Context(), fork)
		for _, hash := range hashes {
			fmt.Fprintln(cmd.OutOrStdout(), hash.Hex())
		}
		return err
	}),
}

func init() {
	ReplayCmd.Flags().String("file", "", "File with one raw transaction per line")
	ReplayCmd.Flags().String("base-fee", "", "Base fee of the first replayed block, in wei")
}

func addTxsFromFile(replayer *replay.Replayer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		txHex := strings.TrimSpace(scanner.Text())
		if txHex == "" || strings.HasPrefix(txHex, "#") {
			continue
		}
		if err := replayer.AddTxHex(txHex); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	return scanner.Err()
}

// forkFromFlags resolves the fork point from the config and the
// --upstream-url and --fork-block flags.
func forkFromFlags(cmd *cobra.Command, s *session) (replay.Fork, error) {
	fork := replay.Fork{
		UpstreamURL: s.cfg.Fork.UpstreamRPCURL,
		BlockNumber: s.cfg.Fork.BlockNumber,
	}
	if url, _ := cmd.Flags().GetString("upstream-url"); url != "" {
		fork.UpstreamURL = url
	}
	if cmd.Flags().Changed("fork-block") {
		fork.BlockNumber, _ = cmd.Flags().GetUint64("fork-block")
	}
	if fork.UpstreamURL == "" {
		return fork, fmt.Errorf("no upstream RPC URL, set [fork] upstream_rpc_url or --upstream-url")
	}
	return fork, nil
}
