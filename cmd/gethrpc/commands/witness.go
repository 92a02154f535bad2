package commands

import (
	"github.com/airchains-network/gethrpc/db"
	"github.com/airchains-network/gethrpc/internal/witness"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var WitnessCmd = &cobra.Command{
	Use:   "witness [number|tag]",
	Short: "Fetch the block, traces, code and proofs needed to prove a block",
	Long: `Fetch the block, its struct logger and prestate traces, and the code and
storage proofs of every touched account at the parent block. The witness is
written to the witness database unless --no-store is given, and printed with
--print.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		number, err := blockArg(cmd, args)
		if err != nil {
			return err
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		opts := []witness.Option{witness.WithConcurrency(concurrency)}

		if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
			store, err := db.OpenWitnessStore(s.cfg.Database.WitnessDBPath)
			if err != nil {
				return err
			}
			defer store.Close()
			opts = append(opts, witness.WithStore(store))
		}

		w, err := witness.NewFetcher(s.client, s.log, opts...).Fetch(cmd.Context(), number)
		if err != nil {
			return err
		}

		steps := 0
		for _, trace := range w.Traces {
			steps += len(trace.StructLogs)
		}
		s.log.Infof("Block %s: %s transactions, %s steps, %s accounts",
			w.Block.Number.ToInt(),
			humanize.Comma(int64(len(w.Block.Transactions))),
			humanize.Comma(int64(steps)),
			humanize.Comma(int64(len(w.Proofs))))

		if printOut, _ := cmd.Flags().GetBool("print"); printOut {
			return printJSON(cmd, w)
		}
		return nil
	}),
}

func init() {
	WitnessCmd.Flags().Int("concurrency", 8, "Account requests in flight")
	WitnessCmd.Flags().Bool("no-store", false, "Do not write the witness database")
	WitnessCmd.Flags().Bool("print", false, "Print the witness as JSON")
}
