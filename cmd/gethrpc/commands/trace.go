package commands

import (
	"github.com/spf13/cobra"
)

// TraceCmd groups the debug_trace* commands.
var TraceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Trace transactions and blocks with the struct logger or the prestate tracer",
}

var traceTxCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "Struct logger trace of a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		hash, err := parseHash(args[0])
		if err != nil {
			return err
		}
		trace, err := s.client.TraceTransaction(cmd.Context(), hash)
		if err != nil {
			return err
		}
		s.log.Debugf("Traced %d steps", len(trace.StructLogs))
		return printJSON(cmd, trace)
	}),
}

var traceBlockCmd = &cobra.Command{
	Use:   "block [hash|number|tag]",
	Short: "Struct logger traces of every transaction in a block",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if len(args) == 1 && isHash(args[0]) {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			traces, err := s.client.TraceBlockByHash(cmd.Context(), hash)
			if err != nil {
				return err
			}
			return printJSON(cmd, traces)
		}

		number, err := blockArg(cmd, args)
		if err != nil {
			return err
		}
		traces, err := s.client.TraceBlockByNumber(cmd.Context(), number)
		if err != nil {
			return err
		}
		return printJSON(cmd, traces)
	}),
}

var tracePrestateCmd = &cobra.Command{
	Use:   "prestate <tx hash>",
	Short: "Prestate of every account a transaction touches",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		hash, err := parseHash(args[0])
		if err != nil {
			return err
		}
		prestate, err := s.client.TraceTransactionPrestate(cmd.Context(), hash)
		if err != nil {
			return err
		}
		return printJSON(cmd, prestate)
	}),
}

var traceBlockPrestateCmd = &cobra.Command{
	Use:   "block-prestate <block hash>",
	Short: "Prestates of every transaction in a block",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		hash, err := parseHash(args[0])
		if err != nil {
			return err
		}
		prestates, err := s.client.TraceBlockPrestateByHash(cmd.Context(), hash)
		if err != nil {
			return err
		}
		return printJSON(cmd, prestates)
	}),
}

func init() {
	TraceCmd.AddCommand(traceTxCmd, traceBlockCmd, tracePrestateCmd, traceBlockPrestateCmd)
}
