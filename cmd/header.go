package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/satrace/trace"
)

var headerCmd = &cobra.Command{
	Use:   "header <trace>",
	Short: "Print the trace header; fails if the trace was never finalized",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := trace.Open(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		h := r.Header()
		if h.IsPlaceholder() {
			return fmt.Errorf("%s: header is still the placeholder, trace was not finalized", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "header_size=%d restart_count=%d\n", h.HeaderSize, h.RestartCount)
		return nil
	},
}
