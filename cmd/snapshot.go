package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blockberries/satrace/snapshot"
)

var snapshotSource string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <problem.cnf> <output>",
	Short: "Write the simplified snapshot of a DIMACS problem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := snapshot.ReadDIMACSFile(args[0])
		if err != nil {
			return err
		}

		source := snapshotSource
		if source == "" {
			source = args[0]
		}
		if err := snapshot.Write(args[1], source, inst); err != nil {
			return err
		}

		logger.Info("simplified problem written",
			zap.String("path", args[1]),
			zap.Int("variables", inst.NumVars),
			zap.Int("clauses", inst.NumClauses()))
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotSource, "source", "", "Source name for the header line (defaults to the input path)")
}
