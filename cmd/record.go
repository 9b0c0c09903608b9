package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blockberries/satrace/metrics"
	"github.com/blockberries/satrace/session"
	"github.com/blockberries/satrace/snapshot"
)

var (
	recordOutput   string
	recordInstance string
	recordMetrics  string
)

var recordCmd = &cobra.Command{
	Use:   "record <script>",
	Short: "Write a trace by replaying an event script",
	Long: `Record drives the trace recorder from a line oriented event script, one
event per line:

  > 1          push decision level 1
  B 5          branch on 5
  + -3         assign -3
  C 5          conflict on 5
  < 0          backtrack to level 0
  R            restart
  L 7 1 -2     learn clause 7 = (1 -2)
  U 7          unlearn clause 7

Lines starting with # are ignored. With --instance the DIMACS problem is also
written as the simplified snapshot.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := session.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if recordOutput != "" {
			base := session.ConfigForOutput(recordOutput)
			cfg.TracePath = base.TracePath
			cfg.SnapshotPath = base.SnapshotPath
		}
		if cfg.Source == "" {
			cfg.Source = recordInstance
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		collector := metrics.NewCollector(reg)

		err = session.Run(ctx, cfg, func(ctx context.Context, s *session.Session) error {
			if recordInstance != "" {
				inst, err := snapshot.ReadDIMACSFile(recordInstance)
				if err != nil {
					return err
				}
				if err := s.WriteSnapshot(inst); err != nil {
					return err
				}
			}
			return recordScript(ctx, args[0], s)
		}, session.WithLogger(logger), session.WithMetrics(collector))
		if err != nil {
			return err
		}

		if recordMetrics != "" {
			if err := prometheus.WriteToTextfile(recordMetrics, reg); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
		}
		return nil
	},
}

func recordScript(ctx context.Context, path string, s *session.Session) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer file.Close()

	n, err := replayScript(ctx, file, s.Recorder())
	if err != nil {
		return err
	}
	logger.Debug("script replayed", zap.String("script", path), zap.Int("lines", n))
	return nil
}

func init() {
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "Output base name (writes <base>.trace and <base>.simplified)")
	recordCmd.Flags().StringVar(&recordInstance, "instance", "", "DIMACS problem to write as the simplified snapshot")
	recordCmd.Flags().StringVar(&recordMetrics, "metrics-out", "", "Write Prometheus metrics in text format to this file")
}
