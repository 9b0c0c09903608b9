package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blockberries/satrace/trace"
)

var dumpNoColor bool

var dumpCmd = &cobra.Command{
	Use:   "dump <trace>",
	Short: "Print the header and every event of a trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if dumpNoColor {
			color.NoColor = true
		}

		r, err := trace.Open(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		return dumpTrace(cmd.OutOrStdout(), r)
	},
}

var tagColors = map[trace.Tag]*color.Color{
	trace.TagPushLevel:     color.New(color.FgBlue),
	trace.TagBacktrack:     color.New(color.FgBlue),
	trace.TagBranch:        color.New(color.FgGreen, color.Bold),
	trace.TagSetVariable:   color.New(color.FgGreen),
	trace.TagConflict:      color.New(color.FgRed, color.Bold),
	trace.TagRestart:       color.New(color.FgMagenta, color.Bold),
	trace.TagLearnClause:   color.New(color.FgYellow),
	trace.TagClauseSize:    color.New(color.FgYellow),
	trace.TagClauseLiteral: color.New(color.FgYellow),
	trace.TagUnlearnClause: color.New(color.FgCyan),
}

func dumpTrace(w io.Writer, r *trace.Reader) error {
	printHeader(w, r.Header())

	for i := 0; ; i++ {
		ev, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		tag := tagColors[ev.Tag].Sprintf("%c", byte(ev.Tag))
		fmt.Fprintf(w, "%8d  %s %11d  %s\n", i, tag, ev.Payload, ev.Tag.Name())
	}
}

func printHeader(w io.Writer, h trace.Header) {
	if h.IsPlaceholder() {
		fmt.Fprintln(w, color.RedString("header: not finalized"))
		return
	}
	fmt.Fprintf(w, "header: size=%d restarts=%d\n", h.HeaderSize, h.RestartCount)
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpNoColor, "no-color", false, "Disable colored output")
}
