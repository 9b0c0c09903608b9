package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blockberries/satrace/types"
)

const (
	snapshotFilePerm = 0644
	snapshotDirPerm  = 0755
)

// Write writes inst to path. The content goes to a temporary file in the same
// directory which is renamed over path once complete, so path never holds a
// partial snapshot.
func Write(path, source string, inst types.Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, snapshotDirPerm); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := Encode(tmp, source, inst); err != nil {
		discard()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Chmod(snapshotFilePerm); err != nil {
		discard()
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// Encode writes the snapshot text for inst to w. inst is not validated.
func Encode(w io.Writer, source string, inst types.Instance) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("c ")
	bw.WriteString(sourceLine(source))
	bw.WriteByte('\n')
	fmt.Fprintf(bw, "p cnf %d %d\n", inst.NumVars, inst.NumClauses())

	var num []byte
	for _, clause := range inst.Clauses {
		for _, lit := range clause {
			num = strconv.AppendInt(num[:0], int64(lit.Encode()), 10)
			bw.Write(num)
			bw.WriteByte(' ')
		}
		bw.WriteString("0\n")
	}

	// bufio.Writer keeps the first error; Flush reports it.
	return bw.Flush()
}

// sourceLine keeps the source identifier on a single line.
func sourceLine(source string) string {
	return strings.Join(strings.Fields(source), " ")
}
