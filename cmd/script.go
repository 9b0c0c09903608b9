package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/blockberries/satrace/trace"
	"github.com/blockberries/satrace/types"
)

// replayScript feeds every event line of r to rec and returns the number of
// lines read. It stops at the first failing line or when ctx is done.
func replayScript(ctx context.Context, r io.Reader, rec trace.Recorder) (int, error) {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return line, err
		}

		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := replayLine(strings.Fields(text), rec); err != nil {
			return line, fmt.Errorf("script line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return line, fmt.Errorf("failed to read script: %w", err)
	}
	return line, nil
}

func replayLine(fields []string, rec trace.Recorder) error {
	if len(fields[0]) != 1 {
		return fmt.Errorf("unknown event %q", fields[0])
	}
	tag := trace.Tag(fields[0][0])
	args := fields[1:]

	switch tag {
	case trace.TagRestart:
		if len(args) != 0 {
			return fmt.Errorf("restart takes no argument")
		}
		return rec.Restart()

	case trace.TagLearnClause:
		if len(args) < 1 {
			return fmt.Errorf("learn-clause needs a clause id")
		}
		id, err := parseInt32(args[0])
		if err != nil {
			return err
		}
		clause := make(types.Clause, 0, len(args)-1)
		for _, a := range args[1:] {
			lit, err := parseLiteral(a)
			if err != nil {
				return err
			}
			clause = append(clause, lit)
		}
		return rec.LearnClause(id, clause)
	}

	if tag == trace.TagClauseSize || tag == trace.TagClauseLiteral {
		return fmt.Errorf("%s is only written as part of a learn-clause line", tag.Name())
	}
	if len(args) != 1 {
		return fmt.Errorf("%s takes exactly one argument", tag.Name())
	}

	switch tag {
	case trace.TagPushLevel, trace.TagBacktrack, trace.TagUnlearnClause:
		n, err := parseInt32(args[0])
		if err != nil {
			return err
		}
		switch tag {
		case trace.TagPushLevel:
			return rec.PushLevel(n)
		case trace.TagBacktrack:
			return rec.Backtrack(n)
		default:
			return rec.UnlearnClause(n)
		}

	case trace.TagBranch, trace.TagSetVariable, trace.TagConflict:
		lit, err := parseLiteral(args[0])
		if err != nil {
			return err
		}
		switch tag {
		case trace.TagBranch:
			return rec.Branch(lit)
		case trace.TagSetVariable:
			return rec.SetVariable(lit)
		default:
			return rec.Conflict(lit)
		}
	}

	return fmt.Errorf("unknown event %q", fields[0])
}

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return int32(n), nil
}

func parseLiteral(s string) (types.Literal, error) {
	n, err := parseInt32(s)
	if err != nil {
		return types.Literal{}, err
	}
	return types.DecodeLiteral(n)
}
