package snapshot

import (
	"fmt"
	"io"
	"os"

	"github.com/go-air/gini/dimacs"
	"github.com/go-air/gini/z"

	"github.com/blockberries/satrace/types"
)

// ReadDIMACS parses a DIMACS CNF problem. The "p cnf" line must come first;
// without it the variable count is gini's default capacity.
func ReadDIMACS(r io.Reader) (types.Instance, error) {
	b := &instanceBuilder{}
	if err := dimacs.ReadCnf(r, b); err != nil {
		return types.Instance{}, fmt.Errorf("failed to parse DIMACS: %w", err)
	}
	if b.err != nil {
		return types.Instance{}, b.err
	}
	if len(b.clause) > 0 {
		// Last clause without a 0 terminator.
		b.inst.Clauses = append(b.inst.Clauses, b.clause)
	}
	if err := b.inst.Validate(); err != nil {
		return types.Instance{}, err
	}
	return b.inst, nil
}

// ReadDIMACSFile parses the DIMACS file at path.
func ReadDIMACSFile(path string) (types.Instance, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.Instance{}, fmt.Errorf("failed to open DIMACS file: %w", err)
	}
	defer file.Close()

	return ReadDIMACS(file)
}

// instanceBuilder implements dimacs.CnfVis
type instanceBuilder struct {
	inst   types.Instance
	clause types.Clause
	err    error
}

func (b *instanceBuilder) Init(v, c int) {
	b.inst.NumVars = v
	b.inst.Clauses = make([]types.Clause, 0, c)
}

func (b *instanceBuilder) Add(m z.Lit) {
	if b.err != nil {
		return
	}
	if m == z.LitNull {
		b.inst.Clauses = append(b.inst.Clauses, b.clause)
		b.clause = nil
		return
	}
	lit, err := types.FromLit(m)
	if err != nil {
		b.err = err
		return
	}
	b.clause = append(b.clause, lit)
}

func (b *instanceBuilder) Eof() {}

var _ dimacs.CnfVis = (*instanceBuilder)(nil)
