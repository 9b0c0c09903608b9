package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInstance is returned when an instance references variables
// outside its declared range or has a negative variable count.
var ErrInvalidInstance = errors.New("invalid instance")

// Clause is an ordered disjunction of literals.
type Clause []Literal

// Validate checks every literal of the clause.
func (c Clause) Validate() error {
	for i, lit := range c {
		if err := lit.Validate(); err != nil {
			return fmt.Errorf("literal %d: %w", i, err)
		}
	}
	return nil
}

// String renders the clause as space separated encoded literals followed by
// the 0 terminator, e.g. "1 -2 0".
func (c Clause) String() string {
	var sb strings.Builder
	for _, lit := range c {
		sb.WriteString(lit.String())
		sb.WriteByte(' ')
	}
	sb.WriteByte('0')
	return sb.String()
}

// Instance is a CNF problem: a clause list over variables 1..NumVars.
type Instance struct {
	NumVars int
	Clauses []Clause
}

// Validate checks that the instance is well formed.
func (inst Instance) Validate() error {
	if inst.NumVars < 0 {
		return fmt.Errorf("%w: negative variable count %d", ErrInvalidInstance, inst.NumVars)
	}
	for i, c := range inst.Clauses {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: clause %d: %w", ErrInvalidInstance, i, err)
		}
		for _, lit := range c {
			if int(lit.Var) > inst.NumVars {
				return fmt.Errorf("%w: clause %d references variable %d beyond %d",
					ErrInvalidInstance, i, lit.Var, inst.NumVars)
			}
		}
	}
	return nil
}

// NumClauses returns the number of clauses.
func (inst Instance) NumClauses() int {
	return len(inst.Clauses)
}
