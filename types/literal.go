package types

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-air/gini/z"
)

// ErrInvalidLiteral is returned for literals whose variable is not a positive
// int32, and for the encoded value 0.
var ErrInvalidLiteral = errors.New("invalid literal")

// Literal is a variable reference together with its polarity.
type Literal struct {
	Var     int32
	Negated bool
}

// NewLiteral creates a Literal, returning an error if v is not a valid variable.
func NewLiteral(v int32, negated bool) (Literal, error) {
	l := Literal{Var: v, Negated: negated}
	if err := l.Validate(); err != nil {
		return Literal{}, err
	}
	return l, nil
}

// Pos returns the positive literal of variable v.
func Pos(v int32) Literal {
	return Literal{Var: v}
}

// Neg returns the negated literal of variable v.
func Neg(v int32) Literal {
	return Literal{Var: v, Negated: true}
}

// Validate checks that the variable is a positive identifier.
func (l Literal) Validate() error {
	if l.Var <= 0 {
		return fmt.Errorf("%w: variable %d", ErrInvalidLiteral, l.Var)
	}
	return nil
}

// Encode returns the signed integer form: Var, or -Var when negated.
func (l Literal) Encode() int32 {
	if l.Negated {
		return -l.Var
	}
	return l.Var
}

// DecodeLiteral inverts Encode.
// math.MinInt32 has no positive counterpart and is rejected along with 0.
func DecodeLiteral(code int32) (Literal, error) {
	switch {
	case code == 0 || code == math.MinInt32:
		return Literal{}, fmt.Errorf("%w: code %d", ErrInvalidLiteral, code)
	case code < 0:
		return Literal{Var: -code, Negated: true}, nil
	default:
		return Literal{Var: code}, nil
	}
}

// Not returns the literal of the same variable with opposite polarity.
func (l Literal) Not() Literal {
	return Literal{Var: l.Var, Negated: !l.Negated}
}

// String returns the encoded integer in decimal.
func (l Literal) String() string {
	return strconv.FormatInt(int64(l.Encode()), 10)
}

// Lit converts the literal into gini's representation.
func (l Literal) Lit() z.Lit {
	return z.Dimacs2Lit(int(l.Encode()))
}

// FromLit converts a gini literal. z.LitNull and variables beyond the int32
// range are rejected.
func FromLit(m z.Lit) (Literal, error) {
	d := m.Dimacs()
	if d > math.MaxInt32 || d < -math.MaxInt32 {
		return Literal{}, fmt.Errorf("%w: gini literal %d out of range", ErrInvalidLiteral, d)
	}
	return DecodeLiteral(int32(d))
}
