// Package types defines the problem-level values shared by the trace recorder
// and the snapshot writer.
//
// # Literals
//
// A Literal is a 1-based variable identifier plus a negation flag. On the wire
// (both in the binary trace and in the textual snapshot) a literal is a single
// signed integer: the magnitude is the variable, a negative sign means negated.
// Variable 0 never appears as a literal.
//
//	Literal{Var: 5}                -> 5
//	Literal{Var: 3, Negated: true} -> -3
//
// Literals convert losslessly to and from gini's z.Lit, so a host search
// procedure built on github.com/go-air/gini can report its own literals
// without a translation table.
//
// # Clauses and Instances
//
// A Clause is an ordered slice of literals. Order is caller-defined and is
// preserved verbatim everywhere it is serialized. An Instance is a clause list
// plus the number of variables it ranges over.
package types
