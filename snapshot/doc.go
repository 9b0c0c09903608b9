// Package snapshot writes a simplified problem instance as plain text for the
// trace visualizer.
//
// The format is DIMACS-like:
//
//	c <source instance>
//	p cnf <variables> <clauses>
//	1 -2 0
//	...
//
// Each clause line lists signed literals separated by spaces and ends with the
// 0 sentinel. A snapshot is written once, completely, and closed; it has no
// relation to the lifetime of a trace.
package snapshot
