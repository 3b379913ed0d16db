// Package core defines the shared data model of the advisory engine: queries,
// dispatch plans, specialist turns, tool results, quality verdicts, sessions
// and the error taxonomy. It is a leaf package: every other package depends
// on core, core depends on nothing but the standard library and uuid.
package core
