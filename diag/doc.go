// Package diag defines the verification faults and their reporting.
//
// Faults are plain error values. Each typed fault matches a package
// sentinel under errors.Is, so callers can branch on kind without
// unpacking:
//
//	ErrExtraction            - the project could not be lifted into protocols.
//	ErrUnsolvableConstraints - the solver answered unknown (recoverable).
//	ErrDanglingSending       - an internal send has no reachable dual.
//	ErrDanglingReceiving     - an internal receive has no reachable dual.
//	ErrLiveLock              - an instance's transitions are never exercised.
//
// Report writes a human-readable rendering through logrus: warning level for
// the recoverable solver verdict, error level for everything fatal.
package diag
