package diag

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chanlock/chanlock/protocol"
)

// Sentinel targets for errors.Is.
var (
	// ErrExtraction marks a failed project extraction.
	ErrExtraction = errors.New("diag: project extraction failed")

	// ErrUnsolvableConstraints marks a solver "unknown" verdict.
	ErrUnsolvableConstraints = errors.New("diag: constraints unsolvable")

	// ErrDanglingSending marks an internal send with no reachable dual.
	ErrDanglingSending = errors.New("diag: dangling sending")

	// ErrDanglingReceiving marks an internal receive with no reachable dual.
	ErrDanglingReceiving = errors.New("diag: dangling receiving")

	// ErrLiveLock marks an instance whose transitions are never exercised.
	ErrLiveLock = errors.New("diag: livelock")
)

// Action is one entry of an error trace: which instance performed which
// edge, rendered as text.
type Action struct {
	Subject     protocol.ModuleInstance
	Description string
}

// String renders "scope/instance: action".
func (a Action) String() string { return a.Subject.Key() + ": " + a.Description }

// ExtractionError wraps a failure of the extraction collaborator.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is matches ErrExtraction.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// UnsolvableConstraints carries the stringified assertions of a solver
// "unknown" verdict. It is a warning-level diagnostic: callers may proceed
// treating the feasibility as true, which keeps pruning sound.
type UnsolvableConstraints struct {
	Constraints []string
}

func (e *UnsolvableConstraints) Error() string {
	return fmt.Sprintf("solver returned unknown over %d constraints", len(e.Constraints))
}

// Is matches ErrUnsolvableConstraints.
func (e *UnsolvableConstraints) Is(target error) bool { return target == ErrUnsolvableConstraints }

// DanglingSending is a send whose channel has no reachable internal
// receiver. Trace is the step sequence that led to the configuration.
type DanglingSending struct {
	Trace    []Action
	Dangling Action
}

func (e *DanglingSending) Error() string {
	return "dangling sending: " + e.Dangling.String()
}

// Is matches ErrDanglingSending.
func (e *DanglingSending) Is(target error) bool { return target == ErrDanglingSending }

// DanglingReceiving is the receive-side dual of DanglingSending.
type DanglingReceiving struct {
	Trace    []Action
	Dangling Action
}

func (e *DanglingReceiving) Error() string {
	return "dangling receiving: " + e.Dangling.String()
}

// Is matches ErrDanglingReceiving.
func (e *DanglingReceiving) Is(target error) bool { return target == ErrDanglingReceiving }

// LiveLock names an instance none of whose transitions appear in any
// reachable step of the global product.
type LiveLock struct {
	Module protocol.ModuleInstance
}

func (e *LiveLock) Error() string {
	return "livelock: module " + e.Module.Key() + " cannot make progress"
}

// Is matches ErrLiveLock.
func (e *LiveLock) Is(target error) bool { return target == ErrLiveLock }

// Report renders err through the standard logger: warning level for the
// recoverable solver verdict, error level for fatal faults. Traces are
// emitted one line per action.
func Report(err error) {
	ReportTo(logrus.StandardLogger(), err)
}

// ReportTo renders err through the given logger.
func ReportTo(log *logrus.Logger, err error) {
	switch e := asFault(err).(type) {
	case *UnsolvableConstraints:
		log.WithField("constraints", e.Constraints).Warn(e.Error())
	case *DanglingSending:
		reportTrace(log, e.Trace)
		log.WithField("dangling", e.Dangling.String()).Error(e.Error())
	case *DanglingReceiving:
		reportTrace(log, e.Trace)
		log.WithField("dangling", e.Dangling.String()).Error(e.Error())
	case *LiveLock:
		log.WithField("module", e.Module.Key()).Error(e.Error())
	default:
		log.Error(err.Error())
	}
}

// asFault unwraps err down to the first typed fault, so wrapped
// propagation context does not hide the rendering.
func asFault(err error) error {
	var (
		unsolvable *UnsolvableConstraints
		sending    *DanglingSending
		receiving  *DanglingReceiving
		livelock   *LiveLock
	)
	switch {
	case errors.As(err, &unsolvable):
		return unsolvable
	case errors.As(err, &sending):
		return sending
	case errors.As(err, &receiving):
		return receiving
	case errors.As(err, &livelock):
		return livelock
	default:
		return err
	}
}

func reportTrace(log *logrus.Logger, trace []Action) {
	for i, a := range trace {
		log.WithField("step", i).Error("  " + a.String())
	}
}
