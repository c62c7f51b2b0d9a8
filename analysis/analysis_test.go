package analysis_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanlock/chanlock/analysis"
	"github.com/chanlock/chanlock/diag"
	"github.com/chanlock/chanlock/project"
	"github.com/chanlock/chanlock/smt"
	"github.com/chanlock/chanlock/task"
)

// extract loads a predefined case relative to this package directory.
func extract(t *testing.T, path string) *project.SessionComplex {
	t.Helper()
	complex, err := project.NewLoader().Extract("../"+path, task.DefaultIdentifier)
	require.NoError(t, err)

	return complex
}

func TestVerify_PingPong(t *testing.T) {
	complex := extract(t, task.PingPong.Path)
	assert.Empty(t, analysis.Verify(complex, smt.NewSolver()))
}

func TestVerify_PingPongDeadlock(t *testing.T) {
	complex := extract(t, task.PingPongD.Path)
	faults := analysis.Verify(complex, smt.NewSolver())
	require.Len(t, faults, 1)
	assert.True(t, errors.Is(faults[0], diag.ErrDanglingSending))
}

func TestVerify_Pipeline(t *testing.T) {
	complex := extract(t, task.Pipeline.Path)
	assert.Empty(t, analysis.Verify(complex, smt.NewSolver()))
}

func TestVerify_PipelineMiswired(t *testing.T) {
	complex := extract(t, task.PipelineD.Path)
	faults := analysis.Verify(complex, smt.NewSolver())
	require.Len(t, faults, 1)
	assert.True(t, errors.Is(faults[0], diag.ErrDanglingSending))
}

func TestVerify_GuardedLoop(t *testing.T) {
	complex := extract(t, task.Guarded.Path)
	assert.Empty(t, analysis.Verify(complex, smt.NewSolver()))
}

func TestVerify_LiveLockedIdler(t *testing.T) {
	complex := extract(t, task.GuardedL.Path)
	faults := analysis.Verify(complex, smt.NewSolver())
	require.Len(t, faults, 1)
	assert.True(t, errors.Is(faults[0], diag.ErrLiveLock))

	var livelock *diag.LiveLock
	require.True(t, errors.As(faults[0], &livelock))
	assert.Equal(t, "top/idle", livelock.Module.Key())
}

func TestVerify_Fanout(t *testing.T) {
	complex := extract(t, task.Gen1.Path)
	assert.Empty(t, analysis.Verify(complex, smt.NewSolver()))
}

// The two-level case: the inner scope synthesizes first, the memoized
// machine is respecialized onto the outer scope's channels, and the formal
// ports forwarded through the wrapper match up with the outer peer.
func TestVerify_HierarchicalReboundChannels(t *testing.T) {
	complex := extract(t, task.Gen2.Path)
	require.Len(t, complex.DependencyForest, 1)
	assert.Empty(t, analysis.Verify(complex, smt.NewSolver()))
}

func TestAnalyzeWith_ReportsExtractionFailure(t *testing.T) {
	c := task.Case{Path: "no/such/manifest", Identifier: task.DefaultIdentifier}
	ok := analysis.AnalyzeWith(c, project.NewLoader(), smt.NewSolver())
	assert.False(t, ok)
}

func TestAnalyzeWith_VerifiedProject(t *testing.T) {
	c := task.Case{Path: "../" + task.PingPong.Path, Identifier: task.DefaultIdentifier}
	ok := analysis.AnalyzeWith(c, project.NewLoader(), smt.NewSolver())
	assert.True(t, ok)
}
