package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chanlock/chanlock/task"
)

func TestCase_Name(t *testing.T) {
	assert.Equal(t, "pingpong", task.PingPong.Name())
	assert.Equal(t, "pingpong-d", task.PingPongD.Name())

	withExt := task.Case{Path: "resources/gen/gen1.yaml"}
	assert.Equal(t, "gen1", withExt.Name())
}

func TestByName_FindsAcrossBatteries(t *testing.T) {
	c, ok := task.ByName("GEN1")
	assert.True(t, ok)
	assert.Equal(t, task.Gen1, c)

	c, ok = task.ByName("pipeline-d")
	assert.True(t, ok)
	assert.Equal(t, task.PipelineD, c)

	_, ok = task.ByName("nope")
	assert.False(t, ok)
}

func TestBatteries_UseDefaultIdentifier(t *testing.T) {
	for _, c := range append(append([]task.Case{}, task.Experiment1...), task.Experiment2...) {
		assert.Equal(t, task.DefaultIdentifier, c.Identifier, c.Path)
	}
}
