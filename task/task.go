// Package task declares the verification cases: a case pairs a project
// manifest path with the channel identifier naming the host constructs the
// abstraction recognizes, plus the two predefined experiment batteries the
// CLI runs.
package task

import (
	"path/filepath"
	"strings"

	"github.com/chanlock/chanlock/project"
)

// Case is one verification target.
type Case struct {
	Path       string
	Identifier project.ChannelIdentifier
}

// Name is the case's file stem, used for banners and SINGLE lookup.
func (c Case) Name() string {
	base := filepath.Base(c.Path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DefaultIdentifier names the stock host constructs.
var DefaultIdentifier = project.ChannelIdentifier{
	ChannelName: "Channel",
	ReceiveName: "Receive",
	SendName:    "Send",
}

func predefined(path string) Case {
	return Case{Path: path, Identifier: DefaultIdentifier}
}

// The predefined cases. The -d variants are deliberately faulty copies.
var (
	PingPong  = predefined("resources/cases/pingpong/pingpong")
	PingPongD = predefined("resources/cases/pingpong/pingpong-d")
	Pipeline  = predefined("resources/cases/pipeline/pipeline")
	PipelineD = predefined("resources/cases/pipeline/pipeline-d")
	Guarded   = predefined("resources/cases/guarded/guarded")
	GuardedL  = predefined("resources/cases/guarded/guarded-l")

	Gen1 = predefined("resources/gen/gen1")
	Gen2 = predefined("resources/gen/gen2")
)

// Experiment1 exercises the hand-written cases and their faulty twins.
var Experiment1 = []Case{PingPong, Pipeline, Guarded, PingPongD, PipelineD, GuardedL}

// Experiment2 exercises the generated cases.
var Experiment2 = []Case{Gen1, Gen2}

// ByName finds a predefined case by its (case-insensitive) name.
func ByName(name string) (Case, bool) {
	name = strings.ToLower(name)
	for _, c := range append(append([]Case{}, Experiment1...), Experiment2...) {
		if strings.ToLower(c.Name()) == name {
			return c, true
		}
	}

	return Case{}, false
}
