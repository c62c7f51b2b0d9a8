// Command chanlock verifies projects of channel-communicating hardware
// modules for unmatched sends, unmatched receives, and livelocks.
//
// Without arguments both experiment batteries run; rq1 and rq2 run one,
// single runs a predefined case by name, and check runs an ad-hoc manifest
// path with the default channel identifier.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chanlock/chanlock/analysis"
	"github.com/chanlock/chanlock/task"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   "chanlock",
		Short: "static deadlock and livelock verifier for channel-typed hardware modules",
		Args:  cobra.NoArgs,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
		Run: func(*cobra.Command, []string) {
			fmt.Println("Perform both experiments")
			runBattery(task.Experiment1)
			runBattery(task.Experiment2)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "rq1",
			Short: "run the hand-written case battery",
			Args:  cobra.NoArgs,
			Run:   func(*cobra.Command, []string) { runBattery(task.Experiment1) },
		},
		&cobra.Command{
			Use:   "rq2",
			Short: "run the generated case battery",
			Args:  cobra.NoArgs,
			Run:   func(*cobra.Command, []string) { runBattery(task.Experiment2) },
		},
		&cobra.Command{
			Use:   "single NAME",
			Short: "run one predefined case by name",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				c, ok := task.ByName(args[0])
				if !ok {
					return fmt.Errorf("unknown case name: %s", args[0])
				}
				analysis.Analyze(c)

				return nil
			},
		},
		&cobra.Command{
			Use:   "check PATH",
			Short: "run an ad-hoc manifest with the default channel identifier",
			Args:  cobra.ExactArgs(1),
			Run: func(_ *cobra.Command, args []string) {
				analysis.Analyze(task.Case{Path: args[0], Identifier: task.DefaultIdentifier})
			},
		},
	)

	return root
}

func runBattery(cases []task.Case) {
	for _, c := range cases {
		printBoxedName(c.Name())
		fmt.Println("-------------------")
		analysis.Analyze(c)
		fmt.Println("-------------------")
	}
}

func printBoxedName(name string) {
	line := "+" + strings.Repeat("-", len(name)) + "+"
	fmt.Println(line)
	fmt.Println("|" + name + "|")
	fmt.Println(line)
}
