// Copyright 2024 The mbs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	buildDirectory string
	runNode        string
	dumpGraphviz   bool
	dumpSVG        bool
	configureOnly  bool
	verbose        bool
	executorMode   string
)

// exitCode carries a build slave's subprocess exit code out of RunE,
// since cobra only distinguishes "error" from "no error" and a slave
// failure's exit status must propagate unchanged to ninja.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "mbs [manifest]",
	Short: "Lower a project manifest to a build graph and drive ninja through it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(verbose)
		defer func() { _ = log.Sync() }()

		if runNode != "" {
			code, err := runSlave(cmd.Context(), runNode, log)
			exitCode = code
			return err
		}

		manifestPath := "project.yml"
		if len(args) > 0 {
			manifestPath = args[0]
		}
		return runBuild(cmd.Context(), manifestPath, log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&buildDirectory, "build-directory", "build", "root of all generated artefacts")
	rootCmd.PersistentFlags().StringVar(&runNode, "run-node", "", "internal slave mode: act as a slave for <long_name>^<hash>")
	rootCmd.PersistentFlags().BoolVar(&dumpGraphviz, "dump-graphviz", false, "write a GraphViz dot of the action graph to stdout and exit")
	rootCmd.PersistentFlags().BoolVar(&dumpSVG, "dump-svg", false, "write an SVG of the action graph to stdout and exit (requires `dot` on PATH)")
	rootCmd.PersistentFlags().BoolVar(&configureOnly, "configure-only", false, "build the graph and write the ninja manifest, but do not invoke ninja")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", os.Getenv("CRAFTR_VERBOSE") == "true", "print the full command list before executing each node")
	rootCmd.PersistentFlags().StringVar(&executorMode, "executor", "ninja", "how to run the build graph: \"ninja\" (default, falls back to \"direct\" if no usable ninja binary can be found or downloaded) or \"direct\" (run the graph in-process, skipping ninja entirely)")
	rootCmd.AddCommand(watchCmd)
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
