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

// Package slave implements the behaviour a build slave applies to one
// BuildNode: prepare output directories, overlay environment and cwd,
// execute its commands sequentially, and verify declared outputs
// afterwards. The CLI's --run-node mode (which fetches its node from
// internal/actionserver) and internal/executor both drive a build through
// this package; only how they get handed a node differs (IPC round-trip
// vs direct in-process dispatch).
package slave

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/craftr-build/mbs/internal/graph"
	"go.uber.org/zap"
)

// StaleNodeError is returned when the hash a caller expects does not match
// the node currently on record — the manifest is stale relative to the
// build graph that produced it.
type StaleNodeError struct {
	LongName   string
	Want, Got string
}

func (e *StaleNodeError) Error() string {
	return fmt.Sprintf("slave: %s: stale hash, manifest expects %s but graph has %s", e.LongName, e.Want, e.Got)
}

// CommandError reports a non-zero exit (or an exec failure) from one of a
// node's commands, with the full command list so the caller can print it
// with the failing entry highlighted.
type CommandError struct {
	LongName   string
	FailedIdx  int
	Commands   [][]string
	Cwd        string
	Environ    map[string]string
	ExitCode   int
	Underlying error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("slave: %s: command %d failed: %v", e.LongName, e.FailedIdx, e.Underlying)
}

// MissingOutputError reports a required output file absent after an
// otherwise-successful run — a common real bug: the tool exited zero but
// didn't actually write what it promised.
type MissingOutputError struct {
	LongName string
	Path     string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("slave: %s: declared output %q missing after successful run", e.LongName, e.Path)
}

// Run executes n's commands sequentially against its declared cwd and
// environment overlay, then verifies its declared outputs. log receives
// the full command list before execution when verbose is true, and
// always receives warnings for missing optional outputs.
func Run(ctx context.Context, n *graph.BuildNode, verbose bool, log *zap.Logger) error {
	for _, dir := range outputDirs(n.OutputFiles) {
		if err := os.MkdirAll(filepath.Join(n.Cwd, dir), 0o755); err != nil {
			return fmt.Errorf("slave: %s: %w", n.LongName, err)
		}
	}

	commands := make([][]string, len(n.Commands))
	for i, rawArgv := range n.Commands {
		commands[i] = substituteTokens(rawArgv, n)
	}

	if verbose {
		log.Info("running commands", zap.String("node", n.LongName), zap.Any("commands", commands))
	}

	for i, argv := range commands {
		if err := runOne(ctx, n, argv); err != nil {
			printFailure(log, n, i, err)
			exitCode, underlying := classify(err)
			return &CommandError{
				LongName: n.LongName, FailedIdx: i, Commands: commands,
				Cwd: n.Cwd, Environ: n.Environ, ExitCode: exitCode, Underlying: underlying,
			}
		}
	}

	for _, out := range n.OutputFiles {
		if _, err := os.Stat(filepath.Join(n.Cwd, out)); err != nil {
			if n.OptionalOutputs[out] {
				log.Warn("optional output missing after successful run", zap.String("node", n.LongName), zap.String("path", out))
				continue
			}
			return &MissingOutputError{LongName: n.LongName, Path: out}
		}
	}
	return nil
}

var (
	outputTagToken = regexp.MustCompile(`\$\{@[A-Za-z_][A-Za-z0-9_]*\}`)
	inputTagToken  = regexp.MustCompile(`\$\{<[A-Za-z_][A-Za-z0-9_]*\}`)
)

// substituteTokens resolves the per-node placeholders an adapter's
// GetCompileCommand/GetLinkCommand leaves unexpanded (see
// internal/traits): "${@tag}" becomes n's output files and "${<tag}" its
// input files, regardless of tag name — a node only ever has the one set
// of inputs/outputs it was built with, so which tag the adapter chose
// does not matter once the graph has flattened down to a single node.
func substituteTokens(argv []string, n *graph.BuildNode) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		arg = outputTagToken.ReplaceAllString(arg, strings.Join(n.OutputFiles, " "))
		arg = inputTagToken.ReplaceAllString(arg, strings.Join(n.InputFiles, " "))
		out[i] = arg
	}
	return out
}

func outputDirs(outputs []string) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, out := range outputs {
		dir := filepath.Dir(out)
		if dir == "." || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

func runOne(ctx context.Context, n *graph.BuildNode, argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = n.Cwd
	cmd.Env = overlayEnviron(n.Environ)
	if n.Console {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setProcAttr(cmd, n.Console)
	return cmd.Run()
}

func overlayEnviron(overlay map[string]string) []string {
	base := os.Environ()
	if len(overlay) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(overlay))
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range overlay {
		merged[k] = v
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

// classify extracts a process exit code from err, or 127 if the program
// could not be found/executed at all.
func classify(err error) (int, error) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return 127, err
}

func printFailure(log *zap.Logger, n *graph.BuildNode, failedIdx int, err error) {
	log.Error("action failed",
		zap.String("node", n.LongName),
		zap.String("cwd", n.Cwd),
		zap.Any("environ", n.Environ),
		zap.Int("failed_command", failedIdx),
		zap.Any("commands", n.Commands),
		zap.Error(err),
	)
}
