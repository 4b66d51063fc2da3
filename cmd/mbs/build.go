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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/craftr-build/mbs/internal/actionserver"
	"github.com/craftr-build/mbs/internal/cell"
	"github.com/craftr-build/mbs/internal/executor"
	"github.com/craftr-build/mbs/internal/graph"
	"github.com/craftr-build/mbs/internal/loader"
	"github.com/craftr-build/mbs/internal/ninjaemit"
	"go.uber.org/zap"
)

// runBuild loads manifestPath, lowers it to a build graph, and (unless a
// dump flag or --configure-only short-circuits first) drives ninja
// through it with a live action server backing each rule's --run-node
// re-invocation.
func runBuild(ctx context.Context, manifestPath string, log *zap.Logger) error {
	cfg, err := loader.LoadConfig("mbs.yml")
	if err != nil {
		return err
	}

	session, err := cell.New(buildDirectory, cfg, log)
	if err != nil {
		return err
	}

	reg := loader.NewRegistry()
	if err := registerFactories(reg, session.Schema); err != nil {
		return err
	}

	g, err := loadAndLower(session, reg, manifestPath)
	if err != nil {
		return err
	}

	if dumpGraphviz {
		return g.WriteDot(os.Stdout)
	}
	if dumpSVG {
		return dumpGraphSVG(g)
	}

	if err := os.MkdirAll(buildDirectory, 0o755); err != nil {
		return fmt.Errorf("mbs: %w", err)
	}
	graphPath := filepath.Join(buildDirectory, "graph.json")
	if err := g.WriteFile(graphPath); err != nil {
		return err
	}

	if configureOnly {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("mbs: %w", err)
		}
		if err := emitNinjaFile(g, exe, manifestPath); err != nil {
			return err
		}
		return session.Close()
	}

	return driveBuild(ctx, session, g, manifestPath, graphPath, log)
}

// driveBuild picks between the ninja-backed path and the in-process direct
// executor: "direct" always skips ninja, and the default "ninja" mode falls
// back to it automatically when no usable ninja binary can be found or
// downloaded, so a manifest still builds on a machine with no ninja and no
// network access.
func driveBuild(ctx context.Context, session *cell.Session, g *graph.BuildGraph, manifestPath, graphPath string, log *zap.Logger) error {
	if executorMode == "direct" {
		return runDirect(ctx, session, g, log)
	}

	ninjaPath, err := ninjaemit.Ensure(buildDirectory)
	if err != nil {
		log.Warn("no usable ninja binary, falling back to the direct executor", zap.Error(err))
		return runDirect(ctx, session, g, log)
	}
	return driveNinja(ctx, session, g, manifestPath, graphPath, ninjaPath, log)
}

// runDirect executes the selected build graph in-process, bypassing ninja
// entirely: the fallback direct executor.
func runDirect(ctx context.Context, session *cell.Session, g *graph.BuildGraph, log *zap.Logger) error {
	selected, err := g.Selected(nil)
	if err != nil {
		return err
	}

	runErr := executor.Run(ctx, selected, executor.Options{Log: log, Verbose: verbose})

	if closeErr := session.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		exitCode = 1
	}
	return runErr
}

func dumpGraphSVG(g *graph.BuildGraph) error {
	var dot bytes.Buffer
	if err := g.WriteDot(&dot); err != nil {
		return err
	}
	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = &dot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mbs: rendering svg (is graphviz's `dot` installed?): %w", err)
	}
	return nil
}

func driveNinja(ctx context.Context, session *cell.Session, g *graph.BuildGraph, manifestPath, graphPath, ninjaPath string, log *zap.Logger) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("mbs: %w", err)
	}

	if err := emitNinjaFile(g, exe, manifestPath); err != nil {
		return err
	}

	ln, addr, err := actionserver.Listen()
	if err != nil {
		return err
	}
	srv := actionserver.NewServer(g, graphPath, log)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErrs := make(chan error, 1)
	go func() { serveErrs <- srv.Serve(serveCtx, ln) }()

	cmd := exec.CommandContext(ctx, ninjaPath, "-C", buildDirectory)
	cmd.Env = append(os.Environ(), "CRAFTR_BUILD_SERVER="+addr)
	if verbose {
		cmd.Env = append(cmd.Env, "CRAFTR_VERBOSE=true")
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	runErr := cmd.Run()

	cancel()
	if serveErr := <-serveErrs; serveErr != nil {
		log.Warn("action server stopped with an error", zap.Error(serveErr))
	}

	if closeErr := session.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
		}
	}
	return runErr
}
