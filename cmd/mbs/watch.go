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
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/craftr-build/mbs/internal/actionserver"
	"github.com/craftr-build/mbs/internal/cell"
	"github.com/craftr-build/mbs/internal/graph"
	"github.com/craftr-build/mbs/internal/loader"
	"github.com/craftr-build/mbs/internal/lower"
	"github.com/craftr-build/mbs/internal/ninjaemit"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch [manifest]",
	Short: "Rebuild and re-run ninja whenever the manifest changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath := "project.yml"
		if len(args) > 0 {
			manifestPath = args[0]
		}
		return runWatch(cmd.Context(), manifestPath, newLogger(verbose))
	},
}

func runWatch(ctx context.Context, manifestPath string, log *zap.Logger) error {
	session, reg, err := newWatchSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	graphPath := filepath.Join(buildDirectory, "graph.json")
	g, err := loadAndLower(session, reg, manifestPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(buildDirectory, 0o755); err != nil {
		return fmt.Errorf("mbs: %w", err)
	}
	if err := g.WriteFile(graphPath); err != nil {
		return err
	}

	ninjaPath, err := ninjaemit.Ensure(buildDirectory)
	if err != nil {
		return err
	}
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
	go func() {
		if err := srv.Serve(serveCtx, ln); err != nil {
			log.Warn("action server stopped with an error", zap.Error(err))
		}
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mbs: watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(manifestPath); err != nil {
		return fmt.Errorf("mbs: watch: %w", err)
	}

	fields := []zap.Field{zap.String("manifest", manifestPath), zap.String("action_server", addr)}
	if mtime, err := g.Mtime(); err == nil {
		fields = append(fields, zap.Time("manifest_mtime", mtime))
	}
	log.Info("watching for manifest changes", fields...)
	if err := runNinjaOnce(ctx, ninjaPath, addr); err != nil {
		log.Warn("initial build failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := reloadAndRebuild(ctx, session, reg, manifestPath, graphPath, addr, ninjaPath, exe, log); err != nil {
				log.Warn("rebuild failed", zap.Error(err))
			}
		}
	}
}

func newWatchSession() (*cell.Session, *loader.Registry, error) {
	cfg, err := loader.LoadConfig("mbs.yml")
	if err != nil {
		return nil, nil, err
	}
	session, err := cell.New(buildDirectory, cfg, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	reg := loader.NewRegistry()
	if err := registerFactories(reg, session.Schema); err != nil {
		return nil, nil, err
	}
	return session, reg, nil
}

func loadAndLower(session *cell.Session, reg *loader.Registry, manifestPath string) (*graph.BuildGraph, error) {
	m, err := loader.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	targets, err := loader.Apply(session, reg, m)
	if err != nil {
		return nil, err
	}
	pipeline := lower.New(func(format string, args ...interface{}) {
		session.Log.Sugar().Warnf(format, args...)
	})
	if err := pipeline.Run(targets); err != nil {
		return nil, err
	}
	g, err := graph.Build(targets)
	if err != nil {
		return nil, err
	}
	g.SetScriptPaths([]string{manifestPath})
	return g, nil
}

func emitNinjaFile(g *graph.BuildGraph, exe, manifestPath string) error {
	f, err := os.Create(filepath.Join(buildDirectory, "build.ninja"))
	if err != nil {
		return fmt.Errorf("mbs: %w", err)
	}
	err = ninjaemit.Emit(f, g, ninjaemit.Options{Exec: exe, Script: manifestPath, BuildDirectory: buildDirectory})
	closeErr := f.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func runNinjaOnce(ctx context.Context, ninjaPath, addr string) error {
	cmd := exec.CommandContext(ctx, ninjaPath, "-C", buildDirectory)
	cmd.Env = append(os.Environ(), "CRAFTR_BUILD_SERVER="+addr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func reloadAndRebuild(ctx context.Context, session *cell.Session, reg *loader.Registry, manifestPath, graphPath, addr, ninjaPath, exe string, log *zap.Logger) error {
	g, err := loadAndLower(session, reg, manifestPath)
	if err != nil {
		return err
	}
	if err := g.WriteFile(graphPath); err != nil {
		return err
	}
	if err := emitNinjaFile(g, exe, manifestPath); err != nil {
		return err
	}
	if err := actionserver.RequestReload(addr); err != nil {
		return err
	}
	return runNinjaOnce(ctx, ninjaPath, addr)
}
