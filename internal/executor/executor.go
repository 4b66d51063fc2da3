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

// Package executor implements the direct executor: an alternative to
// generating and invoking a ninja manifest that walks the BuildGraph
// in-process and runs its nodes with the same slave semantics, up to N
// workers in parallel. It exists for platforms without ninja and for
// exercising the graph/slave contract in tests without a subprocess
// round trip through a second tool invocation.
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/craftr-build/mbs/internal/graph"
	"github.com/craftr-build/mbs/internal/slave"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Options configures a Run.
type Options struct {
	// Parallelism bounds concurrent non-console actions. Defaults to 1
	// (fully sequential) if zero or negative.
	Parallelism int
	Verbose     bool
	Log         *zap.Logger
}

// Run executes every node in nodes (already topologically ordered by the
// caller, e.g. via BuildGraph.Selected) respecting each node's Deps: a
// node only starts once all its dependencies have completed successfully.
// Console nodes are serialised through a pool of size 1, matching the
// ninja-mode console pool so their output never interleaves.
func Run(ctx context.Context, nodes []*graph.BuildNode, opts Options) error {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	done := make(map[string]chan struct{}, len(nodes))
	for _, n := range nodes {
		done[n.LongName] = make(chan struct{})
	}

	sem := semaphore.NewWeighted(int64(opts.Parallelism))
	consoleSem := semaphore.NewWeighted(1)

	g, gctx := errgroup.WithContext(ctx)
	var failedOnce sync.Once
	var firstErr error

	for _, n := range nodes {
		n := n
		g.Go(func() error {
			for _, dep := range n.Deps {
				ch, ok := done[dep]
				if !ok {
					// Dependency outside the selected set: assume already
					// satisfied (e.g. produced by an earlier, separate run).
					continue
				}
				select {
				case <-ch:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			pool := sem
			if n.Console {
				pool = consoleSem
			}
			if err := pool.Acquire(gctx, 1); err != nil {
				return err
			}
			err := slave.Run(gctx, n, opts.Verbose, log)
			pool.Release(1)
			if err != nil {
				// Deliberately not closed on failure: dependents are
				// blocked on either this channel or gctx.Done(), and
				// errgroup cancels gctx as soon as this error is
				// returned, so they unblock via cancellation instead of
				// mistaking a failed dependency for a finished one.
				failedOnce.Do(func() { firstErr = err })
				return fmt.Errorf("executor: %s: %w", n.LongName, err)
			}
			close(done[n.LongName])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if firstErr != nil {
			return firstErr
		}
		return err
	}
	return nil
}
