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

package actionserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/craftr-build/mbs/internal/graph"
	"go.uber.org/zap"
)

// Server answers node lookups for build slaves over the wire protocol. It
// accepts one connection per request and serves them one at a time — a
// build graph is cheap to query but mutating it (reload_build_server)
// must never race a concurrent lookup.
type Server struct {
	mu        sync.Mutex
	graph     *graph.BuildGraph
	graphPath string
	runArgs   map[string][]string
	log       *zap.Logger
}

// NewServer constructs a Server bound to g, reloadable from graphPath.
func NewServer(g *graph.BuildGraph, graphPath string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{graph: g, graphPath: graphPath, runArgs: map[string][]string{}, log: log}
}

// SetRunArgs records additional command-line arguments a run-target's
// final command should receive, keyed by the target's long name.
func (s *Server) SetRunArgs(longName string, args []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runArgs[longName] = args
}

// Listen binds a loopback-only listener on an OS-assigned port, returning
// it and its "host:port" address for CRAFTR_BUILD_SERVER.
func Listen() (net.Listener, string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("actionserver: listen: %w", err)
	}
	return ln, ln.Addr().String(), nil
}

// Serve accepts connections until ctx is cancelled or the listener errors.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("actionserver: accept: %w", err)
		}
		s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var req request
	if err := readFrame(conn, &req); err != nil {
		s.log.Warn("actionserver: malformed request", zap.Error(err))
		return
	}

	resp := s.handle(req)
	if err := writeFrame(conn, resp); err != nil {
		s.log.Warn("actionserver: failed writing response", zap.Error(err))
	}
}

func (s *Server) handle(req request) response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ReloadBuildServer {
		g, err := graph.ReadFile(s.graphPath)
		if err != nil {
			return response{Error: fmt.Sprintf("reload: %v", err)}
		}
		s.graph = g
		return response{Data: &responseData{}}
	}

	// A foreach action's nodes are only ever stored under their indexed
	// long names ("...#operator#0", "#1", ...) — build_set 0 for the
	// first pair is indistinguishable on the wire from "no index", so a
	// bare-name miss must always retry the indexed form, not only when
	// build_set > 0.
	name := req.Target + "#" + req.Operator
	node, ok := s.graph.Nodes[name]
	if !ok {
		indexed := fmt.Sprintf("%s#%d", name, req.BuildSet)
		if n, indexedOK := s.graph.Nodes[indexed]; indexedOK {
			name, node, ok = indexed, n, true
		}
	}
	if !ok {
		return response{Error: fmt.Sprintf("actionserver: no such node %q (operator %q, build_set %d)", req.Target, req.Operator, req.BuildSet)}
	}

	raw, err := json.Marshal(node)
	if err != nil {
		return response{Error: fmt.Sprintf("actionserver: encode node: %v", err)}
	}
	return response{Data: &responseData{
		Target:         raw,
		Hash:           node.Hash(),
		AdditionalArgs: s.runArgs[node.LongName],
	}}
}
