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
	"errors"
	"fmt"
	"os"

	"github.com/craftr-build/mbs/internal/actionserver"
	"github.com/craftr-build/mbs/internal/slave"
	"go.uber.org/zap"
)

// runSlave is one --run-node invocation: fetch the node definition for
// arg ("<long_name>^<hash>") from the action server at CRAFTR_BUILD_SERVER,
// execute it, and return the process exit code to propagate to ninja.
func runSlave(ctx context.Context, arg string, log *zap.Logger) (int, error) {
	addr := os.Getenv("CRAFTR_BUILD_SERVER")
	if addr == "" {
		return 1, fmt.Errorf("--run-node requires CRAFTR_BUILD_SERVER to be set")
	}
	longName, hash, err := actionserver.ParseRunNode(arg)
	if err != nil {
		return 1, err
	}

	node, extraArgs, err := actionserver.FetchNode(addr, longName, hash)
	if err != nil {
		return 1, err
	}
	if len(extraArgs) > 0 && len(node.Commands) > 0 {
		last := len(node.Commands) - 1
		node.Commands[last] = append(node.Commands[last], extraArgs...)
	}

	verbose := os.Getenv("CRAFTR_VERBOSE") == "true"
	if err := slave.Run(ctx, node, verbose, log); err != nil {
		var cmdErr *slave.CommandError
		if errors.As(err, &cmdErr) {
			return cmdErr.ExitCode, err
		}
		return 1, err
	}
	return 0, nil
}
