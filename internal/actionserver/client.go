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
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/craftr-build/mbs/internal/graph"
	"github.com/craftr-build/mbs/internal/slave"
)

// ParseRunNode splits a --run-node argument of the form
// "<long_name>^<hash>" into its parts.
func ParseRunNode(arg string) (longName, hash string, err error) {
	i := strings.LastIndexByte(arg, '^')
	if i < 0 {
		return "", "", fmt.Errorf("actionserver: malformed --run-node argument %q, expected long_name^hash", arg)
	}
	return arg[:i], arg[i+1:], nil
}

// SplitLongName decomposes a node long name ("//cell:name#action" or
// "//cell:name#action#3" for a foreach pair) into the request fields the
// wire protocol expects.
func SplitLongName(longName string) (target, operator string, buildSet int, err error) {
	parts := strings.Split(longName, "#")
	switch len(parts) {
	case 2:
		return parts[0], parts[1], 0, nil
	case 3:
		n, convErr := strconv.Atoi(parts[2])
		if convErr != nil {
			return "", "", 0, fmt.Errorf("actionserver: malformed long name %q: %w", longName, convErr)
		}
		return parts[0], parts[1], n, nil
	default:
		return "", "", 0, fmt.Errorf("actionserver: malformed long name %q", longName)
	}
}

// FetchNode dials the action server at addr, requests the node named by
// longName, verifies it matches wantHash, and returns it along with any
// additional run-time arguments the server attached.
func FetchNode(addr, longName, wantHash string) (*graph.BuildNode, []string, error) {
	target, operator, buildSet, err := SplitLongName(longName)
	if err != nil {
		return nil, nil, err
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("actionserver: dial %s: %w", addr, err)
	}
	defer conn.Close()

	req := request{Target: target, Operator: operator, BuildSet: buildSet}
	if err := writeFrame(conn, req); err != nil {
		return nil, nil, err
	}

	var resp response
	if err := readFrame(conn, &resp); err != nil {
		return nil, nil, err
	}
	if resp.Error != "" {
		return nil, nil, fmt.Errorf("actionserver: %s", resp.Error)
	}

	var node graph.BuildNode
	if err := json.Unmarshal(resp.Data.Target, &node); err != nil {
		return nil, nil, fmt.Errorf("actionserver: decode node: %w", err)
	}
	if resp.Data.Hash != wantHash {
		return nil, nil, &slave.StaleNodeError{LongName: longName, Want: wantHash, Got: resp.Data.Hash}
	}
	return &node, resp.Data.AdditionalArgs, nil
}

// RequestReload sends the reload_build_server control message.
func RequestReload(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("actionserver: dial %s: %w", addr, err)
	}
	defer conn.Close()
	if err := writeFrame(conn, request{ReloadBuildServer: true}); err != nil {
		return err
	}
	var resp response
	if err := readFrame(conn, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("actionserver: reload: %s", resp.Error)
	}
	return nil
}
