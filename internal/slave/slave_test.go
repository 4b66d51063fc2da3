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

package slave

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/craftr-build/mbs/internal/graph"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunWritesDeclaredOutput(t *testing.T) {
	dir := t.TempDir()
	n := &graph.BuildNode{
		LongName:    "//app:gen#write",
		Cwd:         dir,
		OutputFiles: []string{"out.txt"},
		Commands:    [][]string{{"sh", "-c", "echo hi > out.txt"}},
	}
	require.NoError(t, Run(context.Background(), n, false, zap.NewNop()))
	_, err := os.Stat(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
}

func TestRunFailsOnMissingRequiredOutput(t *testing.T) {
	dir := t.TempDir()
	n := &graph.BuildNode{
		LongName:    "//app:gen#write",
		Cwd:         dir,
		OutputFiles: []string{"missing.txt"},
		Commands:    [][]string{{"true"}},
	}
	err := Run(context.Background(), n, false, zap.NewNop())
	require.Error(t, err)
	var missing *MissingOutputError
	require.ErrorAs(t, err, &missing)
}

func TestRunToleratesMissingOptionalOutput(t *testing.T) {
	dir := t.TempDir()
	n := &graph.BuildNode{
		LongName:        "//app:gen#write",
		Cwd:             dir,
		OutputFiles:     []string{"missing.txt"},
		Commands:        [][]string{{"true"}},
		OptionalOutputs: map[string]bool{"missing.txt": true},
	}
	require.NoError(t, Run(context.Background(), n, false, zap.NewNop()))
}

func TestRunReturnsCommandErrorOnFailure(t *testing.T) {
	dir := t.TempDir()
	n := &graph.BuildNode{
		LongName: "//app:gen#fail",
		Cwd:      dir,
		Commands: [][]string{{"sh", "-c", "exit 3"}},
	}
	err := Run(context.Background(), n, false, zap.NewNop())
	require.Error(t, err)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, 3, cmdErr.ExitCode)
}

func TestSubstituteTokensResolvesInputOutputTagsByPosition(t *testing.T) {
	n := &graph.BuildNode{
		InputFiles:  []string{"a.c"},
		OutputFiles: []string{"a.o"},
	}
	argv := substituteTokens([]string{"cc", "-c", "${<src}", "-o", "${@obj}"}, n)
	require.Equal(t, []string{"cc", "-c", "a.c", "-o", "a.o"}, argv)
}

func TestRunSubstitutesForeachPairTokensBeforeExecuting(t *testing.T) {
	dir := t.TempDir()
	n := &graph.BuildNode{
		LongName:    "//app:lib#compile#0",
		Cwd:         dir,
		InputFiles:  []string{"a.c"},
		OutputFiles: []string{"a.o"},
		Foreach:     true,
		Commands:    [][]string{{"sh", "-c", "echo from ${<src} > ${@obj}"}},
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.c"), nil, 0o644))
	require.NoError(t, Run(context.Background(), n, false, zap.NewNop()))
	data, err := os.ReadFile(filepath.Join(dir, "a.o"))
	require.NoError(t, err)
	require.Equal(t, "from a.c\n", string(data))
}

func TestRunAppliesEnvironOverlay(t *testing.T) {
	dir := t.TempDir()
	n := &graph.BuildNode{
		LongName:    "//app:gen#env",
		Cwd:         dir,
		OutputFiles: []string{"env.txt"},
		Environ:     map[string]string{"MBS_TEST_VAR": "hello"},
		Commands:    [][]string{{"sh", "-c", `echo "$MBS_TEST_VAR" > env.txt`}},
	}
	require.NoError(t, Run(context.Background(), n, false, zap.NewNop()))
	data, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
}
