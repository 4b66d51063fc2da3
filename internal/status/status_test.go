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

package status

import (
	"bytes"
	"testing"

	"github.com/craftr-build/mbs/internal/graph"
	"github.com/stretchr/testify/require"
)

func newBufferPrinter() (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	p := &Printer{
		printer: &LinePrinter{out: &buf, haveBlankLine: true},
		format:  "[%f/%t] ",
		rate:    newSlidingRate(4),
	}
	return p, &buf
}

func TestFormatProgressSubstitutesPlaceholders(t *testing.T) {
	p, _ := newBufferPrinter()
	p.totalNodes = 10
	p.startedNodes = 3
	p.finishedNodes = 2
	p.runningNodes = 1

	require.Equal(t, "2/10 started=3", p.formatProgress("%f/%t started=%s"))
}

func TestNodeStartedAndFinishedUpdateCounters(t *testing.T) {
	p, buf := newBufferPrinter()
	p.totalNodes = 1
	n := &graph.BuildNode{LongName: "//app:lib#compile", OutputFiles: []string{"lib.o"}}

	p.NodeStarted(n)
	require.Equal(t, 1, p.startedNodes)
	require.Equal(t, 1, p.runningNodes)

	p.NodeFinished(n, true, "")
	require.Equal(t, 1, p.finishedNodes)
	require.Equal(t, 0, p.runningNodes)
	require.Contains(t, buf.String(), "lib.o")
}

func TestNodeFinishedPrintsFailureOutput(t *testing.T) {
	p, buf := newBufferPrinter()
	n := &graph.BuildNode{LongName: "//app:lib#compile", OutputFiles: []string{"lib.o"}}

	p.NodeStarted(n)
	p.NodeFinished(n, false, "compiler error: boom\n")

	require.Contains(t, buf.String(), "FAILED: lib.o")
	require.Contains(t, buf.String(), "compiler error: boom")
}

func TestQuietVerbositySuppressesStatusLines(t *testing.T) {
	p, buf := newBufferPrinter()
	p.verbosity = Quiet
	n := &graph.BuildNode{LongName: "//app:lib#compile", OutputFiles: []string{"lib.o"}}

	p.NodeStarted(n)
	p.NodeFinished(n, true, "")

	require.Empty(t, buf.String())
}

func TestElideMiddleShortensLongStrings(t *testing.T) {
	s := elideMiddle("0123456789", 6)
	require.Len(t, s, 6)
	require.Contains(t, s, "...")
}

func TestElideMiddleLeavesShortStringsAlone(t *testing.T) {
	require.Equal(t, "short", elideMiddle("short", 80))
}

func TestSlidingRateIgnoresRepeatUpdates(t *testing.T) {
	r := newSlidingRate(4)
	r.update(1, 0)
	first := r.value
	r.update(1, 0)
	require.Equal(t, first, r.value)
}

func TestLinePrinterBuffersWhileConsoleLocked(t *testing.T) {
	var buf bytes.Buffer
	lp := NewLinePrinter(&buf)
	lp.SetSmartTerminal(false)
	lp.SetConsoleLocked(true)
	lp.PrintOnNewLine("hidden")
	require.Empty(t, buf.String())
	lp.SetConsoleLocked(false)
	require.Contains(t, buf.String(), "hidden")
}
