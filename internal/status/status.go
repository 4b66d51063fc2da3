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
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/craftr-build/mbs/internal/graph"
)

// Verbosity controls how much a Printer emits.
type Verbosity int

const (
	Normal Verbosity = iota
	Quiet
	Verbose
)

// Printer tracks a build in progress and renders a "[finished/total]"
// style status line.
type Printer struct {
	mu sync.Mutex

	printer   *LinePrinter
	verbosity Verbosity
	format    string

	totalNodes, startedNodes, finishedNodes, runningNodes int
	buildStart                                            time.Time
	rate                                                   slidingRate
}

// NewPrinter creates a Printer writing status lines to out (typically
// os.Stdout). The progress format defaults to "[%f/%t] " and can be
// overridden with $MBS_STATUS, matching ninja's $NINJA_STATUS.
func NewPrinter(out *os.File, verbosity Verbosity, parallelism int) *Printer {
	p := &Printer{
		printer:   NewLinePrinter(out),
		verbosity: verbosity,
		format:    os.Getenv("MBS_STATUS"),
		rate:      newSlidingRate(parallelism),
	}
	if p.format == "" {
		p.format = "[%f/%t] "
	}
	if verbosity != Normal {
		p.printer.SetSmartTerminal(false)
	}
	return p
}

// PlanTotalNodes records the number of nodes the executor plans to run.
func (p *Printer) PlanTotalNodes(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalNodes = total
}

// BuildStarted resets per-run counters.
func (p *Printer) BuildStarted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedNodes, p.finishedNodes, p.runningNodes = 0, 0, 0
	p.buildStart = time.Now()
}

// BuildFinished flushes the status line and releases the console lock.
func (p *Printer) BuildFinished() {
	p.printer.SetConsoleLocked(false)
	p.printer.PrintOnNewLine("")
}

// NodeStarted records a node beginning execution and prints its status
// line (always for console nodes, otherwise only on a smart terminal).
func (p *Printer) NodeStarted(n *graph.BuildNode) {
	p.mu.Lock()
	p.startedNodes++
	p.runningNodes++
	smart := p.printer.IsSmartTerminal()
	p.mu.Unlock()

	if n.Console || smart {
		p.printStatus(n)
	}
	if n.Console {
		p.printer.SetConsoleLocked(true)
	}
}

// NodeFinished records completion and, on failure, prints the failing
// command and its captured output.
func (p *Printer) NodeFinished(n *graph.BuildNode, success bool, output string) {
	p.mu.Lock()
	p.finishedNodes++
	p.rate.update(p.finishedNodes, time.Since(p.buildStart))
	quiet := p.verbosity == Quiet
	p.mu.Unlock()

	if n.Console {
		p.printer.SetConsoleLocked(false)
	}
	if quiet {
		return
	}
	if !n.Console {
		p.printStatus(n)
	}

	p.mu.Lock()
	p.runningNodes--
	p.mu.Unlock()

	if !success {
		prefix := "FAILED: "
		if p.printer.SupportsColor() {
			prefix = "\x1B[31mFAILED: \x1B[0m"
		}
		p.printer.PrintOnNewLine(prefix + strings.Join(n.OutputFiles, " ") + "\n")
	}
	if output != "" {
		p.printer.PrintOnNewLine(output)
	}
}

// Info, Warning and Error surface a one-off diagnostic line, interleaved
// safely with status updates via PrintOnNewLine.
func (p *Printer) Info(format string, args ...interface{}) {
	p.printer.PrintOnNewLine(fmt.Sprintf(format, args...) + "\n")
}

func (p *Printer) Warning(format string, args ...interface{}) {
	p.printer.PrintOnNewLine("warning: " + fmt.Sprintf(format, args...) + "\n")
}

func (p *Printer) Error(format string, args ...interface{}) {
	p.printer.PrintOnNewLine("error: " + fmt.Sprintf(format, args...) + "\n")
}

func (p *Printer) printStatus(n *graph.BuildNode) {
	if p.verbosity == Quiet {
		return
	}
	toPrint := describe(n)
	lineType := Elide
	if p.verbosity == Verbose {
		lineType = Full
	}
	p.mu.Lock()
	prefix := p.formatProgress(p.format)
	p.mu.Unlock()
	p.printer.Print(prefix+toPrint, lineType)
}

func describe(n *graph.BuildNode) string {
	if len(n.OutputFiles) > 0 {
		return n.OutputFiles[0]
	}
	return n.LongName
}

// formatProgress substitutes ninja-compatible placeholders into format:
// %s started, %t total, %r running, %u unstarted, %f finished, %p
// percent, %e elapsed seconds, %c current rate, %% literal percent.
func (p *Printer) formatProgress(format string) string {
	var out strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			out.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case '%':
			out.WriteByte('%')
		case 's':
			out.WriteString(strconv.Itoa(p.startedNodes))
		case 't':
			out.WriteString(strconv.Itoa(p.totalNodes))
		case 'r':
			out.WriteString(strconv.Itoa(p.runningNodes))
		case 'u':
			out.WriteString(strconv.Itoa(p.totalNodes - p.startedNodes))
		case 'f':
			out.WriteString(strconv.Itoa(p.finishedNodes))
		case 'p':
			pct := 0
			if p.totalNodes > 0 {
				pct = (100 * p.finishedNodes) / p.totalNodes
			}
			fmt.Fprintf(&out, "%3d%%", pct)
		case 'e':
			fmt.Fprintf(&out, "%.3f", time.Since(p.buildStart).Seconds())
		case 'c':
			if p.rate.value < 0 {
				out.WriteString("?")
			} else {
				fmt.Fprintf(&out, "%.1f", p.rate.value)
			}
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	return out.String()
}

// slidingRate tracks finished-nodes-per-second averaged over the last N
// updates, feeding the "%c" placeholder.
type slidingRate struct {
	value      float64
	window     int
	samples    []float64
	lastUpdate int
}

func newSlidingRate(window int) slidingRate {
	if window < 1 {
		window = 1
	}
	return slidingRate{value: -1, window: window, lastUpdate: -1}
}

func (r *slidingRate) update(finished int, elapsed time.Duration) {
	if finished == r.lastUpdate {
		return
	}
	r.lastUpdate = finished
	if len(r.samples) == r.window {
		r.samples = r.samples[1:]
	}
	r.samples = append(r.samples, elapsed.Seconds())
	if len(r.samples) > 1 {
		span := r.samples[len(r.samples)-1] - r.samples[0]
		if span > 0 {
			r.value = float64(len(r.samples)) / span
		}
	}
}
