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
	"io"
	"os"
	"strconv"
)

const defaultTerminalWidth = 80

// terminalWidth returns the column width to elide status lines to. This is
// best-effort: $COLUMNS if set, else a conservative default (see DESIGN.md
// for why this stays on the standard library instead of an ioctl-based
// window-size dependency).
func terminalWidth(out io.Writer) int {
	if _, ok := out.(*os.File); !ok {
		return defaultTerminalWidth
	}
	if v := os.Getenv("COLUMNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultTerminalWidth
}
