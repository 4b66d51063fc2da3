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

//go:build !windows

package slave

import (
	"os/exec"
	"syscall"
)

// setProcAttr puts non-console children in their own process group so a
// Ctrl-C forwarded to the tool doesn't also race the child's own signal
// handling; console children share the foreground process group so
// terminal job control (Ctrl-C, Ctrl-Z) reaches them directly.
func setProcAttr(cmd *exec.Cmd, console bool) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: !console}
}
