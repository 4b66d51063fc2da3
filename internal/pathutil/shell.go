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

package pathutil

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Split tokenises s following POSIX quoting rules. On Windows argv
// quoting is not POSIX, so the string is instead split on whitespace only,
// preserving quotes literally — matching cmd.exe's own (lack of) shlex
// semantics, the same distinction Craftr's shell.split draws.
func Split(s string) ([]string, error) {
	if runtime.GOOS == "windows" {
		return strings.Fields(s), nil
	}
	return posixSplit(s)
}

func posixSplit(s string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inWord := false
	var quote rune
	for i := 0; i < len(s); i++ {
		c := rune(s[i])
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == ' ' || c == '\t' || c == '\n':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("pathutil: split %q: unterminated quote", s)
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}

// Quote escapes s for inclusion in a shell command line. On Windows it
// uses double-quote escaping (single quotes confuse CMD.EXE); elsewhere it
// defers to POSIX quoting rules. When forNinja is true and the quoted
// result would wrap a bare "$var" reference, the quotes are dropped so
// Ninja's own `$` variable expansion still applies — Ninja escapes its
// build files differently from a shell.
func Quote(s string, forNinja bool) string {
	if s == "" {
		return "''"
	}
	if forNinja && isDollarRef(s) {
		return s
	}
	if runtime.GOOS == "windows" {
		return quoteWindows(s)
	}
	return quotePosix(s)
}

func isDollarRef(s string) bool {
	if len(s) < 2 || s[0] != '$' {
		return false
	}
	for _, c := range s[1:] {
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func quoteWindows(s string) string {
	needsQuote := strings.ContainsAny(s, " \t")
	escaped := strings.ReplaceAll(s, `"`, `\"`)
	if needsQuote {
		return `"` + escaped + `"`
	}
	return escaped
}

var posixSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@%_-+=:,./"

func quotePosix(s string) string {
	safe := true
	for _, c := range s {
		if !strings.ContainsRune(posixSafe, c) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Shellify wraps argv in an invocation of the platform shell: `cmd /c` on
// Windows, `$SHELL -c` (falling back to /bin/sh) elsewhere.
func Shellify(argv []string) []string {
	line := Join(argv)
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/c", line}
	}
	sh := os.Getenv("SHELL")
	if sh == "" {
		sh = "/bin/sh"
	}
	return []string{sh, "-c", line}
}

// Join quotes and space-joins argv into a single shell command line.
func Join(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = Quote(a, false)
	}
	return strings.Join(parts, " ")
}

// OverrideEnviron temporarily overlays the current process environment
// with overrides, returning a restore func that must be called to put the
// original environment back. Scoped via defer at the call site.
func OverrideEnviron(overrides map[string]string) func() {
	type saved struct {
		val string
		had bool
	}
	prev := make(map[string]saved, len(overrides))
	for k, v := range overrides {
		old, had := os.LookupEnv(k)
		prev[k] = saved{old, had}
		os.Setenv(k, v)
	}
	return func() {
		for k, s := range prev {
			if s.had {
				os.Setenv(k, s.val)
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// ErrNotFound is returned by FindProgram when name is not present on PATH.
type ErrNotFound struct{ Name string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("pathutil: program not found: %s", e.Name) }

// ErrNotExecutable is returned by FindProgram when name is present on PATH
// but the file is not executable.
type ErrNotExecutable struct{ Path string }

func (e *ErrNotExecutable) Error() string {
	return fmt.Sprintf("pathutil: program not executable: %s", e.Path)
}

// FindProgram resolves name against PATH, honouring PATHEXT on Windows. It
// distinguishes "not found anywhere" from "found but not executable" so
// callers can surface the more useful of the two diagnostics.
func FindProgram(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err == nil {
		return path, nil
	}
	if runtime.GOOS != "windows" {
		if _, statErr := os.Stat(name); statErr == nil {
			return "", &ErrNotExecutable{Path: name}
		}
	}
	return "", &ErrNotFound{Name: name}
}
