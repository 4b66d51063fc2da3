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

// Package ninjaemit emits a ninja build.ninja manifest from a BuildGraph,
// and bootstraps a pinned ninja binary when none is found on PATH.
package ninjaemit

import "strings"

// sanitize collapses any character outside [A-Za-z0-9_] to '_', producing
// a safe ninja identifier from an arbitrary long name like
// "//app:hello#compile".
func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func ruleName(actionID string) string  { return "rule_" + sanitize(actionID) }
func phonyName(longName string) string { return "rule_" + sanitize(longName) }
