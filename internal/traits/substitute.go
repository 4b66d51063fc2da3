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

package traits

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	percentToken = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)
	outputToken  = regexp.MustCompile(`\$\{@([A-Za-z_][A-Za-z0-9_]*)\}`)
	inputToken   = regexp.MustCompile(`\$\{<([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// Substituter resolves the three placeholder forms an adapter's argv may
// contain: "%ARG%" (an adapter-defined macro, resolved by Expand),
// "${@tag}" (output files tagged tag) and "${<tag}" (input files tagged
// tag).
type Substituter struct {
	Outputs map[string][]string
	Inputs  map[string][]string
	Expand  func(name string) (string, error)
}

// Apply substitutes every token in argv. An argv element that is
// *exactly* one tag token expands to one argv entry per file in that
// tag (so a multi-file tag never gets glued into a single shell word);
// a token embedded in a larger string is joined with spaces instead.
func (s *Substituter) Apply(argv []string) ([]string, error) {
	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		if m := outputToken.FindStringSubmatch(arg); m != nil && m[0] == arg {
			files, err := s.lookup(s.Outputs, m[1], "output")
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
			continue
		}
		if m := inputToken.FindStringSubmatch(arg); m != nil && m[0] == arg {
			files, err := s.lookup(s.Inputs, m[1], "input")
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
			continue
		}
		expanded, err := s.substituteInline(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return out, nil
}

func (s *Substituter) lookup(tags map[string][]string, tag, kind string) ([]string, error) {
	files, ok := tags[tag]
	if !ok {
		return nil, fmt.Errorf("traits: unknown %s tag %q", kind, tag)
	}
	return files, nil
}

func (s *Substituter) substituteInline(arg string) (string, error) {
	var err error
	arg = outputToken.ReplaceAllStringFunc(arg, func(m string) string {
		if err != nil {
			return m
		}
		sub := outputToken.FindStringSubmatch(m)
		var files []string
		files, err = s.lookup(s.Outputs, sub[1], "output")
		return strings.Join(files, " ")
	})
	if err != nil {
		return "", err
	}
	arg = inputToken.ReplaceAllStringFunc(arg, func(m string) string {
		if err != nil {
			return m
		}
		sub := inputToken.FindStringSubmatch(m)
		var files []string
		files, err = s.lookup(s.Inputs, sub[1], "input")
		return strings.Join(files, " ")
	})
	if err != nil {
		return "", err
	}
	arg = percentToken.ReplaceAllStringFunc(arg, func(m string) string {
		if err != nil || s.Expand == nil {
			return m
		}
		sub := percentToken.FindStringSubmatch(m)
		var v string
		v, err = s.Expand(sub[1])
		return v
	})
	return arg, err
}
