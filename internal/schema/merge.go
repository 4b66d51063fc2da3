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

package schema

// Merge combines property values observed, in dependency order, from a
// target's transitive dependencies for an inherited property. List and map
// kinds are concatenated; scalar kinds (Bool, Int, String) take the first
// non-empty/non-zero value. This is the inherited-merge step of resolution.
func Merge(kind Kind, values []Value) Value {
	switch kind {
	case StringList, PathList:
		out := Value{Kind: kind}
		for _, v := range values {
			out.List = append(out.List, v.List...)
		}
		return out
	case Map:
		out := Value{Kind: Map, MapVal: map[string]string{}}
		for _, v := range values {
			for k, mv := range v.MapVal {
				out.MapVal[k] = mv
			}
		}
		return out
	case String:
		for _, v := range values {
			if v.Str != "" {
				return v
			}
		}
		return Value{Kind: String}
	case Int:
		for _, v := range values {
			if v.Int != 0 {
				return v
			}
		}
		return Value{Kind: Int}
	case Bool:
		for _, v := range values {
			if v.Bool {
				return v
			}
		}
		return Value{Kind: Bool}
	default:
		return Value{Kind: kind}
	}
}
