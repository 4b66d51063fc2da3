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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("cxx", "srcs", PathList, Value{}, false)
	require.NoError(t, err)
	_, err = r.Register("cxx", "srcs", PathList, Value{}, false)
	require.NoError(t, err)
}

func TestRegisterConflictingKindErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("cxx", "srcs", PathList, Value{}, false)
	require.NoError(t, err)
	_, err = r.Register("cxx", "srcs", StringList, Value{}, false)
	require.Error(t, err)
}

func TestBagSetTypeChecked(t *testing.T) {
	r := NewRegistry()
	key, _ := r.Register("cxx", "debug", Bool, Value{Kind: Bool}, false)
	b := NewBag(r)
	require.Error(t, b.Set(key, Value{Kind: Int, Int: 1}))
	require.NoError(t, b.Set(key, Value{Kind: Bool, Bool: true}))
}

func TestBagSealRejectsMutation(t *testing.T) {
	r := NewRegistry()
	key, _ := r.Register("cxx", "debug", Bool, Value{}, false)
	b := NewBag(r)
	b.Seal()
	require.Error(t, b.Set(key, Value{Kind: Bool, Bool: true}))
}

func TestBagAppendRequiresListKind(t *testing.T) {
	r := NewRegistry()
	scalarKey, _ := r.Register("cxx", "debug", Bool, Value{}, false)
	b := NewBag(r)
	require.Error(t, b.Append(scalarKey, "x"))

	listKey, _ := r.Register("cxx", "srcs", PathList, Value{}, false)
	require.NoError(t, b.Append(listKey, "a.c"))
	require.NoError(t, b.Append(listKey, "b.c"))
	v, _ := b.Explicit(listKey)
	require.Equal(t, []string{"a.c", "b.c"}, v.List)
}

func TestMergeStringListConcatenates(t *testing.T) {
	got := Merge(StringList, []Value{
		{Kind: StringList, List: []string{"a"}},
		{Kind: StringList, List: []string{"b", "c"}},
	})
	require.Equal(t, []string{"a", "b", "c"}, got.List)
}

func TestMergeScalarFirstNonEmpty(t *testing.T) {
	got := Merge(String, []Value{
		{Kind: String, Str: ""},
		{Kind: String, Str: "speed"},
		{Kind: String, Str: "size"},
	})
	require.Equal(t, "speed", got.Str)
}
