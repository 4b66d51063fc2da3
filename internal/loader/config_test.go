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

package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigParsesFlatMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mbs.yml")
	require.NoError(t, os.WriteFile(path, []byte("ninja_version: 1.11.1\nverbose: \"true\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "1.11.1", cfg.Get("ninja_version"))
	require.True(t, cfg.GetBool("verbose", false))
}

func TestLoadConfigMissingFileReturnsEmpty(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	require.Equal(t, "", cfg.Get("anything"))
}
