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
	"errors"
	"fmt"
	"os"

	"github.com/craftr-build/mbs/internal/cell"
	"github.com/goccy/go-yaml"
)

// LoadConfig reads the optional session configuration file (mbs.yml): a
// flat string-to-string map, returned as-is with no CLI flag overrides
// merged in. A missing file is not an error — config.Values is simply
// empty.
func LoadConfig(path string) (*cell.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &cell.Config{Values: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loader: read %q: %w", path, err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("loader: parse %q: %w", path, err)
	}
	return &cell.Config{Values: values}, nil
}
