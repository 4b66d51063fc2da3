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

package ninjaemit

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
)

// MinVersion is the oldest ninja release this emitter's manifest syntax
// (pools, order-only deps, $-variable rules) is known to work against.
const MinVersion = "1.7.1"

// PinnedVersion is the release downloaded when no compatible ninja is on
// PATH.
const PinnedVersion = "1.11.1"

var versionRe = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// downloadURLs maps GOOS to the single-file ZIP release asset for
// PinnedVersion, mirroring ninja-build's own release naming.
var downloadURLs = map[string]string{
	"linux":   fmt.Sprintf("https://github.com/ninja-build/ninja/releases/download/v%s/ninja-linux.zip", PinnedVersion),
	"darwin":  fmt.Sprintf("https://github.com/ninja-build/ninja/releases/download/v%s/ninja-mac.zip", PinnedVersion),
	"windows": fmt.Sprintf("https://github.com/ninja-build/ninja/releases/download/v%s/ninja-win.zip", PinnedVersion),
}

// Ensure returns the path to a ninja binary satisfying MinVersion,
// preferring one already on PATH, and otherwise downloading the pinned
// release into buildDir.
func Ensure(buildDir string) (string, error) {
	if path, ok := findOnPath(); ok {
		return path, nil
	}
	return download(buildDir)
}

func findOnPath() (string, bool) {
	path, err := exec.LookPath("ninja")
	if err != nil {
		return "", false
	}
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "", false
	}
	v := versionRe.Find(out)
	if v == nil || compareVersions(string(v), MinVersion) < 0 {
		return "", false
	}
	return path, true
}

// compareVersions does a simple dotted-numeric comparison; returns
// negative, zero or positive as a<b, a==b, a>b.
func compareVersions(a, b string) int {
	pa, pb := splitVersion(a), splitVersion(b)
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			return x - y
		}
	}
	return 0
}

func splitVersion(v string) []int {
	var out []int
	cur := 0
	has := false
	for _, r := range v {
		if r >= '0' && r <= '9' {
			cur = cur*10 + int(r-'0')
			has = true
			continue
		}
		if has {
			out = append(out, cur)
		}
		cur, has = 0, false
	}
	if has {
		out = append(out, cur)
	}
	return out
}

// fetch performs one GET of url and returns its body. Called at most
// twice by download, which retries once before giving up.
func fetch(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func download(buildDir string) (string, error) {
	url, ok := downloadURLs[runtime.GOOS]
	if !ok {
		return "", fmt.Errorf("ninjaemit: no pinned ninja release known for GOOS=%s", runtime.GOOS)
	}

	body, err := fetch(url)
	if err != nil {
		body, err = fetch(url)
	}
	if err != nil {
		return "", fmt.Errorf("ninjaemit: downloading ninja from %s: %w", url, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("ninjaemit: unzipping ninja archive from %s: %w", url, err)
	}
	if len(zr.File) != 1 {
		return "", fmt.Errorf("ninjaemit: expected single-file ninja archive, got %d entries", len(zr.File))
	}
	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}
	destPath := filepath.Join(buildDir, "ninja"+ext)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", fmt.Errorf("ninjaemit: %w", err)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		return "", fmt.Errorf("ninjaemit: unzipping ninja: %w", err)
	}
	defer rc.Close()
	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return "", fmt.Errorf("ninjaemit: %w", err)
	}
	defer dest.Close()
	if _, err := io.Copy(dest, rc); err != nil {
		return "", fmt.Errorf("ninjaemit: writing %s: %w", destPath, err)
	}
	return destPath, nil
}
