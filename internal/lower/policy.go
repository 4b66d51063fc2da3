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

package lower

import "github.com/craftr-build/mbs/internal/target"

// ResolveLinkage implements the tie-break for preferred static/shared
// linkage: if a library's dependents disagree, it defaults to static and a
// (non-fatal) warning is produced.
//
// wants is called once per dependent and returns ("static"|"shared", true)
// if that dependent expressed a preference, or ("", false) if it did not
// care.
func ResolveLinkage(ctx target.Context, lib *target.Target, wants func(dependent *target.Target) (string, bool)) string {
	seenStatic, seenShared := false, false
	for _, dep := range ctx.Dependents(lib) {
		pref, ok := wants(dep)
		if !ok {
			continue
		}
		switch pref {
		case "static":
			seenStatic = true
		case "shared":
			seenShared = true
		}
	}
	if seenStatic && seenShared {
		ctx.Warn("lower: %s: dependents disagree on preferred linkage, defaulting to static", lib.LongName())
		return "static"
	}
	if seenShared {
		return "shared"
	}
	return "static"
}

// ResolveDebug implements the tie-break: if a target's own "debug"
// property is unset, it defaults to true if any dependent is debug, else
// false.
//
// dependentDebug inspects one dependent's own resolved debug value; own
// is the target's own explicit value (ok=false if unset).
func ResolveDebug(ctx target.Context, t *target.Target, own func() (bool, bool), dependentDebug func(dependent *target.Target) bool) bool {
	if v, ok := own(); ok {
		return v
	}
	for _, dep := range ctx.Dependents(t) {
		if dependentDebug(dep) {
			return true
		}
	}
	return false
}

// OptimizeLevel is one of the valid values for the "optimize" property.
type OptimizeLevel string

const (
	OptimizeSpeed OptimizeLevel = "speed"
	OptimizeSize  OptimizeLevel = "size"
	OptimizeNone  OptimizeLevel = "none"
)

// Valid reports whether o is one of the recognised optimize levels.
func (o OptimizeLevel) Valid() bool {
	switch o {
	case OptimizeSpeed, OptimizeSize, OptimizeNone:
		return true
	default:
		return false
	}
}

// ResolveOptimize implements the tie-break: if unset, "optimize" is
// inherited from the first dependent with a setting, else from session
// config, else defaults to "speed". An invalid value anywhere is fatal.
func ResolveOptimize(ctx target.Context, t *target.Target, own func() (OptimizeLevel, bool), dependentOptimize func(dependent *target.Target) (OptimizeLevel, bool), sessionConfig func() (OptimizeLevel, bool)) (OptimizeLevel, error) {
	check := func(o OptimizeLevel) (OptimizeLevel, error) {
		if !o.Valid() {
			return "", &InvalidOptimizeError{Value: string(o), Target: t.LongName()}
		}
		return o, nil
	}
	if v, ok := own(); ok {
		return check(v)
	}
	for _, dep := range ctx.Dependents(t) {
		if v, ok := dependentOptimize(dep); ok {
			return check(v)
		}
	}
	if v, ok := sessionConfig(); ok {
		return check(v)
	}
	return OptimizeSpeed, nil
}

// InvalidOptimizeError is returned by ResolveOptimize for an unrecognised
// optimize value; this tie-break is the one case that is fatal
// rather than warn-and-continue.
type InvalidOptimizeError struct {
	Value  string
	Target string
}

func (e *InvalidOptimizeError) Error() string {
	return "lower: " + e.Target + ": invalid optimize value " + e.Value
}
