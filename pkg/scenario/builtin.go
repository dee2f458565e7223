package scenario

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// BuiltinPrefix marks the source path of embedded scenarios.
const BuiltinPrefix = "builtin:"

// BuiltinNames lists the embedded scenarios in name order.
func BuiltinNames() []string {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Builtin parses the embedded scenario with the given name.
func Builtin(name string) (*Scenario, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown built-in scenario %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(data, BuiltinPrefix+name)
}

// Load resolves each argument to scenarios: a built-in name, a YAML file, a
// directory (every .yaml/.yml inside, sorted), or a glob pattern. No
// arguments selects every built-in.
func Load(args []string) ([]*Scenario, error) {
	if len(args) == 0 {
		args = BuiltinNames()
	}

	var out []*Scenario
	for _, arg := range args {
		paths, err := Expand(arg)
		if err != nil {
			return nil, err
		}
		if paths == nil {
			sc, err := Builtin(strings.TrimPrefix(arg, BuiltinPrefix))
			if err != nil {
				return nil, err
			}
			out = append(out, sc)
			continue
		}
		for _, p := range paths {
			sc, err := ParseFile(p)
			if err != nil {
				return nil, err
			}
			out = append(out, sc)
		}
	}
	return out, nil
}

// Expand returns the scenario files arg names, or nil if arg is not a
// path and should be treated as a built-in name.
func Expand(arg string) ([]string, error) {
	if strings.HasPrefix(arg, BuiltinPrefix) {
		return nil, nil
	}

	if info, err := os.Stat(arg); err == nil {
		if !info.IsDir() {
			return []string{arg}, nil
		}
		var files []string
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			m, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, m...)
		}
		sort.Strings(files)
		if len(files) == 0 {
			return nil, fmt.Errorf("no scenario files in %s", arg)
		}
		return files, nil
	}

	if strings.ContainsAny(arg, "*?[") {
		m, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(m) == 0 {
			return nil, fmt.Errorf("no scenario files match %s", arg)
		}
		sort.Strings(m)
		return m, nil
	}

	if strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml") {
		return nil, fmt.Errorf("scenario file not found: %s", arg)
	}
	return nil, nil
}
