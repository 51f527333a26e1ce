package patch

import (
	"runtime/debug"
	"slices"
	"strings"
)

// ModulePath is the import path of this module.
const ModulePath = "github.com/adnsv/go-xlpatch"

// Info identifies the engine for diagnostics.
type Info struct {
	Package  string            `yaml:"package"`
	Version  string            `yaml:"version"`
	Go       string            `yaml:"go,omitempty"`
	Backends []string          `yaml:"backends"`
	Deps     map[string]string `yaml:"deps,omitempty"`
}

// Backends lists the engines built into the module: the patcher, the bulk
// reader and the bulk writer.
var Backends = []string{"patcher", "xlread", "xl"}

// BuildInfo reports the module version and the versions of the modules it
// was linked against. Without build information, as in tests, Version is
// "(devel)" and Deps is empty.
func BuildInfo() Info {
	info := Info{
		Package:  ModulePath,
		Version:  "(devel)",
		Backends: slices.Clone(Backends),
		Deps:     map[string]string{},
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.Go = bi.GoVersion
	if bi.Main.Path == ModulePath && bi.Main.Version != "" {
		info.Version = bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if strings.HasPrefix(dep.Path, ModulePath) {
			if dep.Path == ModulePath {
				info.Version = dep.Version
			}
			continue
		}
		version := dep.Version
		if dep.Replace != nil {
			version = dep.Replace.Version
		}
		info.Deps[dep.Path] = version
	}
	return info
}
