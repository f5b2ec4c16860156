// Package loader resolves a revision location into a kvdict.Store
// constructor. Out-of-tree revisions are standalone executables, each
// built from its own checkout of the wrapper and driven over RPC in a
// child process, so the two sides of a comparison never share a process
// or an import graph. A builtin scheme exposes the in-tree
// implementations for self-test mode and tests.
package loader

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sajjad-MoBe/kvdiff/internal/memdict"
	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
	"github.com/sajjad-MoBe/kvdiff/pkg/kvplug"
	"github.com/sajjad-MoBe/kvdiff/pkg/redisdict"
)

// Loaded is one revision, resolved and ready to construct store instances.
type Loaded struct {
	// LogicalName distinguishes the two sides of a comparison ("base"/"new").
	LogicalName string
	// Path is the location the revision was loaded from.
	Path string
	// New constructs a store bound to an endpoint and key-space prefix.
	// For executable revisions this starts the child process.
	New kvdict.Constructor
}

// LoadError is returned when a revision cannot be resolved. It is fatal:
// no comparison is attempted if either side fails to load.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

var (
	builtinMu sync.RWMutex
	builtins  = map[string]kvdict.Constructor{
		"redisdict": redisdict.NewStore,
		"memdict":   memdict.NewStore,
	}
)

// Register adds a builtin constructor under name, overwriting any previous
// registration. Tests use it to inject deliberately divergent revisions.
func Register(name string, ctor kvdict.Constructor) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtins[name] = ctor
}

// Load resolves path into a Loaded revision. Supported forms:
//
//	builtin:<name>   an in-tree implementation from the registry
//	<path>           a revision executable serving kvplug over stdio
func Load(path, logicalName string) (*Loaded, error) {
	if name, ok := strings.CutPrefix(path, "builtin:"); ok {
		builtinMu.RLock()
		ctor, exists := builtins[name]
		builtinMu.RUnlock()
		if !exists {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("unknown builtin %q", name)}
		}
		return &Loaded{LogicalName: logicalName, Path: path, New: ctor}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("is a directory, want a revision executable")}
	}
	if info.Mode().Perm()&0o111 == 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("not executable, want a revision executable")}
	}

	ctor := func(endpoint, namespace string) (kvdict.Store, error) {
		return kvplug.Dial(path, endpoint, namespace)
	}
	return &Loaded{LogicalName: logicalName, Path: path, New: ctor}, nil
}
