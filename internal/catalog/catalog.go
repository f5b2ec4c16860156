// Package catalog holds the ordered battery of operations that defines the
// compatibility surface of a dictionary-style store wrapper. The battery is
// hand-authored in catalog.yaml, embedded at build time, and is the single
// source of truth for what "behaves identically" means: order is
// significant, later operations depend on state left by earlier ones.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Method selects the store operation an OperationSpec drives.
type Method string

const (
	MethodSet      Method = "set"
	MethodGet      Method = "get"
	MethodDelete   Method = "delete"
	MethodContains Method = "contains"
	MethodExpire   Method = "expire"
	MethodTTL      Method = "ttl"
	MethodKeys     Method = "keys"
	MethodLen      Method = "len"
	MethodBulkSet  Method = "bulk_set"
	MethodBulkGet  Method = "bulk_get"
	MethodMultiGet Method = "multi_get"
	MethodChainSet Method = "chain_set"
	MethodChainGet Method = "chain_get"
	MethodChainDel Method = "chain_del"
	MethodClear    Method = "clear"
)

// methodArity maps each method to its required argument count.
var methodArity = map[Method]int{
	MethodSet:      2,
	MethodGet:      1,
	MethodDelete:   1,
	MethodContains: 1,
	MethodExpire:   2,
	MethodTTL:      1,
	MethodKeys:     0,
	MethodLen:      0,
	MethodBulkSet:  1,
	MethodBulkGet:  1,
	MethodMultiGet: 1,
	MethodChainSet: 2,
	MethodChainGet: 1,
	MethodChainDel: 1,
	MethodClear:    0,
}

var knownKinds = map[kvdict.Kind]bool{
	kvdict.KindNotFound:         true,
	kvdict.KindWrongType:        true,
	kvdict.KindUnsupportedValue: true,
	kvdict.KindConnection:       true,
	kvdict.KindTimeout:          true,
	kvdict.KindInternal:         true,
	kvdict.KindCrash:            true,
}

// OperationSpec is one step of the battery. Immutable once built.
type OperationSpec struct {
	// Name identifies the operation in reports.
	Name string `yaml:"name"`
	// Method selects the store operation to invoke.
	Method Method `yaml:"method"`
	// Args are the positional arguments, normalized.
	Args []any `yaml:"args"`
	// Options carries named options, normalized.
	Options map[string]any `yaml:"options"`
	// ExpectError declares the error kind this operation is meant to
	// raise on both sides; empty means a value is expected.
	ExpectError kvdict.Kind `yaml:"expect_error"`
}

// Build parses the embedded battery into its ordered OperationSpec
// sequence. Given the same embedded file the result is identical across
// calls, which the executor's determinism guarantee relies on.
func Build() ([]OperationSpec, error) {
	return Parse(catalogYAML)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) ([]OperationSpec, error) {
	var specs []OperationSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]bool, len(specs))
	for i := range specs {
		spec := &specs[i]
		if spec.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate operation name %q", spec.Name)
		}
		seen[spec.Name] = true

		arity, known := methodArity[spec.Method]
		if !known {
			return nil, fmt.Errorf("operation %q: unknown method %q", spec.Name, spec.Method)
		}
		if len(spec.Args) != arity {
			return nil, fmt.Errorf("operation %q: method %q takes %d args, got %d",
				spec.Name, spec.Method, arity, len(spec.Args))
		}
		if spec.ExpectError != kvdict.KindNone && !knownKinds[spec.ExpectError] {
			return nil, fmt.Errorf("operation %q: unknown error kind %q", spec.Name, spec.ExpectError)
		}

		for j, arg := range spec.Args {
			spec.Args[j] = kvdict.Normalize(arg)
		}
		for k, v := range spec.Options {
			spec.Options[k] = kvdict.Normalize(v)
		}
	}
	return specs, nil
}
