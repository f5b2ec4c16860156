package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

func TestBuildEmbeddedCatalog(t *testing.T) {
	specs, err := Build()
	require.NoError(t, err)
	require.NotEmpty(t, specs)

	// The battery must exercise every supported method.
	methods := make(map[Method]bool)
	for _, spec := range specs {
		methods[spec.Method] = true
	}
	for method := range methodArity {
		assert.True(t, methods[method], "catalog never exercises %s", method)
	}

	// And it must include deliberate misuse for the core error kinds.
	expected := make(map[kvdict.Kind]bool)
	for _, spec := range specs {
		if spec.ExpectError != kvdict.KindNone {
			expected[spec.ExpectError] = true
		}
	}
	assert.True(t, expected[kvdict.KindNotFound])
	assert.True(t, expected[kvdict.KindWrongType])
	assert.True(t, expected[kvdict.KindUnsupportedValue])
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := Build()
	require.NoError(t, err)
	second, err := Build()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildNormalizesArgs(t *testing.T) {
	specs, err := Parse([]byte(`
- name: set_num
  method: set
  args: [k, 42]
`))
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, int64(42), specs[0].Args[1], "integers normalize to int64")
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unnamed entry", "- method: get\n  args: [k]"},
		{
			"duplicate name",
			"- {name: a, method: get, args: [k]}\n- {name: a, method: get, args: [k]}",
		},
		{"unknown method", "- {name: a, method: frobnicate, args: []}"},
		{"wrong arity", "- {name: a, method: get, args: [k, extra]}"},
		{"unknown error kind", "- {name: a, method: get, args: [k], expect_error: exploded}"},
		{"not yaml", ":\t:::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestCatalogOrderingDependencies(t *testing.T) {
	specs, err := Build()
	require.NoError(t, err)

	index := make(map[string]int, len(specs))
	for i, spec := range specs {
		index[spec.Name] = i
	}

	// Reads must follow the writes they depend on.
	assert.Less(t, index["set_string"], index["get_string"])
	assert.Less(t, index["overwrite_string"], index["get_overwritten"])
	assert.Less(t, index["delete_string"], index["get_deleted"])
	assert.Less(t, index["expire_int"], index["ttl_int"])
	assert.Less(t, index["clear_all"], index["len_after_clear"])
	assert.Less(t, index["chain_set_email"], index["chain_get_email"])
	assert.Less(t, index["chain_set_city"], index["multi_get_user"])
	assert.Less(t, index["chain_del_email"], index["chain_get_deleted"])
	assert.Less(t, index["bulk_set_scale"], index["multi_get_scale_window"])
	assert.Less(t, index["clear_scale"], index["len_final"])
}

func TestEmbeddedCatalogScaleEntry(t *testing.T) {
	specs, err := Build()
	require.NoError(t, err)

	var scale *OperationSpec
	for i := range specs {
		if specs[i].Name == "bulk_set_scale" {
			scale = &specs[i]
		}
	}
	require.NotNil(t, scale)
	assert.Equal(t, "scale_", scale.Options["fill_prefix"])
	assert.Equal(t, int64(100), scale.Options["fill_count"], "option values normalize like args")
}
