package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/sajjad-MoBe/kvdiff/internal/catalog"
	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// ttlBucket coarsens remaining-TTL reads so that the handful of
// milliseconds an operation spends in flight cannot flip the compared
// value, while sub-second precision loss in a revision's expire path
// still shows up as a different bucket.
const ttlBucket = 100 * time.Millisecond

// dispatch invokes the store method an OperationSpec selects and returns
// its comparable value. Argument validation errors surface as
// wrong_type-kind errors so that misuse entries compare by kind like any
// other raised condition.
func dispatch(ctx context.Context, store kvdict.Store, spec *catalog.OperationSpec) (any, error) {
	switch spec.Method {
	case catalog.MethodSet:
		key, err := stringArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return nil, store.Set(ctx, key, spec.Args[1])

	case catalog.MethodGet:
		key, err := stringArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return store.Get(ctx, key)

	case catalog.MethodDelete:
		key, err := stringArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return nil, store.Delete(ctx, key)

	case catalog.MethodContains:
		key, err := stringArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return store.Contains(ctx, key)

	case catalog.MethodExpire:
		key, err := stringArg(spec, 0)
		if err != nil {
			return nil, err
		}
		ttl, err := durationArg(spec, 1)
		if err != nil {
			return nil, err
		}
		return nil, store.Expire(ctx, key, ttl)

	case catalog.MethodTTL:
		key, err := stringArg(spec, 0)
		if err != nil {
			return nil, err
		}
		remaining, err := store.TTL(ctx, key)
		if err != nil {
			return nil, err
		}
		if remaining <= 0 {
			return int64(0), nil
		}
		// Round up to the bucket boundary: a freshly set 2500ms TTL
		// reads as 2500 regardless of in-flight latency.
		bucketed := (remaining + ttlBucket - time.Nanosecond).Truncate(ttlBucket)
		return bucketed.Milliseconds(), nil

	case catalog.MethodKeys:
		keys, err := store.Keys(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, nil

	case catalog.MethodLen:
		return store.Len(ctx)

	case catalog.MethodBulkSet:
		items, err := mapArg(spec, 0)
		if err != nil {
			return nil, err
		}
		items, err = withFill(spec, items)
		if err != nil {
			return nil, err
		}
		return nil, store.BulkSet(ctx, items)

	case catalog.MethodBulkGet:
		keys, err := stringListArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return store.BulkGet(ctx, keys)

	case catalog.MethodMultiGet:
		prefix, err := stringArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return store.MultiGet(ctx, prefix)

	case catalog.MethodChainSet:
		path, err := stringListArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return nil, store.ChainSet(ctx, path, spec.Args[1])

	case catalog.MethodChainGet:
		path, err := stringListArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return store.ChainGet(ctx, path)

	case catalog.MethodChainDel:
		path, err := stringListArg(spec, 0)
		if err != nil {
			return nil, err
		}
		return nil, store.ChainDel(ctx, path)

	case catalog.MethodClear:
		return nil, store.Clear(ctx)

	default:
		// Build validates methods; reaching this is a harness bug.
		return nil, kvdict.NewError(kvdict.KindInternal,
			fmt.Sprintf("unhandled method %q", spec.Method), nil)
	}
}

// withFill expands a bulk_set entry's fill_prefix/fill_count options into
// generated numbered keys merged over the literal items, so scale cases can
// seed a hundred keys without a hundred lines of battery.
func withFill(spec *catalog.OperationSpec, items map[string]any) (map[string]any, error) {
	rawPrefix, hasPrefix := spec.Options["fill_prefix"]
	rawCount, hasCount := spec.Options["fill_count"]
	if !hasPrefix && !hasCount {
		return items, nil
	}
	if !hasPrefix || !hasCount {
		return nil, kvdict.NewError(kvdict.KindWrongType,
			fmt.Sprintf("%s: fill_prefix and fill_count must be given together", spec.Method), nil)
	}
	prefix, ok := rawPrefix.(string)
	if !ok {
		return nil, kvdict.NewError(kvdict.KindWrongType,
			fmt.Sprintf("%s: fill_prefix must be a string, got %T", spec.Method, rawPrefix), nil)
	}
	count, ok := rawCount.(int64)
	if !ok || count < 1 {
		return nil, kvdict.NewError(kvdict.KindWrongType,
			fmt.Sprintf("%s: fill_count must be a positive integer", spec.Method), nil)
	}

	out := make(map[string]any, len(items)+int(count))
	for k, v := range items {
		out[k] = v
	}
	for i := int64(0); i < count; i++ {
		out[fmt.Sprintf("%s%03d", prefix, i)] = i
	}
	return out, nil
}

func stringArg(spec *catalog.OperationSpec, i int) (string, error) {
	s, ok := spec.Args[i].(string)
	if !ok {
		return "", kvdict.NewError(kvdict.KindWrongType,
			fmt.Sprintf("%s: argument %d must be a string, got %T", spec.Method, i, spec.Args[i]), nil)
	}
	return s, nil
}

func durationArg(spec *catalog.OperationSpec, i int) (time.Duration, error) {
	s, ok := spec.Args[i].(string)
	if !ok {
		return 0, kvdict.NewError(kvdict.KindWrongType,
			fmt.Sprintf("%s: argument %d must be a duration string, got %T", spec.Method, i, spec.Args[i]), nil)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, kvdict.NewError(kvdict.KindWrongType,
			fmt.Sprintf("%s: argument %d is not a valid duration", spec.Method, i), err)
	}
	return d, nil
}

func mapArg(spec *catalog.OperationSpec, i int) (map[string]any, error) {
	m, ok := spec.Args[i].(map[string]any)
	if !ok {
		return nil, kvdict.NewError(kvdict.KindWrongType,
			fmt.Sprintf("%s: argument %d must be a mapping, got %T", spec.Method, i, spec.Args[i]), nil)
	}
	return m, nil
}

func stringListArg(spec *catalog.OperationSpec, i int) ([]string, error) {
	raw, ok := spec.Args[i].([]any)
	if !ok {
		return nil, kvdict.NewError(kvdict.KindWrongType,
			fmt.Sprintf("%s: argument %d must be a list, got %T", spec.Method, i, spec.Args[i]), nil)
	}
	keys := make([]string, len(raw))
	for j, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, kvdict.NewError(kvdict.KindWrongType,
				fmt.Sprintf("%s: element %d must be a string, got %T", spec.Method, j, e), nil)
		}
		keys[j] = s
	}
	return keys, nil
}
