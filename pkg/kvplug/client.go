package kvplug

import (
	"context"
	"net/rpc"
	"time"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// storeClient is the harness-side kvdict.Store whose every call runs in
// the revision subprocess. A transport failure means the revision process
// died mid-operation and surfaces as a crash-kind error.
type storeClient struct {
	rpc  *rpc.Client
	kill func()
}

func (c *storeClient) call(method string, args, reply any) error {
	if err := c.rpc.Call("Plugin."+method, args, reply); err != nil {
		return kvdict.NewError(kvdict.KindCrash, "revision process failed during "+method, err)
	}
	return nil
}

func remoteErr(kind, msg string) error {
	if kind == "" {
		return nil
	}
	return kvdict.NewError(kvdict.Kind(kind), msg, nil)
}

func (c *storeClient) configure(endpoint, namespace string) error {
	var reply EmptyReply
	if err := c.call("Configure", &ConfigureArgs{Endpoint: endpoint, Namespace: namespace}, &reply); err != nil {
		return err
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) Set(ctx context.Context, key string, value any) error {
	raw, err := kvdict.Encode(value)
	if err != nil {
		return err
	}
	var reply EmptyReply
	if err := c.call("Set", &SetArgs{Key: key, Value: raw}, &reply); err != nil {
		return err
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) Get(ctx context.Context, key string) (any, error) {
	var reply ValueReply
	if err := c.call("Get", &KeyArgs{Key: key}, &reply); err != nil {
		return nil, err
	}
	if err := remoteErr(reply.ErrKind, reply.ErrMsg); err != nil {
		return nil, err
	}
	return kvdict.Decode(reply.Value)
}

func (c *storeClient) Delete(ctx context.Context, key string) error {
	var reply EmptyReply
	if err := c.call("Delete", &KeyArgs{Key: key}, &reply); err != nil {
		return err
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) Contains(ctx context.Context, key string) (bool, error) {
	var reply BoolReply
	if err := c.call("Contains", &KeyArgs{Key: key}, &reply); err != nil {
		return false, err
	}
	return reply.Value, remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	var reply EmptyReply
	if err := c.call("Expire", &ExpireArgs{Key: key, TTLNano: int64(ttl)}, &reply); err != nil {
		return err
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	var reply Int64Reply
	if err := c.call("TTL", &KeyArgs{Key: key}, &reply); err != nil {
		return 0, err
	}
	return time.Duration(reply.Value), remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) Keys(ctx context.Context) ([]string, error) {
	var reply StringsReply
	if err := c.call("Keys", &EmptyArgs{}, &reply); err != nil {
		return nil, err
	}
	if err := remoteErr(reply.ErrKind, reply.ErrMsg); err != nil {
		return nil, err
	}
	if reply.Values == nil {
		return []string{}, nil
	}
	return reply.Values, nil
}

func (c *storeClient) Len(ctx context.Context) (int64, error) {
	var reply Int64Reply
	if err := c.call("Len", &EmptyArgs{}, &reply); err != nil {
		return 0, err
	}
	return reply.Value, remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) BulkSet(ctx context.Context, items map[string]any) error {
	encoded := make(map[string]string, len(items))
	for key, value := range items {
		raw, err := kvdict.Encode(value)
		if err != nil {
			return err
		}
		encoded[key] = raw
	}
	var reply EmptyReply
	if err := c.call("BulkSet", &ItemsArgs{Items: encoded}, &reply); err != nil {
		return err
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) BulkGet(ctx context.Context, keys []string) ([]any, error) {
	var reply StringsReply
	if err := c.call("BulkGet", &KeysArgs{Keys: keys}, &reply); err != nil {
		return nil, err
	}
	if err := remoteErr(reply.ErrKind, reply.ErrMsg); err != nil {
		return nil, err
	}
	return decodeSlice(reply.Values)
}

func (c *storeClient) MultiGet(ctx context.Context, prefix string) ([]any, error) {
	var reply StringsReply
	if err := c.call("MultiGet", &PrefixArgs{Prefix: prefix}, &reply); err != nil {
		return nil, err
	}
	if err := remoteErr(reply.ErrKind, reply.ErrMsg); err != nil {
		return nil, err
	}
	return decodeSlice(reply.Values)
}

func (c *storeClient) ChainSet(ctx context.Context, path []string, value any) error {
	raw, err := kvdict.Encode(value)
	if err != nil {
		return err
	}
	var reply EmptyReply
	if err := c.call("ChainSet", &ChainSetArgs{Path: path, Value: raw}, &reply); err != nil {
		return err
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) ChainGet(ctx context.Context, path []string) (any, error) {
	var reply ValueReply
	if err := c.call("ChainGet", &PathArgs{Path: path}, &reply); err != nil {
		return nil, err
	}
	if err := remoteErr(reply.ErrKind, reply.ErrMsg); err != nil {
		return nil, err
	}
	return kvdict.Decode(reply.Value)
}

func (c *storeClient) ChainDel(ctx context.Context, path []string) error {
	var reply EmptyReply
	if err := c.call("ChainDel", &PathArgs{Path: path}, &reply); err != nil {
		return err
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

func (c *storeClient) ToMap(ctx context.Context) (map[string]any, error) {
	var reply MapReply
	if err := c.call("ToMap", &EmptyArgs{}, &reply); err != nil {
		return nil, err
	}
	if err := remoteErr(reply.ErrKind, reply.ErrMsg); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(reply.Values))
	for key, raw := range reply.Values {
		value, err := kvdict.Decode(raw)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func (c *storeClient) Clear(ctx context.Context) error {
	var reply EmptyReply
	if err := c.call("Clear", &EmptyArgs{}, &reply); err != nil {
		return err
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

// Close shuts the remote store down and terminates the revision process.
// Teardown races with process exit are not errors.
func (c *storeClient) Close() error {
	var reply EmptyReply
	err := c.rpc.Call("Plugin.Close", &EmptyArgs{}, &reply)
	if c.kill != nil {
		c.kill()
	}
	if err != nil {
		return nil
	}
	return remoteErr(reply.ErrKind, reply.ErrMsg)
}

func decodeSlice(raws []string) ([]any, error) {
	values := make([]any, len(raws))
	for i, raw := range raws {
		value, err := kvdict.Decode(raw)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}
