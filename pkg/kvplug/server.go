package kvplug

import (
	"context"
	"time"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// storeServer runs inside the revision process and applies RPC calls to
// the store built by the revision's own constructor. Deadlines are
// enforced on the harness side, so calls here use a background context.
type storeServer struct {
	ctor  kvdict.Constructor
	store kvdict.Store
}

// errFields flattens a raised error into its wire fields.
func errFields(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	return string(kvdict.KindOf(err)), err.Error()
}

func (s *storeServer) Configure(args *ConfigureArgs, reply *EmptyReply) error {
	store, err := s.ctor(args.Endpoint, args.Namespace)
	if err != nil {
		reply.ErrKind, reply.ErrMsg = errFields(err)
		return nil
	}
	s.store = store
	return nil
}

func (s *storeServer) Set(args *SetArgs, reply *EmptyReply) error {
	value, err := kvdict.Decode(args.Value)
	if err == nil {
		err = s.store.Set(context.Background(), args.Key, value)
	}
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) Get(args *KeyArgs, reply *ValueReply) error {
	value, err := s.store.Get(context.Background(), args.Key)
	if err == nil {
		reply.Value, err = kvdict.Encode(value)
	}
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) Delete(args *KeyArgs, reply *EmptyReply) error {
	reply.ErrKind, reply.ErrMsg = errFields(s.store.Delete(context.Background(), args.Key))
	return nil
}

func (s *storeServer) Contains(args *KeyArgs, reply *BoolReply) error {
	ok, err := s.store.Contains(context.Background(), args.Key)
	reply.Value = ok
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) Expire(args *ExpireArgs, reply *EmptyReply) error {
	err := s.store.Expire(context.Background(), args.Key, time.Duration(args.TTLNano))
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) TTL(args *KeyArgs, reply *Int64Reply) error {
	ttl, err := s.store.TTL(context.Background(), args.Key)
	reply.Value = int64(ttl)
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) Keys(args *EmptyArgs, reply *StringsReply) error {
	keys, err := s.store.Keys(context.Background())
	reply.Values = keys
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) Len(args *EmptyArgs, reply *Int64Reply) error {
	n, err := s.store.Len(context.Background())
	reply.Value = n
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) BulkSet(args *ItemsArgs, reply *EmptyReply) error {
	items := make(map[string]any, len(args.Items))
	for key, raw := range args.Items {
		value, err := kvdict.Decode(raw)
		if err != nil {
			reply.ErrKind, reply.ErrMsg = errFields(err)
			return nil
		}
		items[key] = value
	}
	reply.ErrKind, reply.ErrMsg = errFields(s.store.BulkSet(context.Background(), items))
	return nil
}

func (s *storeServer) BulkGet(args *KeysArgs, reply *StringsReply) error {
	values, err := s.store.BulkGet(context.Background(), args.Keys)
	if err == nil {
		reply.Values, err = encodeSlice(values)
	}
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) MultiGet(args *PrefixArgs, reply *StringsReply) error {
	values, err := s.store.MultiGet(context.Background(), args.Prefix)
	if err == nil {
		reply.Values, err = encodeSlice(values)
	}
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) ChainSet(args *ChainSetArgs, reply *EmptyReply) error {
	value, err := kvdict.Decode(args.Value)
	if err == nil {
		err = s.store.ChainSet(context.Background(), args.Path, value)
	}
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) ChainGet(args *PathArgs, reply *ValueReply) error {
	value, err := s.store.ChainGet(context.Background(), args.Path)
	if err == nil {
		reply.Value, err = kvdict.Encode(value)
	}
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) ChainDel(args *PathArgs, reply *EmptyReply) error {
	reply.ErrKind, reply.ErrMsg = errFields(s.store.ChainDel(context.Background(), args.Path))
	return nil
}

func (s *storeServer) ToMap(args *EmptyArgs, reply *MapReply) error {
	state, err := s.store.ToMap(context.Background())
	if err == nil {
		reply.Values = make(map[string]string, len(state))
		for key, value := range state {
			raw, encErr := kvdict.Encode(value)
			if encErr != nil {
				err = encErr
				break
			}
			reply.Values[key] = raw
		}
	}
	reply.ErrKind, reply.ErrMsg = errFields(err)
	return nil
}

func (s *storeServer) Clear(args *EmptyArgs, reply *EmptyReply) error {
	reply.ErrKind, reply.ErrMsg = errFields(s.store.Clear(context.Background()))
	return nil
}

func (s *storeServer) Close(args *EmptyArgs, reply *EmptyReply) error {
	if s.store == nil {
		return nil
	}
	reply.ErrKind, reply.ErrMsg = errFields(s.store.Close())
	return nil
}

func encodeSlice(values []any) ([]string, error) {
	out := make([]string, len(values))
	for i, value := range values {
		raw, err := kvdict.Encode(value)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}
