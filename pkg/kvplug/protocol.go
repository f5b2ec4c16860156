package kvplug

// Wire types for the revision protocol, exported because net/rpc only
// serves methods whose argument and reply types are exported. Values
// cross the boundary in the kvdict tagged form, never as bare interface
// values, so gob needs no type registry and nil round-trips cleanly.
// Raised store errors travel as explicit kind and message fields;
// net/rpc flattens Go error values to strings, which would destroy
// kind-based comparison.

type ConfigureArgs struct {
	Endpoint  string
	Namespace string
}

type EmptyArgs struct{}

type KeyArgs struct {
	Key string
}

type SetArgs struct {
	Key   string
	Value string
}

type ExpireArgs struct {
	Key     string
	TTLNano int64
}

type KeysArgs struct {
	Keys []string
}

type PrefixArgs struct {
	Prefix string
}

type PathArgs struct {
	Path []string
}

type ChainSetArgs struct {
	Path  []string
	Value string
}

type ItemsArgs struct {
	Items map[string]string
}

type EmptyReply struct {
	ErrKind string
	ErrMsg  string
}

type ValueReply struct {
	Value   string
	ErrKind string
	ErrMsg  string
}

type BoolReply struct {
	Value   bool
	ErrKind string
	ErrMsg  string
}

type Int64Reply struct {
	Value   int64
	ErrKind string
	ErrMsg  string
}

type StringsReply struct {
	Values  []string
	ErrKind string
	ErrMsg  string
}

type MapReply struct {
	Values  map[string]string
	ErrKind string
	ErrMsg  string
}
