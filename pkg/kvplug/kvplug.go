// Package kvplug carries a revision across a process boundary. Each side
// of a comparison is a standalone executable built from its own checkout
// of the wrapper and launched as a subprocess, so two differing builds of
// the same library never share a runtime, package state, or import
// graph. The harness drives the subprocess over hashicorp/go-plugin's
// net/rpc protocol and receives a kvdict.Store whose calls execute
// inside the revision process.
package kvplug

import (
	"fmt"
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// Handshake rejects executables that are not revision servers before any
// store call is attempted.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "KVDIFF_REVISION",
	MagicCookieValue: "kvdiff-revision-v1",
}

const pluginName = "store"

// StorePlugin wires a kvdict.Constructor into the plugin protocol. The
// harness side dispenses with a zero Ctor; the revision side serves one.
type StorePlugin struct {
	Ctor kvdict.Constructor
}

// Server returns the RPC server the revision process exposes.
func (p *StorePlugin) Server(*plugin.MuxBroker) (any, error) {
	return &storeServer{ctor: p.Ctor}, nil
}

// Client returns the harness-side store bound to the RPC connection.
func (p *StorePlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &storeClient{rpc: c}, nil
}

// Serve runs the revision side of the protocol. A revision executable's
// main calls Serve with its store constructor; it does not return.
func Serve(ctor kvdict.Constructor) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginName: &StorePlugin{Ctor: ctor},
		},
	})
}

// Dial launches the revision executable at path, dispenses its store, and
// binds it to endpoint and namespace. Closing the returned store
// terminates the revision process.
func Dial(path, endpoint, namespace string) (kvdict.Store, error) {
	pc := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins:         map[string]plugin.Plugin{pluginName: &StorePlugin{}},
		Cmd:             exec.Command(path),
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:  "revision",
			Level: hclog.Warn,
		}),
	})

	rpcClient, err := pc.Client()
	if err != nil {
		pc.Kill()
		return nil, fmt.Errorf("start revision %s: %w", path, err)
	}
	raw, err := rpcClient.Dispense(pluginName)
	if err != nil {
		pc.Kill()
		return nil, fmt.Errorf("dispense revision %s: %w", path, err)
	}
	store, ok := raw.(*storeClient)
	if !ok {
		pc.Kill()
		return nil, fmt.Errorf("revision %s served unexpected type %T", path, raw)
	}
	store.kill = pc.Kill

	if err := store.configure(endpoint, namespace); err != nil {
		pc.Kill()
		return nil, err
	}
	return store, nil
}
