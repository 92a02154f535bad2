package eth

import (
	"context"

	"github.com/ethereum/go-ethereum/rpc"
)

// Transport is the JSON-RPC capability the client is built on. It must be
// safe for concurrent use if the client is shared between goroutines.
// *rpc.Client satisfies it for HTTP, WebSocket and IPC endpoints.
type Transport interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// GethClient exposes the geth and anvil RPC methods needed to build
// circuit inputs, with typed parameters and results.
type GethClient struct {
	transport      Transport
	checkMemStrict bool
}

// Option configures a GethClient.
type Option func(*GethClient)

// WithMemoryStrict makes TraceTransaction request memory capture.
func WithMemoryStrict(strict bool) Option {
	return func(c *GethClient) {
		c.checkMemStrict = strict
	}
}

// NewGethClient wraps a transport.
func NewGethClient(transport Transport, opts ...Option) *GethClient {
	c := &GethClient{transport: transport}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to url (http, ws or ipc path) and returns a client on top of
// the go-ethereum rpc.Client, along with the rpc.Client so the caller can
// Close it.
func Dial(ctx context.Context, url string, opts ...Option) (*GethClient, *rpc.Client, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return NewGethClient(rpcClient, opts...), rpcClient, nil
}
