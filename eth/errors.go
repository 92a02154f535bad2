package eth

import (
	"errors"
	"fmt"
)

// ErrJSONRpc matches every error returned by GethClient.
var ErrJSONRpc = errors.New("json-rpc request failed")

// Error is the single failure kind of GethClient. Err is the transport
// failure, the node's JSON-RPC error or the decode failure.
type Error struct {
	Method string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("json-rpc %s: %v", e.Method, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrJSONRpc
}
