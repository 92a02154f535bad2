// Package rpctest runs an in-process fake JSON-RPC node that records every
// call it receives. It answers over HTTP POST and over WebSocket on the same
// path, so it can back a go-ethereum rpc.Client dialled with either scheme.
package rpctest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Call is a request as received by the node.
type Call struct {
	Method string
	Params []json.RawMessage
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Handler produces the result of a method. A nil result is sent as null.
type Handler func(params []json.RawMessage) (interface{}, *Error)

type request struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Node is the fake node. Register handlers before serving.
type Node struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call

	router   *gin.Engine
	upgrader websocket.Upgrader
}

// NewNode returns a node with no methods.
func NewNode() *Node {
	gin.SetMode(gin.ReleaseMode)

	n := &Node{
		handlers: make(map[string]Handler),
		router:   gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	n.router.Use(gin.Recovery())
	n.router.POST("/", n.serveHTTP)
	n.router.GET("/", n.serveWebSocket)
	return n
}

// Handler returns the HTTP handler of the node, for use with httptest.
func (n *Node) Handler() http.Handler {
	return n.router
}

// Handle registers h for method.
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// HandleResult registers a method that always returns result.
func (n *Node) HandleResult(method string, result interface{}) {
	n.Handle(method, func([]json.RawMessage) (interface{}, *Error) {
		return result, nil
	})
}

// HandleError registers a method that always fails.
func (n *Node) HandleError(method string, code int, message string) {
	n.Handle(method, func([]json.RawMessage) (interface{}, *Error) {
		return nil, &Error{Code: code, Message: message}
	})
}

// Calls returns the calls received so far, in arrival order.
func (n *Node) Calls() []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	calls := make([]Call, len(n.calls))
	copy(calls, n.calls)
	return calls
}

func (n *Node) dispatch(req request) response {
	n.mu.Lock()
	n.calls = append(n.calls, Call{Method: req.Method, Params: req.Params})
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := response{JSONRPC: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &Error{Code: -32601, Message: fmt.Sprintf("the method %s does not exist/is not available", req.Method)}
		return resp
	}

	result, rpcErr := h(req.Params)
	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}
	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = &Error{Code: -32603, Message: err.Error()}
		return resp
	}
	resp.Result = data
	return resp
}

// process handles a single request or a batch.
func (n *Node) process(body []byte) (interface{}, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var reqs []request
		if err := json.Unmarshal(body, &reqs); err != nil {
			return nil, err
		}
		resps := make([]response, len(reqs))
		for i, req := range reqs {
			resps[i] = n.dispatch(req)
		}
		return resps, nil
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return n.dispatch(req), nil
}

func (n *Node) serveHTTP(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := n.process(body)
	if err != nil {
		c.JSON(http.StatusOK, response{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &Error{Code: -32700, Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (n *Node) serveWebSocket(c *gin.Context) {
	conn, err := n.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(16 * 1024 * 1024)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		resp, err := n.process(message)
		if err != nil {
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
