package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jsvensson/colormerge/internal/message"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const serverName = "colormerge-session"

// JSON-RPC methods. MethodMessage carries a message.Request and answers with a
// message.Response, or null when the message expects none. MethodClose is a
// notification.
const (
	MethodMessage = "colormerge/message"
	MethodClose   = "colormerge/close"
)

// RPCHandler exposes a Controller as a glsp handler. The LSP lifecycle
// methods are answered too, so generic JSON-RPC clients can handshake.
type RPCHandler struct {
	controller *Controller
	lifecycle  protocol.Handler
	version    string
	done       chan struct{}
	once       sync.Once
}

var _ glsp.Handler = (*RPCHandler)(nil)

// NewRPCHandler wraps c.
func NewRPCHandler(c *Controller) *RPCHandler {
	h := &RPCHandler{controller: c, version: "dev", done: make(chan struct{})}
	h.lifecycle = protocol.Handler{
		Initialize:  h.initialize,
		Initialized: h.initialized,
		Shutdown:    h.shutdown,
		SetTrace:    h.setTrace,
	}
	return h
}

// Done is closed once the session has been closed.
func (h *RPCHandler) Done() <-chan struct{} {
	return h.done
}

func (h *RPCHandler) Handle(ctx *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	switch ctx.Method {
	case MethodMessage:
		var req message.Request
		if err := json.Unmarshal(ctx.Params, &req); err != nil {
			return nil, true, false, err
		}
		resp, ok := h.controller.Handle(context.Background(), req)
		h.checkClosed()
		if !ok {
			return nil, true, true, nil
		}
		return resp, true, true, nil

	case MethodClose, "exit":
		h.close()
		return nil, true, true, nil

	case "initialize", "initialized", "shutdown", "$/setTrace":
		return h.lifecycle.Handle(ctx)
	}

	return nil, false, false, nil
}

func (h *RPCHandler) close() {
	h.controller.Handle(context.Background(), message.Request{Type: message.TypeClose})
	h.checkClosed()
}

func (h *RPCHandler) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	return protocol.InitializeResult{
		Capabilities: h.lifecycle.CreateServerCapabilities(),
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &h.version,
		},
	}, nil
}

func (h *RPCHandler) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (h *RPCHandler) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (h *RPCHandler) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (h *RPCHandler) checkClosed() {
	if h.controller.Closed() {
		h.once.Do(func() { close(h.done) })
	}
}

// Server serves a Controller over JSON-RPC on stdio.
type Server struct {
	handler *RPCHandler
	debug   bool
}

// NewServer returns a stdio server for c reporting version on initialize.
func NewServer(c *Controller, version string, debug bool) *Server {
	h := NewRPCHandler(c)
	h.version = version
	return &Server{handler: h, debug: debug}
}

// Run serves until the client closes the session or the stream ends.
func (s *Server) Run() error {
	srv := server.NewServer(s.handler, serverName, s.debug)

	errc := make(chan error, 1)
	go func() { errc <- srv.RunStdio() }()

	select {
	case err := <-errc:
		return err
	case <-s.handler.Done():
		return nil
	}
}
