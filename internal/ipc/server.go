package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Mux routes requests by command name.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

// Handle registers h for command, replacing any earlier registration.
func (m *Mux) Handle(command string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[strings.ToLower(command)] = h
}

func (m *Mux) HandleFunc(command string, fn func(context.Context, Request) Response) {
	m.Handle(command, HandlerFunc(fn))
}

// Commands lists the registered commands, sorted.
func (m *Mux) Commands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.handlers))
	for cmd := range m.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Serve implements Handler. Unknown commands answer an error.
func (m *Mux) Serve(ctx context.Context, req Request) Response {
	m.mu.RLock()
	h, ok := m.handlers[strings.ToLower(strings.TrimSpace(req.Command))]
	m.mu.RUnlock()
	if !ok {
		return Response{OK: false, Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
	return h.Handle(ctx, req)
}

// Handler adapts the mux for Serve.
func (m *Mux) Handler() Handler {
	return HandlerFunc(m.Serve)
}

// Serve accepts unix-socket clients until context cancellation or listener close.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			_ = json.NewEncoder(c).Encode(serveConn(ctx, c, handler))
		}(conn)
	}
}

func serveConn(ctx context.Context, c net.Conn, handler Handler) Response {
	line, err := bufio.NewReader(c).ReadBytes('\n')
	if err != nil {
		return Response{OK: false, Error: fmt.Sprintf("read request: %v", err)}
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)}
	}
	return handler.Handle(ctx, req)
}
