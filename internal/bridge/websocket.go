package bridge

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Path is the HTTP path the websocket endpoint is served on.
const Path = "/bridge"

// Server exposes a Handler over websocket. Every connection is served by
// the same Handler.
type Server struct {
	handler Handler
	token   string
	addr    string
	logger  *slog.Logger

	mu        sync.Mutex
	httpSrv   *http.Server
	boundAddr string
	conns     map[*wsConn]struct{}
}

// NewServer creates a server listening on addr. An empty token disables
// authentication.
func NewServer(h Handler, addr, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		handler: h,
		token:   token,
		addr:    addr,
		logger:  logger,
		conns:   make(map[*wsConn]struct{}),
	}
}

// Start accepts connections until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleUpgrade)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bridge listen: %w", err)
	}

	httpSrv := &http.Server{
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.boundAddr = listener.Addr().String()
	s.httpSrv = httpSrv
	s.mu.Unlock()

	s.logger.Info("[BRIDGE] server started", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bridge serve: %w", err)
	}
	return nil
}

// Stop closes every connection and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpSrv := s.httpSrv
	conns := make([]*wsConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.ws.Close(websocket.StatusGoingAway, "server shutting down")
	}
	if httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// BoundAddr returns the address the server bound to. Empty before Start.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

func (s *Server) authorized(token string) bool {
	if s.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r.URL.Query().Get("token")) {
		s.logger.Warn("[BRIDGE] rejected connection", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost", "localhost:*", "127.0.0.1", "127.0.0.1:*", "[::1]", "[::1]:*"},
	})
	if err != nil {
		s.logger.Warn("[BRIDGE] websocket accept failed", "error", err)
		return
	}

	conn := &wsConn{ws: ws}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("[BRIDGE] client connected", "remote", r.RemoteAddr)

	if err := Serve(r.Context(), conn, s.handler, s.logger); err != nil {
		s.logger.Debug("[BRIDGE] connection ended", "remote", r.RemoteAddr, "error", err)
	}

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.logger.Info("[BRIDGE] client disconnected", "remote", r.RemoteAddr)
}

// Dial connects to a bridge server. rawURL is the server's base URL
// (ws://host:port); the endpoint path and token are added here.
func Dial(ctx context.Context, rawURL, token string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bridge: parse url %q: %w", rawURL, err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = Path
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	ws, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial %s: %w", u.Redacted(), err)
	}
	return NewClient(&wsConn{ws: ws}, logger), nil
}

// wsConn carries frames as JSON websocket messages.
type wsConn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
}

func (c *wsConn) ReadFrame(ctx context.Context) (Frame, error) {
	var f Frame
	if err := wsjson.Read(ctx, c.ws, &f); err != nil {
		if isCloseErr(err) {
			return Frame{}, ErrClosed
		}
		return Frame{}, err
	}
	return f, nil
}

func (c *wsConn) WriteFrame(ctx context.Context, f Frame) error {
	if err := wsjson.Write(ctx, c.ws, f); err != nil {
		if isCloseErr(err) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close(websocket.StatusNormalClosure, "")
	})
	return err
}

func isCloseErr(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
