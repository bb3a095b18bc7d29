package bridge

import (
	"context"
	"log/slog"
)

// NewLocal serves h in-process and returns a client connected to it. The
// server side stops when ctx is cancelled or the client is closed.
func NewLocal(ctx context.Context, h Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	clientEnd, serverEnd := Pipe()
	go func() {
		if err := Serve(ctx, serverEnd, h, logger); err != nil {
			logger.Error("[BRIDGE] local serve failed", "error", err)
		}
		clientEnd.Close()
	}()
	return NewClient(clientEnd, logger)
}
