package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Server is the control server.
type Server struct {
	httpServer *http.Server
}

// New creates a control server for addr. Bind with Listen, then Serve.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Listen binds the configured address. Binding separately from Serve lets
// the caller fail startup on a taken port and learn the port picked for
// ":0".
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.httpServer.Addr)
}

// Serve accepts connections on l until Shutdown. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
