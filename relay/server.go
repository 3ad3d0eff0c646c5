package relay

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options はリレーサーバーの設定です。
type Options struct {
	Addr        string
	Secret      []byte
	QueueSize   int
	IdleTimeout time.Duration
}

// Route は /ws と /healthz を登録したハンドラを otelhttp で包んで返します。
func Route(hub *Hub, opts Options) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", NewAcceptHandler(hub, opts.Secret, opts.QueueSize, opts.IdleTimeout))
	mux.Handle("/healthz", NewHealthHandler())
	return otelhttp.NewHandler(mux, "relay")
}

type Server struct {
	HTTP *http.Server
	Hub  *Hub
}

func NewServer(opts Options) *Server {
	hub := NewHub()
	return &Server{
		HTTP: &http.Server{
			Addr:              opts.Addr,
			Handler:           Route(hub, opts),
			ReadHeaderTimeout: 5 * time.Second,
		},
		Hub: hub,
	}
}

// Serve は ctx をリクエストの親にして待ち受けます。ctx が終わると中継中の接続も閉じます。
func (s *Server) Serve(ctx context.Context) error {
	s.HTTP.BaseContext = func(net.Listener) context.Context { return ctx }
	return s.HTTP.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error { return s.HTTP.Shutdown(ctx) }
func (s *Server) Close() error                       { return s.HTTP.Close() }
func (s *Server) Addr() string                       { return s.HTTP.Addr }
