package relay

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	adapterwebsocket "tandem/adapter/websocket"
	"tandem/domain"
)

const (
	DefaultQueueSize   = 64
	DefaultIdleTimeout = 30 * time.Second
)

// AcceptHandler はトークンを検証してから WebSocket を受け入れ、接続を Hub に登録します。
type AcceptHandler struct {
	hub         *Hub
	secret      []byte
	queueSize   int
	idleTimeout time.Duration
}

// NewAcceptHandler は idleTimeout が 0 なら既定値を使い、負なら無通信での切断をしません。
func NewAcceptHandler(hub *Hub, secret []byte, queueSize int, idleTimeout time.Duration) *AcceptHandler {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if idleTimeout == 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &AcceptHandler{hub: hub, secret: secret, queueSize: queueSize, idleTimeout: idleTimeout}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := bearerToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	ident, err := ParseToken(h.secret, token)
	if err != nil {
		slog.WarnContext(ctx, "relay rejected token", "err", err)
		http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	p := newPeer(ident, adapterwebsocket.NewTransportFrom(conn), h.queueSize, h.idleTimeout)
	if err := h.hub.join(p); err != nil {
		slog.WarnContext(ctx, "relay join rejected", "team", ident.Team, "agentID", ident.AgentID, "err", err)
		p.close(domain.CloseRejected)
		return
	}
	defer h.hub.leave(p)

	slog.InfoContext(ctx, "relay joined", "team", ident.Team, "agentID", ident.AgentID)
	if err := p.run(ctx, h.hub); err != nil && !errors.Is(err, ctx.Err()) {
		slog.WarnContext(ctx, "relay peer stopped", "agentID", ident.AgentID, "err", err)
	}
	slog.InfoContext(ctx, "relay left", "team", ident.Team, "agentID", ident.AgentID, "reason", p.session.CloseReason())
}

func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}
