package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tandem/domain"
)

var ErrAlreadyJoined = errors.New("agent already joined")

// Hub はチームごとの接続中メンバーを管理し、フレームを同じチームの他メンバーへ中継します。
type Hub struct {
	mu    sync.RWMutex
	teams map[string]map[domain.AgentID]*peer
}

func NewHub() *Hub {
	return &Hub{teams: make(map[string]map[domain.AgentID]*peer)}
}

func (h *Hub) join(p *peer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.teams[p.team]
	if !ok {
		members = make(map[domain.AgentID]*peer)
		h.teams[p.team] = members
	}
	if _, exists := members[p.id]; exists {
		return ErrAlreadyJoined
	}
	members[p.id] = p
	return nil
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.teams[p.team]
	if members[p.id] != p {
		return
	}
	delete(members, p.id)
	if len(members) == 0 {
		delete(h.teams, p.team)
	}
}

// forward は from 以外の同じチームのメンバーへ data を積みます。詰まっている相手の分は捨てます。
func (h *Hub) forward(ctx context.Context, from *peer, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for id, p := range h.teams[from.team] {
		if id == from.id {
			continue
		}
		if err := p.send(data); err != nil {
			slog.WarnContext(ctx, "relay drop", "team", from.team, "to", id, "err", err)
			continue
		}
		n++
	}
	return n
}

// Members は team の接続中メンバー数を返します。
func (h *Hub) Members(team string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.teams[team])
}
