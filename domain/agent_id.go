package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// AgentID はチームメンバー1体を識別する UUID です。ヘッダにはそのまま16バイトで載ります。
type AgentID uuid.UUID

func NewAgentID() AgentID {
	return AgentID(uuid.New())
}

// ParseAgentID は文字列表現の UUID を AgentID に変換します。
func ParseAgentID(s string) (AgentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AgentID{}, fmt.Errorf("parse agent id %q: %w", s, err)
	}
	return AgentID(u), nil
}

func (id AgentID) Bytes() [16]byte {
	return id
}

func (id AgentID) String() string {
	return uuid.UUID(id).String()
}

func (id AgentID) IsZero() bool {
	return id == AgentID{}
}
