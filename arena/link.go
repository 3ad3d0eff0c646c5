package arena

import (
	"context"
	"log/slog"

	"tandem/adapter/inproc"
	"tandem/domain"
)

// Link はエージェント1体分のチーム通信路です。
// Broadcast は送信、Drain はこれまでに届いたレポートをブロックせずに取り出します。
type Link interface {
	domain.Broadcaster
	Drain(ctx context.Context) []domain.Report
}

type inprocLink struct {
	domain.Broadcaster
	id    domain.AgentID
	inbox <-chan []byte
}

// NewInprocLink は bus に id を登録した Link を返します。
func NewInprocLink(bus *inproc.Bus, id domain.AgentID) Link {
	return &inprocLink{
		Broadcaster: bus.Endpoint(id),
		id:          id,
		inbox:       bus.Register(id),
	}
}

func (l *inprocLink) Drain(ctx context.Context) []domain.Report {
	var out []domain.Report
	for {
		select {
		case data, ok := <-l.inbox:
			if !ok {
				return out
			}
			header, r, err := domain.DecodeReport(data)
			if err != nil {
				slog.WarnContext(ctx, "malformed report dropped", "agentID", l.id, "err", err)
				continue
			}
			if header.Sender == l.id {
				continue
			}
			out = append(out, r)
		default:
			return out
		}
	}
}
