package domain

import (
	"context"
)

//go:generate go tool mockgen -destination=./mocks/transport_mock.go -package=mocks . Transport,Broadcaster

// Transport は Connection（物理接続）が依存するI/O境界です。
type Transport interface {
	Read(ctx context.Context) (data []byte, err error)
	Write(ctx context.Context, data []byte) error
	Close(code int32, reason string) error
}

// Broadcaster はチームメイトへエンコード済みレポートを送る出口です。
// tick 処理の中から呼ばれるため、実装はブロックしてはいけません。
type Broadcaster interface {
	Broadcast(ctx context.Context, data []byte) error
}
