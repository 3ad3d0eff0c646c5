package domain

import "fmt"

type IdleReason uint8

const (
	IdleNone     IdleReason = 0
	IdleRead     IdleReason = 1 << 0
	IdleWrite    IdleReason = 1 << 1
	IdleDisabled IdleReason = 1 << 7 // timeout<=0 のとき
)

func (r IdleReason) Has(x IdleReason) bool { return r&x != 0 }

func (r IdleReason) String() string {
	switch {
	case r == IdleNone:
		return "none"
	case r == IdleDisabled:
		return "disabled"
	case r == IdleRead|IdleWrite:
		return "read|write"
	case r == IdleRead:
		return "read"
	case r == IdleWrite:
		return "write"
	default:
		return fmt.Sprintf("unknown(%d)", r)
	}
}
