package ws

// server → client
const (
	MsgReady   = "ready"
	MsgAccrual = "accrual"
	MsgPong    = "pong"
)

// client → server
const MsgPing = "ping"

type Envelope struct {
	Type string `json:"type"`
}

// AccrualPayload is pushed after an autoclicker tick credits the player.
type AccrualPayload struct {
	Type   string `json:"type"`
	Coins  int64  `json:"coins"`
	Reward int64  `json:"reward"`
}
