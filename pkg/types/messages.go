package types

// Server -> Client frames on the observer stream.
const (
	MsgFullSnapshot = "FullSnapshot"
	MsgDelta        = "Delta"
	MsgHeartbeat    = "Heartbeat"
	MsgError        = "Error"
)

type ServerMessage struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Delta    *Delta    `json:"delta,omitempty"`
	Error    string    `json:"error,omitempty"`
}
