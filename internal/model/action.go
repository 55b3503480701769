package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type ActionType string

const (
	ActionPick        ActionType = "PICK"
	ActionNominate    ActionType = "NOMINATE"
	ActionBid         ActionType = "BID"
	ActionSettle      ActionType = "SETTLE"
	ActionStart       ActionType = "START"
	ActionAdminPause  ActionType = "ADMIN_PAUSE"
	ActionAdminResume ActionType = "ADMIN_RESUME"
	ActionAdminSkip   ActionType = "ADMIN_SKIP"
	ActionAdminUndo   ActionType = "ADMIN_UNDO"
)

// ActionDetail is a closed set of per-action payloads. Each variant carries
// exactly the fields its action needs, so history reconstruction (undo) is
// checked at compile time instead of poking at loose JSON.
type ActionDetail interface{ Kind() ActionType }

type PickDetail struct {
	PlayerID  string `json:"player_id"`
	ItemID    string `json:"item_id"`
	Cost      int    `json:"cost"`
	TurnIndex int    `json:"turn_index"`
}

type NominateDetail struct {
	PlayerID   string     `json:"player_id"`
	ItemID     string     `json:"item_id"`
	OpeningBid int        `json:"opening_bid"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}

type BidDetail struct {
	PlayerID string `json:"player_id"`
	ItemID   string `json:"item_id"`
	Amount   int    `json:"amount"`
}

type SettleDetail struct {
	WinnerID  string `json:"winner_id"`
	ItemID    string `json:"item_id"`
	Cost      int    `json:"cost"`
	TurnIndex int    `json:"turn_index"`
}

type StartDetail struct {
	AdminID string   `json:"admin_id"`
	Order   []string `json:"order"`
}

type PauseDetail struct {
	AdminID   string        `json:"admin_id"`
	Remaining time.Duration `json:"remaining_ns"`
}

type ResumeDetail struct {
	AdminID string `json:"admin_id"`
}

type SkipDetail struct {
	AdminID         string `json:"admin_id"`
	SkippedPlayerID string `json:"skipped_player_id"`
	TurnIndex       int    `json:"turn_index"`
}

type UndoDetail struct {
	AdminID     string `json:"admin_id"`
	PlayerID    string `json:"player_id"`
	ItemID      string `json:"item_id"`
	Refund      int    `json:"refund"`
	RewoundTurn int    `json:"rewound_turn"`
}

func (PickDetail) Kind() ActionType     { return ActionPick }
func (NominateDetail) Kind() ActionType { return ActionNominate }
func (BidDetail) Kind() ActionType      { return ActionBid }
func (SettleDetail) Kind() ActionType   { return ActionSettle }
func (StartDetail) Kind() ActionType    { return ActionStart }
func (PauseDetail) Kind() ActionType    { return ActionAdminPause }
func (ResumeDetail) Kind() ActionType   { return ActionAdminResume }
func (SkipDetail) Kind() ActionType     { return ActionAdminSkip }
func (UndoDetail) Kind() ActionType     { return ActionAdminUndo }

// ActionLogEntry is append-only: inserted on every successful mutation,
// never updated or deleted. The auto-increment id plus CreatedAt give the
// total order used for undo lookup.
type ActionLogEntry struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ContestID string `gorm:"index"`
	Type      ActionType
	Detail    []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func NewActionLogEntry(contestID string, d ActionDetail) (ActionLogEntry, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return ActionLogEntry{}, fmt.Errorf("encode %s detail: %w", d.Kind(), err)
	}
	return ActionLogEntry{ContestID: contestID, Type: d.Kind(), Detail: raw}, nil
}

// DecodeDetail rebuilds the typed payload for a log row.
func (e ActionLogEntry) DecodeDetail() (ActionDetail, error) {
	var d ActionDetail
	switch e.Type {
	case ActionPick:
		d = &PickDetail{}
	case ActionNominate:
		d = &NominateDetail{}
	case ActionBid:
		d = &BidDetail{}
	case ActionSettle:
		d = &SettleDetail{}
	case ActionStart:
		d = &StartDetail{}
	case ActionAdminPause:
		d = &PauseDetail{}
	case ActionAdminResume:
		d = &ResumeDetail{}
	case ActionAdminSkip:
		d = &SkipDetail{}
	case ActionAdminUndo:
		d = &UndoDetail{}
	default:
		return nil, fmt.Errorf("unknown action type %q", e.Type)
	}
	if err := json.Unmarshal(e.Detail, d); err != nil {
		return nil, fmt.Errorf("decode %s detail: %w", e.Type, err)
	}
	return d, nil
}
