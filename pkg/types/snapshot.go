package types

import "time"

// Snapshot is the full contest view sent once, when an observer
// subscribes. Everything a client needs to render from scratch.
type Snapshot struct {
	ContestID         string       `json:"contest_id"`
	Name              string       `json:"name"`
	Mode              string       `json:"mode"`
	Status            string       `json:"status"`
	Version           int64        `json:"version"`
	DraftOrder        []string     `json:"draft_order"`
	CurrentTurn       int          `json:"current_turn"`
	CurrentPlayerID   string       `json:"current_player_id,omitempty"`
	AuctionPhase      string       `json:"auction_phase,omitempty"`
	ActiveItemID      string       `json:"active_item_id,omitempty"`
	HighestBid        int          `json:"highest_bid,omitempty"`
	HighestBidderID   string       `json:"highest_bidder_id,omitempty"`
	BidEndTime        *time.Time   `json:"bid_end_time,omitempty"`
	IsPaused          bool         `json:"is_paused"`
	PlayerBudget      int          `json:"player_budget"`
	MaxItemsPerPlayer int          `json:"max_items_per_player"`
	Players           []PlayerView `json:"players"`
	Items             []ItemView   `json:"items"`
	Tiers             []TierView   `json:"tiers,omitempty"`
	Roster            []RosterView `json:"roster"`
}

type PlayerView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Tokens         int    `json:"tokens"`
	OwnedItemCount int    `json:"owned_item_count"`
}

type ItemView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BasePrice int    `json:"base_price"`
	Status    string `json:"status"`
	TierID    string `json:"tier_id,omitempty"`
}

type TierView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

type RosterView struct {
	PlayerID      string `json:"player_id"`
	ItemID        string `json:"item_id"`
	PurchasePrice int    `json:"purchase_price"`
}

// Delta carries only the fields that move during a draft. Subscribers merge
// it onto their last full snapshot; static fields (names, tiers, prices)
// are preserved from whatever they already hold.
type Delta struct {
	Version         int64             `json:"version"`
	Status          string            `json:"status"`
	CurrentTurn     int               `json:"current_turn"`
	CurrentPlayerID string            `json:"current_player_id,omitempty"`
	AuctionPhase    string            `json:"auction_phase,omitempty"`
	ActiveItemID    string            `json:"active_item_id,omitempty"`
	HighestBid      int               `json:"highest_bid,omitempty"`
	HighestBidderID string            `json:"highest_bidder_id,omitempty"`
	BidEndTime      *time.Time        `json:"bid_end_time,omitempty"`
	IsPaused        bool              `json:"is_paused"`
	PlayerTokens    map[string]int    `json:"player_tokens"`
	OwnedCounts     map[string]int    `json:"owned_counts"`
	ItemStatuses    map[string]string `json:"item_statuses"`
}

// DeltaOf projects the dynamic fields out of a full snapshot.
func DeltaOf(s *Snapshot) *Delta {
	d := &Delta{
		Version:         s.Version,
		Status:          s.Status,
		CurrentTurn:     s.CurrentTurn,
		CurrentPlayerID: s.CurrentPlayerID,
		AuctionPhase:    s.AuctionPhase,
		ActiveItemID:    s.ActiveItemID,
		HighestBid:      s.HighestBid,
		HighestBidderID: s.HighestBidderID,
		BidEndTime:      s.BidEndTime,
		IsPaused:        s.IsPaused,
		PlayerTokens:    make(map[string]int, len(s.Players)),
		OwnedCounts:     make(map[string]int, len(s.Players)),
		ItemStatuses:    make(map[string]string, len(s.Items)),
	}
	for _, p := range s.Players {
		d.PlayerTokens[p.ID] = p.Tokens
		d.OwnedCounts[p.ID] = p.OwnedItemCount
	}
	for _, it := range s.Items {
		d.ItemStatuses[it.ID] = it.Status
	}
	return d
}
