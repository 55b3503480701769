package model

import (
	"time"

	"gorm.io/gorm"
)

type Mode string

const (
	ModeSnake   Mode = "SNAKE"
	ModeAuction Mode = "AUCTION"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
)

type AuctionPhase string

const (
	PhaseNominating AuctionPhase = "NOMINATING"
	PhaseBidding    AuctionPhase = "BIDDING"
)

type ItemStatus string

const (
	ItemAvailable ItemStatus = "AVAILABLE"
	ItemDrafted   ItemStatus = "DRAFTED"
)

// Contest is the aggregate root. Version is the optimistic-lock token: it
// changes on every successful mutation and only on successful mutation.
type Contest struct {
	ID      string `gorm:"primaryKey"`
	Name    string
	AdminID string
	Mode    Mode
	Status  Status

	// DraftOrder is a player-id sequence of length players*rounds. Snake
	// mode indexes it directly with CurrentTurn; auction mode indexes it
	// modulo the player count (round-robin nomination).
	DraftOrder  StringList `gorm:"type:jsonb"`
	CurrentTurn int

	AuctionPhase    AuctionPhase
	ActiveItemID    string
	HighestBid      int
	HighestBidderID string
	BidEndTime      *time.Time

	IsPaused            bool
	PausedTimeRemaining time.Duration

	PlayerBudget      int
	MaxItemsPerPlayer int
	AuctionBasePrice  int
	AuctionBidDur     time.Duration

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Player struct {
	ID        string `gorm:"primaryKey"`
	ContestID string `gorm:"index"`
	Name      string
	Tokens    int
	CreatedAt time.Time
}

// PlayerState is a player plus the derived roster count for one contest.
// OwnedItemCount never counts roster entries from other contests.
type PlayerState struct {
	Player
	OwnedItemCount int
}

type PoolItem struct {
	ID        string `gorm:"primaryKey"`
	ContestID string `gorm:"index"`
	Name      string
	BasePrice int
	Status    ItemStatus

	// ExclusiveGroup marks a mutually-exclusive family of items; a player
	// may own at most one item per non-empty group within a contest.
	ExclusiveGroup string

	TierID string
}

// PriceTier buckets snake-mode items at one fixed price. Every AVAILABLE
// item must belong to exactly one tier before a snake draft may start.
type PriceTier struct {
	ID        string `gorm:"primaryKey"`
	ContestID string `gorm:"index"`
	Name      string
	Price     int
}

type RosterEntry struct {
	ID            string `gorm:"primaryKey"`
	ContestID     string `gorm:"index"`
	PlayerID      string `gorm:"index"`
	ItemID        string `gorm:"uniqueIndex"`
	PurchasePrice int
	CreatedAt     time.Time
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Contest{},
		&Player{},
		&PoolItem{},
		&PriceTier{},
		&RosterEntry{},
		&ActionLogEntry{},
	)
}
