package draft

import (
	"context"

	"github.com/pokedraft/pokedraft-backend/internal/model"
)

// Store is the transactional contract the mutator needs from the record
// store. Every mutation runs inside one Tx callback; a callback error rolls
// the whole transaction back.
type Store interface {
	Tx(ctx context.Context, fn func(tx StoreTx) error) error
}

// StoreTx is one open transaction. GetContestForUpdate and
// GetPlayerForUpdate take row locks and are used only by settlement, which
// touches multiple related rows; every other mutation relies on the
// version-checked CompareAndSwapContest alone.
type StoreTx interface {
	CreateContest(c *model.Contest) error
	GetContest(id string) (*model.Contest, error)
	GetContestForUpdate(id string) (*model.Contest, error)

	// CompareAndSwapContest persists c's mutable fields with
	// "WHERE id = ? AND version = ?" and bumps the version. A false
	// return means zero rows matched: someone else won the race.
	CompareAndSwapContest(c *model.Contest, expectedVersion int64) (bool, error)

	CreatePlayer(p *model.Player) error
	GetPlayer(contestID, playerID string) (*model.Player, error)
	GetPlayerForUpdate(contestID, playerID string) (*model.Player, error)
	ListPlayers(contestID string) ([]model.Player, error)
	UpdatePlayerTokens(playerID string, tokens int) error

	// CountOwned counts roster entries of one player whose items belong
	// to this contest's pool, never entries from other contests.
	CountOwned(contestID, playerID string) (int, error)
	OwnsInExclusiveGroup(contestID, playerID, group string) (bool, error)

	CreatePoolItem(i *model.PoolItem) error
	GetPoolItem(contestID, itemID string) (*model.PoolItem, error)
	ListItems(contestID string) ([]model.PoolItem, error)
	ListAvailableItems(contestID string) ([]model.PoolItem, error)
	UpdateItemStatus(itemID string, status model.ItemStatus) error

	CreateTier(t *model.PriceTier) error
	ListTiers(contestID string) ([]model.PriceTier, error)

	CreateRosterEntry(e *model.RosterEntry) error
	GetRosterEntry(contestID, playerID, itemID string) (*model.RosterEntry, error)
	DeleteRosterEntry(contestID, playerID, itemID string) error
	ListRoster(contestID string) ([]model.RosterEntry, error)

	AppendAction(e *model.ActionLogEntry) error
	// LatestAwardAction returns the most recent PICK or SETTLE entry,
	// the two action kinds that award an item and can be undone.
	LatestAwardAction(contestID string) (*model.ActionLogEntry, error)
}
