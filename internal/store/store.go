// Package store is the postgres-backed record store. All contest mutation
// goes through CompareAndSwapContest; row locks exist solely for the
// settlement path.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/pokedraft/pokedraft-backend/internal/draft"
	"github.com/pokedraft/pokedraft-backend/internal/model"
)

type Store struct {
	db *gorm.DB
}

var _ draft.Store = (*Store)(nil)

// Open connects, migrates the schema, and returns the store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := model.Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Tx(ctx context.Context, fn func(tx draft.StoreTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&storeTx{db: tx})
	})
}

type storeTx struct {
	db *gorm.DB
}

func first[T any](db *gorm.DB, conds ...any) (*T, error) {
	var out T
	err := db.First(&out, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *storeTx) CreateContest(c *model.Contest) error {
	return t.db.Create(c).Error
}

func (t *storeTx) GetContest(id string) (*model.Contest, error) {
	return first[model.Contest](t.db, "id = ?", id)
}

func (t *storeTx) GetContestForUpdate(id string) (*model.Contest, error) {
	return first[model.Contest](t.db.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// CompareAndSwapContest is the single conditional-update path:
// UPDATE ... SET <fields>, version = version + 1
// WHERE id = ? AND version = ?. Zero rows affected means a concurrent
// writer got there first.
func (t *storeTx) CompareAndSwapContest(c *model.Contest, expectedVersion int64) (bool, error) {
	res := t.db.Model(&model.Contest{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Updates(map[string]any{
			"status":                c.Status,
			"draft_order":           c.DraftOrder,
			"current_turn":          c.CurrentTurn,
			"auction_phase":         c.AuctionPhase,
			"active_item_id":        c.ActiveItemID,
			"highest_bid":           c.HighestBid,
			"highest_bidder_id":     c.HighestBidderID,
			"bid_end_time":          c.BidEndTime,
			"is_paused":             c.IsPaused,
			"paused_time_remaining": c.PausedTimeRemaining,
			"version":               gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	c.Version = expectedVersion + 1
	return true, nil
}

func (t *storeTx) CreatePlayer(p *model.Player) error {
	return t.db.Create(p).Error
}

func (t *storeTx) GetPlayer(contestID, playerID string) (*model.Player, error) {
	return first[model.Player](t.db, "id = ? AND contest_id = ?", playerID, contestID)
}

func (t *storeTx) GetPlayerForUpdate(contestID, playerID string) (*model.Player, error) {
	return first[model.Player](
		t.db.Clauses(clause.Locking{Strength: "UPDATE"}),
		"id = ? AND contest_id = ?", playerID, contestID)
}

func (t *storeTx) ListPlayers(contestID string) ([]model.Player, error) {
	var out []model.Player
	err := t.db.Where("contest_id = ?", contestID).Order("created_at, id").Find(&out).Error
	return out, err
}

func (t *storeTx) UpdatePlayerTokens(playerID string, tokens int) error {
	return t.db.Model(&model.Player{}).Where("id = ?", playerID).Update("tokens", tokens).Error
}

// CountOwned counts the player's roster entries whose item sits in this
// contest's pool. The subquery keeps drafts with shared player accounts
// from leaking counts across contests.
func (t *storeTx) CountOwned(contestID, playerID string) (int, error) {
	var n int64
	err := t.db.Model(&model.RosterEntry{}).
		Where("player_id = ? AND item_id IN (?)",
			playerID,
			t.db.Model(&model.PoolItem{}).Select("id").Where("contest_id = ?", contestID)).
		Count(&n).Error
	return int(n), err
}

func (t *storeTx) OwnsInExclusiveGroup(contestID, playerID, group string) (bool, error) {
	var n int64
	err := t.db.Model(&model.RosterEntry{}).
		Where("player_id = ? AND item_id IN (?)",
			playerID,
			t.db.Model(&model.PoolItem{}).Select("id").
				Where("contest_id = ? AND exclusive_group = ?", contestID, group)).
		Count(&n).Error
	return n > 0, err
}

func (t *storeTx) CreatePoolItem(i *model.PoolItem) error {
	return t.db.Create(i).Error
}

func (t *storeTx) GetPoolItem(contestID, itemID string) (*model.PoolItem, error) {
	return first[model.PoolItem](t.db, "id = ? AND contest_id = ?", itemID, contestID)
}

func (t *storeTx) ListItems(contestID string) ([]model.PoolItem, error) {
	var out []model.PoolItem
	err := t.db.Where("contest_id = ?", contestID).Find(&out).Error
	return out, err
}

func (t *storeTx) ListAvailableItems(contestID string) ([]model.PoolItem, error) {
	var out []model.PoolItem
	err := t.db.Where("contest_id = ? AND status = ?", contestID, model.ItemAvailable).Find(&out).Error
	return out, err
}

func (t *storeTx) UpdateItemStatus(itemID string, status model.ItemStatus) error {
	return t.db.Model(&model.PoolItem{}).Where("id = ?", itemID).Update("status", status).Error
}

func (t *storeTx) CreateTier(tier *model.PriceTier) error {
	return t.db.Create(tier).Error
}

func (t *storeTx) ListTiers(contestID string) ([]model.PriceTier, error) {
	var out []model.PriceTier
	err := t.db.Where("contest_id = ?", contestID).Find(&out).Error
	return out, err
}

func (t *storeTx) CreateRosterEntry(e *model.RosterEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return t.db.Create(e).Error
}

func (t *storeTx) GetRosterEntry(contestID, playerID, itemID string) (*model.RosterEntry, error) {
	return first[model.RosterEntry](t.db,
		"contest_id = ? AND player_id = ? AND item_id = ?", contestID, playerID, itemID)
}

func (t *storeTx) DeleteRosterEntry(contestID, playerID, itemID string) error {
	return t.db.
		Where("contest_id = ? AND player_id = ? AND item_id = ?", contestID, playerID, itemID).
		Delete(&model.RosterEntry{}).Error
}

func (t *storeTx) ListRoster(contestID string) ([]model.RosterEntry, error) {
	var out []model.RosterEntry
	err := t.db.Where("contest_id = ?", contestID).Find(&out).Error
	return out, err
}

func (t *storeTx) AppendAction(e *model.ActionLogEntry) error {
	return t.db.Create(e).Error
}

// LatestAwardAction walks the log newest-first for a PICK or SETTLE entry
// that has not been cancelled by a later ADMIN_UNDO of the same award.
func (t *storeTx) LatestAwardAction(contestID string) (*model.ActionLogEntry, error) {
	var entries []model.ActionLogEntry
	err := t.db.
		Where("contest_id = ? AND type IN ?", contestID,
			[]model.ActionType{model.ActionPick, model.ActionSettle, model.ActionAdminUndo}).
		Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	undone := map[string]int{}
	for i := range entries {
		e := entries[i]
		detail, err := e.DecodeDetail()
		if err != nil {
			return nil, err
		}
		switch d := detail.(type) {
		case *model.UndoDetail:
			undone[d.PlayerID+"/"+d.ItemID]++
		case *model.PickDetail:
			if undone[d.PlayerID+"/"+d.ItemID] > 0 {
				undone[d.PlayerID+"/"+d.ItemID]--
				continue
			}
			return &e, nil
		case *model.SettleDetail:
			if undone[d.WinnerID+"/"+d.ItemID] > 0 {
				undone[d.WinnerID+"/"+d.ItemID]--
				continue
			}
			return &e, nil
		}
	}
	return nil, nil
}
