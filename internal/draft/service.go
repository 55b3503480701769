// Package draft is the transactional mutator: every state change enters
// here, gets vetted by the engine and the feasibility solver, and commits
// as a single version-checked write. Conflicts surface to the caller; the
// service never retries internally.
package draft

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/internal/engine"
	"github.com/pokedraft/pokedraft-backend/internal/feasibility"
	"github.com/pokedraft/pokedraft-backend/internal/model"
)

// Publisher receives a fire-and-forget notification after every successful
// mutation. It must never block or fail the mutation path.
type Publisher interface {
	Publish(contestID string)
}

type Service struct {
	store Store
	pub   Publisher
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, pub: pub, log: log, now: time.Now}
}

// SetPublisher breaks the construction cycle with the broadcast hub: the
// hub needs the service's snapshot loader, the service needs the hub.
// Call before serving traffic.
func (s *Service) SetPublisher(pub Publisher) { s.pub = pub }

// TurnInfo is the success payload common to every mutation: enough for the
// caller to render whose turn it is without re-fetching.
type TurnInfo struct {
	ContestID       string              `json:"contest_id"`
	Version         int64               `json:"version"`
	Status          model.Status        `json:"status"`
	AuctionPhase    model.AuctionPhase  `json:"auction_phase,omitempty"`
	CurrentTurn     int                 `json:"current_turn"`
	CurrentPlayerID string              `json:"current_player_id,omitempty"`
	HighestBid      int                 `json:"highest_bid,omitempty"`
	HighestBidderID string              `json:"highest_bidder_id,omitempty"`
	BidEndTime      *time.Time          `json:"bid_end_time,omitempty"`
}

func turnInfo(c *model.Contest) *TurnInfo {
	info := &TurnInfo{
		ContestID:       c.ID,
		Version:         c.Version,
		Status:          c.Status,
		AuctionPhase:    c.AuctionPhase,
		CurrentTurn:     c.CurrentTurn,
		HighestBid:      c.HighestBid,
		HighestBidderID: c.HighestBidderID,
		BidEndTime:      c.BidEndTime,
	}
	if id, ok := engine.CurrentPlayerID(c); ok {
		info.CurrentPlayerID = id
	}
	return info
}

func (s *Service) publish(contestID string) {
	if s.pub != nil {
		s.pub.Publish(contestID)
	}
}

// loadPlayers materializes every player with their contest-scoped roster
// count.
func loadPlayers(tx StoreTx, contestID string) (map[string]model.PlayerState, error) {
	players, err := tx.ListPlayers(contestID)
	if err != nil {
		return nil, err
	}
	states := make(map[string]model.PlayerState, len(players))
	for _, p := range players {
		owned, err := tx.CountOwned(contestID, p.ID)
		if err != nil {
			return nil, err
		}
		states[p.ID] = model.PlayerState{Player: p, OwnedItemCount: owned}
	}
	return states, nil
}

func prices(items []model.PoolItem, excludeID string) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		if it.ID == excludeID {
			continue
		}
		p := it.BasePrice
		if p < 1 {
			p = 1
		}
		out = append(out, p)
	}
	return out
}

func cheapest(ps []int) int {
	if len(ps) == 0 {
		return 0
	}
	c := ps[0]
	for _, p := range ps[1:] {
		if p < c {
			c = p
		}
	}
	return c
}

func (s *Service) cas(tx StoreTx, c *model.Contest, expected int64) error {
	ok, err := tx.CompareAndSwapContest(c, expected)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func appendAction(tx StoreTx, contestID string, d model.ActionDetail) error {
	entry, err := model.NewActionLogEntry(contestID, d)
	if err != nil {
		return err
	}
	return tx.AppendAction(&entry)
}

// Pick awards the current snake-draft turn's item to the caller.
func (s *Service) Pick(ctx context.Context, callerID, contestID, itemID string) (*TurnInfo, error) {
	var info *TurnInfo
	var rejection error

	err := s.store.Tx(ctx, func(tx StoreTx) error {
		c, err := tx.GetContest(contestID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: contest %s", ErrNotFound, contestID)
		}
		if c.Mode != model.ModeSnake {
			return classify(engine.ErrWrongMode)
		}
		if err := requireActive(c); err != nil {
			return classify(err)
		}
		observed := c.Version

		available, err := tx.ListAvailableItems(contestID)
		if err != nil {
			return err
		}
		players, err := loadPlayers(tx, contestID)
		if err != nil {
			return err
		}

		allPrices := prices(available, "")
		turn, turnPlayer, completed := engine.ResolveTurn(c, players, cheapest(allPrices), len(available) > 0)
		if completed {
			c.Status = model.StatusCompleted
			if err := s.cas(tx, c, observed); err != nil {
				return err
			}
			info = turnInfo(c)
			rejection = classify(engine.ErrCompleted)
			return nil
		}
		if turnPlayer != callerID {
			return classify(engine.ErrWrongTurn)
		}

		item, err := tx.GetPoolItem(contestID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		if item.Status != model.ItemAvailable {
			return classify(engine.ErrItemUnavailable)
		}

		picker := players[callerID]
		cost := item.BasePrice
		if cost < 1 {
			cost = 1
		}
		if picker.OwnedItemCount >= c.MaxItemsPerPlayer {
			return classify(engine.ErrRosterFull)
		}
		if picker.Tokens < cost {
			return classify(engine.ErrInsufficientTokens)
		}
		if item.ExclusiveGroup != "" {
			owns, err := tx.OwnsInExclusiveGroup(contestID, callerID, item.ExclusiveGroup)
			if err != nil {
				return err
			}
			if owns {
				return fmt.Errorf("%w: group %q", ErrExclusivityViolation, item.ExclusiveGroup)
			}
		}

		remaining := prices(available, itemID)
		verdict := feasibility.CanContinueAfterOperation(
			picker.Tokens, picker.OwnedItemCount, c.MaxItemsPerPlayer, cost, remaining)
		if !verdict.Feasible {
			return &InfeasibleError{Reason: verdict.Reason, SuggestedMaxPrice: verdict.SuggestedMaxPrice}
		}

		if err := tx.CreateRosterEntry(&model.RosterEntry{
			ContestID:     contestID,
			PlayerID:      callerID,
			ItemID:        itemID,
			PurchasePrice: cost,
		}); err != nil {
			return err
		}
		if err := tx.UpdateItemStatus(itemID, model.ItemDrafted); err != nil {
			return err
		}
		if err := tx.UpdatePlayerTokens(callerID, picker.Tokens-cost); err != nil {
			return err
		}

		picker.Tokens -= cost
		picker.OwnedItemCount++
		players[callerID] = picker

		c.CurrentTurn = turn
		next, _, done := engine.AdvanceTurn(c, players, cheapest(remaining), len(remaining) > 0)
		if done {
			c.Status = model.StatusCompleted
		} else {
			c.CurrentTurn = next
		}
		if err := s.cas(tx, c, observed); err != nil {
			return err
		}
		if err := appendAction(tx, contestID, &model.PickDetail{
			PlayerID:  callerID,
			ItemID:    itemID,
			Cost:      cost,
			TurnIndex: turn,
		}); err != nil {
			return err
		}
		info = turnInfo(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(contestID)
	if rejection != nil {
		return info, rejection
	}
	s.log.Info("pick committed",
		zap.String("contest", contestID),
		zap.String("player", callerID),
		zap.String("item", itemID),
		zap.Int64("version", info.Version))
	return info, nil
}

func requireActive(c *model.Contest) error {
	switch c.Status {
	case model.StatusActive:
		if c.IsPaused {
			return engine.ErrPaused
		}
		return nil
	case model.StatusPaused:
		return engine.ErrPaused
	case model.StatusCompleted:
		return engine.ErrCompleted
	default:
		return engine.ErrNotActive
	}
}
