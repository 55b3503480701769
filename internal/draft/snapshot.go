package draft

import (
	"context"
	"fmt"

	"github.com/pokedraft/pokedraft-backend/internal/engine"
	"github.com/pokedraft/pokedraft-backend/internal/model"
	"github.com/pokedraft/pokedraft-backend/pkg/types"
)

// Snapshot assembles the full observer view of a contest. The broadcast
// layer calls this on every publish and diffs the dynamic projection
// itself.
func (s *Service) Snapshot(ctx context.Context, contestID string) (*types.Snapshot, error) {
	var snap *types.Snapshot

	err := s.store.Tx(ctx, func(tx StoreTx) error {
		c, err := tx.GetContest(contestID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: contest %s", ErrNotFound, contestID)
		}
		players, err := loadPlayers(tx, contestID)
		if err != nil {
			return err
		}
		roster, err := tx.ListRoster(contestID)
		if err != nil {
			return err
		}
		items, err := tx.ListItems(contestID)
		if err != nil {
			return err
		}
		tiers, err := tx.ListTiers(contestID)
		if err != nil {
			return err
		}

		snap = &types.Snapshot{
			ContestID:         c.ID,
			Name:              c.Name,
			Mode:              string(c.Mode),
			Status:            string(c.Status),
			Version:           c.Version,
			DraftOrder:        c.DraftOrder,
			CurrentTurn:       c.CurrentTurn,
			AuctionPhase:      string(c.AuctionPhase),
			ActiveItemID:      c.ActiveItemID,
			HighestBid:        c.HighestBid,
			HighestBidderID:   c.HighestBidderID,
			BidEndTime:        c.BidEndTime,
			IsPaused:          c.IsPaused,
			PlayerBudget:      c.PlayerBudget,
			MaxItemsPerPlayer: c.MaxItemsPerPlayer,
		}
		if id, ok := engine.CurrentPlayerID(c); ok && c.Status == model.StatusActive {
			snap.CurrentPlayerID = id
		}

		playerList, err := tx.ListPlayers(contestID)
		if err != nil {
			return err
		}
		for _, p := range playerList {
			state := players[p.ID]
			snap.Players = append(snap.Players, types.PlayerView{
				ID:             p.ID,
				Name:           p.Name,
				Tokens:         p.Tokens,
				OwnedItemCount: state.OwnedItemCount,
			})
		}
		for _, it := range items {
			snap.Items = append(snap.Items, types.ItemView{
				ID:        it.ID,
				Name:      it.Name,
				BasePrice: it.BasePrice,
				Status:    string(it.Status),
				TierID:    it.TierID,
			})
		}
		for _, e := range roster {
			snap.Roster = append(snap.Roster, types.RosterView{
				PlayerID:      e.PlayerID,
				ItemID:        e.ItemID,
				PurchasePrice: e.PurchasePrice,
			})
		}
		for _, t := range tiers {
			snap.Tiers = append(snap.Tiers, types.TierView{ID: t.ID, Name: t.Name, Price: t.Price})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
