package draft

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/internal/engine"
	"github.com/pokedraft/pokedraft-backend/internal/feasibility"
	"github.com/pokedraft/pokedraft-backend/internal/model"
)

// othersNeed sums the open roster slots of every player except one.
func othersNeed(players map[string]model.PlayerState, exceptID string, maxItems int) int {
	need := 0
	for id, p := range players {
		if id == exceptID {
			continue
		}
		open := maxItems - p.OwnedItemCount
		if open > 0 {
			need += open
		}
	}
	return need
}

// Nominate puts an item up for auction on behalf of the current nominator.
func (s *Service) Nominate(ctx context.Context, callerID, contestID, itemID string) (*TurnInfo, error) {
	now := s.now()
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
		if c.Mode != model.ModeAuction {
			return classify(engine.ErrWrongMode)
		}
		if err := requireActive(c); err != nil {
			return classify(err)
		}
		if c.AuctionPhase != model.PhaseNominating {
			return classify(engine.ErrWrongPhase)
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

		// Grant the turn with auto-skip: the cursor may point at a
		// bankrupt or full player.
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
		c.CurrentTurn = turn

		item, err := tx.GetPoolItem(contestID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		nominator := players[callerID]
		if item.ExclusiveGroup != "" {
			owns, err := tx.OwnsInExclusiveGroup(contestID, callerID, item.ExclusiveGroup)
			if err != nil {
				return err
			}
			if owns {
				return fmt.Errorf("%w: group %q", ErrExclusivityViolation, item.ExclusiveGroup)
			}
		}

		// The nominator opens as highest bidder, so the same admission
		// checks a bid gets apply to the opening price: capacity and raw
		// tokens first, then the solver. Exhausted resources must not
		// surface as Infeasible.
		opening := item.BasePrice
		if opening < 1 {
			opening = 1
		}
		if nominator.OwnedItemCount >= c.MaxItemsPerPlayer {
			return classify(engine.ErrRosterFull)
		}
		if nominator.Tokens < opening {
			return classify(engine.ErrInsufficientTokens)
		}
		verdict := feasibility.CanFillTeamAfterBid(
			nominator.Tokens, nominator.OwnedItemCount, c.MaxItemsPerPlayer,
			opening, prices(available, itemID), othersNeed(players, callerID, c.MaxItemsPerPlayer))
		if !verdict.Feasible {
			return &InfeasibleError{Reason: verdict.Reason, SuggestedMaxPrice: verdict.SuggestedMaxPrice}
		}

		if err := engine.Nominate(c, nominator, item, now); err != nil {
			return classify(err)
		}
		if err := s.cas(tx, c, observed); err != nil {
			return err
		}
		if err := appendAction(tx, contestID, &model.NominateDetail{
			PlayerID:   callerID,
			ItemID:     itemID,
			OpeningBid: c.HighestBid,
			Deadline:   c.BidEndTime,
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
	s.log.Info("nomination committed",
		zap.String("contest", contestID),
		zap.String("player", callerID),
		zap.String("item", itemID))
	return info, nil
}

// Bid places an ascending bid on the active item. Pure CAS, no row locks:
// two racing bids against the same version resolve as one success and one
// Conflict.
func (s *Service) Bid(ctx context.Context, callerID, contestID string, amount int) (*TurnInfo, error) {
	now := s.now()
	var info *TurnInfo

	err := s.store.Tx(ctx, func(tx StoreTx) error {
		c, err := tx.GetContest(contestID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: contest %s", ErrNotFound, contestID)
		}
		observed := c.Version

		players, err := loadPlayers(tx, contestID)
		if err != nil {
			return err
		}
		bidder, found := players[callerID]
		if !found {
			return fmt.Errorf("%w: player %s", ErrNotFound, callerID)
		}

		if err := engine.ValidateBid(c, bidder, amount, now); err != nil {
			return classify(err)
		}

		available, err := tx.ListAvailableItems(contestID)
		if err != nil {
			return err
		}
		verdict := feasibility.CanFillTeamAfterBid(
			bidder.Tokens, bidder.OwnedItemCount, c.MaxItemsPerPlayer,
			amount, prices(available, c.ActiveItemID), othersNeed(players, callerID, c.MaxItemsPerPlayer))
		if !verdict.Feasible {
			return &InfeasibleError{Reason: verdict.Reason, SuggestedMaxPrice: verdict.SuggestedMaxPrice}
		}

		engine.ApplyBid(c, callerID, amount, now)
		if err := s.cas(tx, c, observed); err != nil {
			return err
		}
		if err := appendAction(tx, contestID, &model.BidDetail{
			PlayerID: callerID,
			ItemID:   c.ActiveItemID,
			Amount:   amount,
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
	s.log.Info("bid committed",
		zap.String("contest", contestID),
		zap.String("player", callerID),
		zap.Int("amount", amount))
	return info, nil
}

// Settle finalizes the live auction: the highest bidder is awarded the
// item. This is the one multi-row mutation, so the contest and winner rows
// are locked for the duration of the transaction to stay atomic against a
// concurrent undo or pause.
func (s *Service) Settle(ctx context.Context, callerID, contestID string) (*TurnInfo, error) {
	now := s.now()
	var info *TurnInfo
	var winner string

	err := s.store.Tx(ctx, func(tx StoreTx) error {
		c, err := tx.GetContestForUpdate(contestID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: contest %s", ErrNotFound, contestID)
		}
		observed := c.Version

		byAdmin := callerID == c.AdminID
		if err := engine.CanSettle(c, now, byAdmin); err != nil {
			return classify(err)
		}

		winnerRow, err := tx.GetPlayerForUpdate(contestID, c.HighestBidderID)
		if err != nil {
			return err
		}
		if winnerRow == nil {
			return fmt.Errorf("%w: player %s", ErrNotFound, c.HighestBidderID)
		}
		item, err := tx.GetPoolItem(contestID, c.ActiveItemID)
		if err != nil {
			return err
		}
		if item == nil || item.Status != model.ItemAvailable {
			return classify(engine.ErrItemUnavailable)
		}

		// Re-verify under the lock; the pre-transaction reads that
		// admitted the winning bid are not trusted here.
		owned, err := tx.CountOwned(contestID, winnerRow.ID)
		if err != nil {
			return err
		}
		if owned >= c.MaxItemsPerPlayer {
			return classify(engine.ErrRosterFull)
		}
		cost := c.HighestBid
		if winnerRow.Tokens < cost {
			return classify(engine.ErrInsufficientTokens)
		}

		if err := tx.CreateRosterEntry(&model.RosterEntry{
			ContestID:     contestID,
			PlayerID:      winnerRow.ID,
			ItemID:        item.ID,
			PurchasePrice: cost,
		}); err != nil {
			return err
		}
		if err := tx.UpdateItemStatus(item.ID, model.ItemDrafted); err != nil {
			return err
		}
		if err := tx.UpdatePlayerTokens(winnerRow.ID, winnerRow.Tokens-cost); err != nil {
			return err
		}

		settledTurn := c.CurrentTurn
		winner = winnerRow.ID
		itemID := item.ID
		engine.ClearAuction(c)

		players, err := loadPlayers(tx, contestID)
		if err != nil {
			return err
		}
		available, err := tx.ListAvailableItems(contestID)
		if err != nil {
			return err
		}
		remaining := prices(available, "")
		next, _, done := engine.AdvanceTurn(c, players, cheapest(remaining), len(remaining) > 0)
		if done {
			c.Status = model.StatusCompleted
		} else {
			c.CurrentTurn = next
		}

		if err := s.cas(tx, c, observed); err != nil {
			return err
		}
		if err := appendAction(tx, contestID, &model.SettleDetail{
			WinnerID:  winner,
			ItemID:    itemID,
			Cost:      cost,
			TurnIndex: settledTurn,
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
	s.log.Info("auction settled",
		zap.String("contest", contestID),
		zap.String("winner", winner),
		zap.Int64("version", info.Version))
	return info, nil
}
