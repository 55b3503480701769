package engine

import (
	"errors"
	"time"

	"github.com/pokedraft/pokedraft-backend/internal/model"
)

var ErrBidTooLow = errors.New("bid must exceed the current highest bid")
var ErrCannotRaiseOwnBid = errors.New("cannot raise own bid")
var ErrBiddingClosed = errors.New("bidding deadline has passed")
var ErrBiddingStillOpen = errors.New("bidding deadline has not passed yet")
var ErrNoActiveAuction = errors.New("no item is up for bidding")

// antiSnipeWindow: a valid bid landing with less than this much time left
// pushes the deadline back out to exactly this much. Never shortened, never
// extended past the floor.
const antiSnipeWindow = 10 * time.Second

func requireActive(c *model.Contest) error {
	switch c.Status {
	case model.StatusCompleted:
		return ErrCompleted
	case model.StatusPaused:
		return ErrPaused
	case model.StatusActive:
	default:
		return ErrNotActive
	}
	if c.IsPaused {
		return ErrPaused
	}
	return nil
}

// Nominate puts an item up for bidding. The nominator becomes the opening
// highest bidder at the item's base price, so they must be able to carry
// that bid themselves.
func Nominate(c *model.Contest, nominator model.PlayerState, item *model.PoolItem, now time.Time) error {
	if c.Mode != model.ModeAuction {
		return ErrWrongMode
	}
	if err := requireActive(c); err != nil {
		return err
	}
	if c.AuctionPhase != model.PhaseNominating {
		return ErrWrongPhase
	}
	current, ok := CurrentPlayerID(c)
	if !ok {
		return ErrCompleted
	}
	if current != nominator.ID {
		return ErrWrongTurn
	}
	if item.Status != model.ItemAvailable {
		return ErrItemUnavailable
	}
	if nominator.OwnedItemCount >= c.MaxItemsPerPlayer {
		return ErrRosterFull
	}
	opening := item.BasePrice
	if opening < 1 {
		opening = 1
	}
	if nominator.Tokens < opening {
		return ErrInsufficientTokens
	}

	c.AuctionPhase = model.PhaseBidding
	c.ActiveItemID = item.ID
	c.HighestBid = opening
	c.HighestBidderID = nominator.ID
	c.BidEndTime = nil
	if c.AuctionBidDur > 0 {
		deadline := now.Add(c.AuctionBidDur)
		c.BidEndTime = &deadline
	}
	return nil
}

// ValidateBid runs every phase/turn/capacity check for a bid. The
// feasibility admission check is the caller's job; this covers the rest.
func ValidateBid(c *model.Contest, bidder model.PlayerState, amount int, now time.Time) error {
	if c.Mode != model.ModeAuction {
		return ErrWrongMode
	}
	if err := requireActive(c); err != nil {
		return err
	}
	if c.AuctionPhase != model.PhaseBidding || c.ActiveItemID == "" {
		return ErrNoActiveAuction
	}
	if c.BidEndTime != nil && now.After(*c.BidEndTime) {
		return ErrBiddingClosed
	}
	if amount <= c.HighestBid {
		return ErrBidTooLow
	}
	if bidder.ID == c.HighestBidderID {
		return ErrCannotRaiseOwnBid
	}
	if bidder.OwnedItemCount >= c.MaxItemsPerPlayer {
		return ErrRosterFull
	}
	if bidder.Tokens < amount {
		return ErrInsufficientTokens
	}
	return nil
}

// ApplyBid records an already-validated bid and applies the anti-snipe
// extension.
func ApplyBid(c *model.Contest, bidderID string, amount int, now time.Time) {
	c.HighestBid = amount
	c.HighestBidderID = bidderID
	if c.BidEndTime != nil && c.BidEndTime.Sub(now) < antiSnipeWindow {
		deadline := now.Add(antiSnipeWindow)
		c.BidEndTime = &deadline
	}
}

// CanSettle reports whether the live auction may be finalized. Timed
// auctions settle only after the deadline; untimed ones settle on an
// explicit admin command.
func CanSettle(c *model.Contest, now time.Time, byAdmin bool) error {
	if c.Mode != model.ModeAuction {
		return ErrWrongMode
	}
	if err := requireActive(c); err != nil {
		return err
	}
	if c.AuctionPhase != model.PhaseBidding || c.ActiveItemID == "" {
		return ErrNoActiveAuction
	}
	if c.BidEndTime == nil {
		if !byAdmin {
			return ErrBiddingStillOpen
		}
		return nil
	}
	if now.Before(*c.BidEndTime) {
		return ErrBiddingStillOpen
	}
	return nil
}

// ClearAuction resets the bidding sub-state after settlement or undo.
func ClearAuction(c *model.Contest) {
	c.AuctionPhase = model.PhaseNominating
	c.ActiveItemID = ""
	c.HighestBid = 0
	c.HighestBidderID = ""
	c.BidEndTime = nil
}

// Pause freezes the contest. A running bid timer is captured so resuming
// restores the same amount of remaining time.
func Pause(c *model.Contest, now time.Time) error {
	if c.Status != model.StatusActive {
		if c.Status == model.StatusPaused {
			return ErrPaused
		}
		return ErrNotActive
	}
	c.Status = model.StatusPaused
	c.IsPaused = true
	if c.BidEndTime != nil {
		remaining := c.BidEndTime.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		c.PausedTimeRemaining = remaining
		c.BidEndTime = nil
	}
	return nil
}

// Resume unfreezes the contest and restarts a captured bid timer.
func Resume(c *model.Contest, now time.Time) error {
	if c.Status != model.StatusPaused {
		return ErrNotPaused
	}
	c.Status = model.StatusActive
	c.IsPaused = false
	if c.PausedTimeRemaining > 0 && c.AuctionPhase == model.PhaseBidding {
		deadline := now.Add(c.PausedTimeRemaining)
		c.BidEndTime = &deadline
	}
	c.PausedTimeRemaining = 0
	return nil
}
