// Package engine holds the pure turn/phase transition logic. It never
// touches storage: callers load contest and player state, the engine
// validates an action and mutates the in-memory contest, and the caller is
// responsible for committing the result atomically.
package engine

import (
	"errors"

	"github.com/pokedraft/pokedraft-backend/internal/model"
)

var ErrWrongTurn = errors.New("not this player's turn")
var ErrWrongMode = errors.New("action not valid in this draft mode")
var ErrWrongPhase = errors.New("action not valid in this phase")
var ErrNotActive = errors.New("contest is not active")
var ErrPaused = errors.New("contest is paused")
var ErrNotPaused = errors.New("contest is not paused")
var ErrCompleted = errors.New("contest already completed")
var ErrEndOfOrder = errors.New("already at the end of the draft order")
var ErrItemUnavailable = errors.New("item is no longer available")
var ErrRosterFull = errors.New("roster is full")
var ErrInsufficientTokens = errors.New("insufficient tokens")

// PlayerCount returns the number of distinct players in the draft order.
// The order has length players*rounds, so this is also the auction
// rotation period.
func PlayerCount(c *model.Contest) int {
	seen := make(map[string]struct{}, len(c.DraftOrder))
	for _, id := range c.DraftOrder {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// occupant maps a cursor position to the player it belongs to. Snake mode
// indexes the order directly; auction mode rotates nomination round-robin.
func occupant(c *model.Contest, turn int) (string, bool) {
	if turn < 0 || turn >= len(c.DraftOrder) {
		return "", false
	}
	if c.Mode == model.ModeAuction {
		n := PlayerCount(c)
		if n == 0 {
			return "", false
		}
		return c.DraftOrder[turn%n], true
	}
	return c.DraftOrder[turn], true
}

// CurrentPlayerID resolves whose turn the cursor points at.
func CurrentPlayerID(c *model.Contest) (string, bool) {
	return occupant(c, c.CurrentTurn)
}

// Eligible reports whether a player can still act at all: room on the
// roster and enough tokens for the cheapest remaining item.
func Eligible(p model.PlayerState, maxItems, cheapestPrice int) bool {
	return p.OwnedItemCount < maxItems && p.Tokens >= cheapestPrice
}

// ResolveTurn finds the cursor of the first slot at or after c.CurrentTurn
// whose player can still act, skipping bankrupt or full players. The scan
// is bounded to 2x the player count, which covers every player at least
// twice in either mode. Nobody eligible in that window completes the
// contest; a snake draft also completes when the order is exhausted, while
// the auction rotation wraps around it.
func ResolveTurn(c *model.Contest, players map[string]model.PlayerState, cheapestPrice int, hasAvailable bool) (turn int, playerID string, completed bool) {
	return scanForward(c, players, c.CurrentTurn, cheapestPrice, hasAvailable)
}

// AdvanceTurn moves past the slot that just acted and lands on the next
// eligible player, or completes the contest.
func AdvanceTurn(c *model.Contest, players map[string]model.PlayerState, cheapestPrice int, hasAvailable bool) (turn int, playerID string, completed bool) {
	return scanForward(c, players, c.CurrentTurn+1, cheapestPrice, hasAvailable)
}

func scanForward(c *model.Contest, players map[string]model.PlayerState, start, cheapestPrice int, hasAvailable bool) (int, string, bool) {
	if !hasAvailable {
		return 0, "", true
	}
	n := PlayerCount(c)
	if n == 0 {
		return 0, "", true
	}
	for attempt := 0; attempt < 2*n; attempt++ {
		idx := start + attempt
		if c.Mode == model.ModeAuction {
			// The nomination rotation has no end: the order length is a
			// multiple of the player count, so wrapping keeps the
			// round-robin intact. An auction completes only when nobody
			// is eligible or the pool runs dry.
			idx %= len(c.DraftOrder)
		} else if idx >= len(c.DraftOrder) {
			return 0, "", true
		}
		id, ok := occupant(c, idx)
		if !ok {
			return 0, "", true
		}
		p, ok := players[id]
		if !ok {
			continue
		}
		if Eligible(p, c.MaxItemsPerPlayer, cheapestPrice) {
			return idx, id, false
		}
	}
	return 0, "", true
}

// AdminSkip takes the current turn away from its player. Snake mode moves
// the current slot to the end of the whole order, so the skipped player
// keeps every future turn and loses only this one; the cursor stays put and
// the slot that shifted into its place acts next. Auction occupancy is
// positional (cursor modulo player count), so moving slots around would
// change every later nominator — there the cursor advances one step
// instead, which loses exactly the current nomination.
func AdminSkip(c *model.Contest) error {
	if c.Mode == model.ModeAuction {
		if len(c.DraftOrder) == 0 {
			return ErrEndOfOrder
		}
		c.CurrentTurn = (c.CurrentTurn + 1) % len(c.DraftOrder)
		return nil
	}
	if c.CurrentTurn >= len(c.DraftOrder)-1 {
		return ErrEndOfOrder
	}
	order := make(model.StringList, 0, len(c.DraftOrder))
	order = append(order, c.DraftOrder[:c.CurrentTurn]...)
	order = append(order, c.DraftOrder[c.CurrentTurn+1:]...)
	order = append(order, c.DraftOrder[c.CurrentTurn])
	c.DraftOrder = order
	return nil
}

// RewindTurn finds the most recent slot at or before the cursor that
// belonged to the given player. Undo needs the exact index, not cursor-1,
// because intervening skips may have shifted the order.
func RewindTurn(c *model.Contest, playerID string) (int, bool) {
	start := c.CurrentTurn - 1
	if start > len(c.DraftOrder)-1 {
		start = len(c.DraftOrder) - 1
	}
	for i := start; i >= 0; i-- {
		if id, ok := occupant(c, i); ok && id == playerID {
			return i, true
		}
	}
	return 0, false
}
