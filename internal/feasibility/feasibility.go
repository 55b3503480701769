// Package feasibility answers "can every roster still be completed?" for
// draft and auction actions. Everything here is pure and deterministic:
// callers load prices and counts, the solver only does arithmetic.
package feasibility

import "fmt"

// Result is the solver verdict for a single proposed operation.
type Result struct {
	Feasible bool
	Reason   string

	// SuggestedMaxPrice is the highest cost the caller could still pay
	// without stranding their roster. Only set on infeasible verdicts,
	// and only when some lower price would have been acceptable.
	SuggestedMaxPrice int
}

func ok() Result { return Result{Feasible: true} }

func fail(reason string, suggested int) Result {
	if suggested < 0 {
		suggested = 0
	}
	return Result{Reason: reason, SuggestedMaxPrice: suggested}
}

// coerce clamps a price to the 1+ range. A zero base price would make every
// configuration trivially feasible, so it is never allowed into the math.
func coerce(p int) int {
	if p < 1 {
		return 1
	}
	return p
}

// cheapestSum returns the sum of the k cheapest prices, maintained as a
// top-k buffer rather than a full sort. O(n*k), fine for roster-sized k.
// ok is false when fewer than k prices exist.
func cheapestSum(prices []int, k int) (int, bool) {
	if k <= 0 {
		return 0, true
	}
	if len(prices) < k {
		return 0, false
	}
	buf := make([]int, 0, k)
	maxIdx := -1
	for _, p := range prices {
		p = coerce(p)
		if len(buf) < k {
			buf = append(buf, p)
			if maxIdx == -1 || p > buf[maxIdx] {
				maxIdx = len(buf) - 1
			}
			continue
		}
		if p >= buf[maxIdx] {
			continue
		}
		buf[maxIdx] = p
		maxIdx = 0
		for i, v := range buf {
			if v > buf[maxIdx] {
				maxIdx = i
			}
		}
	}
	sum := 0
	for _, v := range buf {
		sum += v
	}
	return sum, true
}

// CanFillTeam reports whether the k cheapest of prices fit within budget.
func CanFillTeam(budget, k int, prices []int) bool {
	sum, enough := cheapestSum(prices, k)
	return enough && sum <= budget
}

// CanContinueAfterOperation vets a pick or purchase: after paying
// operationCost and consuming one roster slot, the remaining slots must
// still be fillable from availablePrices (which must exclude the item
// being taken).
func CanContinueAfterOperation(tokens, ownedCount, maxItems, operationCost int, availablePrices []int) Result {
	slotsAfter := maxItems - ownedCount - 1
	tokensAfter := tokens - operationCost
	if slotsAfter < 0 {
		return fail("roster is already full", 0)
	}
	if tokensAfter < 0 {
		return fail("insufficient tokens for this operation", tokens)
	}
	if slotsAfter == 0 {
		return ok()
	}
	need, enough := cheapestSum(availablePrices, slotsAfter)
	if !enough {
		return fail(fmt.Sprintf("only %d items remain for %d open slots", len(availablePrices), slotsAfter), 0)
	}
	if need <= tokensAfter {
		return ok()
	}
	return fail(
		fmt.Sprintf("paying %d would leave %d tokens, but filling %d remaining slots needs at least %d",
			operationCost, tokensAfter, slotsAfter, need),
		tokens-need,
	)
}

// CanFillTeamAfterBid is the auction variant of CanContinueAfterOperation.
// othersRemainingNeed is the aggregate open-slot count of every other
// bidder; half of it (rounded up) is reserved out of the cheapest available
// items before checking the bidder, so a leading bidder cannot bid away
// items other players provably need.
//
// The 50% reservation is a conservative admission heuristic, not a proof of
// global feasibility: it can reject configurations an exact multi-agent
// allocation would admit.
func CanFillTeamAfterBid(tokens, ownedCount, maxItems, bidAmount int, availablePrices []int, othersRemainingNeed int) Result {
	slotsAfter := maxItems - ownedCount - 1
	tokensAfter := tokens - bidAmount
	if slotsAfter < 0 {
		return fail("roster is already full", 0)
	}
	if tokensAfter < 0 {
		return fail("insufficient tokens for this bid", tokens)
	}
	if slotsAfter == 0 {
		return ok()
	}
	reserved := (othersRemainingNeed + 1) / 2
	if reserved < 0 {
		reserved = 0
	}
	if len(availablePrices)-reserved < slotsAfter {
		return fail(
			fmt.Sprintf("%d of %d remaining items are reserved for other players, not enough left for %d open slots",
				reserved, len(availablePrices), slotsAfter),
			0,
		)
	}
	// The bidder is charged for the cheapest slotsAfter items after the
	// reserved cheapest ones are taken off the table.
	withReserved, _ := cheapestSum(availablePrices, reserved+slotsAfter)
	reservedSum, _ := cheapestSum(availablePrices, reserved)
	need := withReserved - reservedSum
	if need <= tokensAfter {
		return ok()
	}
	return fail(
		fmt.Sprintf("bidding %d would leave %d tokens, but filling %d remaining slots needs at least %d",
			bidAmount, tokensAfter, slotsAfter, need),
		tokens-need,
	)
}
