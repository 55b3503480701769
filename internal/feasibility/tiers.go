package feasibility

import (
	"fmt"
	"sort"
)

type TierMode string

const (
	// TierModeMinimum checks the N worst-case allocations: player i takes
	// the (i*teamSize+1)..((i+1)*teamSize)-th cheapest items overall.
	TierModeMinimum TierMode = "MINIMUM"
	// TierModeBest additionally requires every tier to be reachable by
	// every player alongside a cheapest fill of the other slots.
	TierModeBest TierMode = "BEST"
)

// Tier is a price bucket as the solver sees it: identity, price, item count.
type Tier struct {
	Name  string
	Price int
	Count int
}

type TierDiagnostic struct {
	Tier          string
	Price         int
	Count         int
	Reachable     bool
	WorstCaseCost int
}

type TierReport struct {
	Feasible    bool
	Reason      string
	PerTier     []TierDiagnostic
	Suggestions []string
}

// CheckTierCompleteness validates that N competing players, each needing
// teamSize items at tier prices, can all complete a roster at once. It
// aggregates tiers into ascending (price, count) buckets and does rank-range
// sums over them, never materializing individual items.
func CheckTierCompleteness(tiers []Tier, budget, teamSize, playerCount int, mode TierMode) TierReport {
	report := TierReport{Feasible: true}
	if teamSize <= 0 || playerCount <= 0 {
		report.Feasible = false
		report.Reason = "team size and player count must be positive"
		return report
	}

	buckets := make([]Tier, 0, len(tiers))
	total := 0
	for _, t := range tiers {
		t.Price = coerce(t.Price)
		if t.Count < 0 {
			t.Count = 0
		}
		buckets = append(buckets, t)
		total += t.Count
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Price < buckets[j].Price })

	required := playerCount * teamSize
	if total < required {
		report.Feasible = false
		report.Reason = fmt.Sprintf("pool has %d items but %d players x %d slots need %d", total, playerCount, teamSize, required)
		report.Suggestions = append(report.Suggestions,
			fmt.Sprintf("add %d more items to an undersized tier", required-total))
		return report
	}

	// Worst-case allocation per player: player i gets the i-th cheapest
	// block of teamSize items. Ascending blocks, so later players pay more.
	for i := 0; i < playerCount; i++ {
		sum, top := rankRangeSum(buckets, i*teamSize, teamSize)
		if sum <= budget {
			continue
		}
		report.Feasible = false
		report.Reason = fmt.Sprintf("worst-case allocation for player %d costs %d, over budget %d", i+1, sum, budget)
		if top.Count > 0 {
			drop := ceilDiv(sum-budget, top.inRange)
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("lower tier %q price to %d or below", top.Name, top.Price-drop))
		}
	}

	if mode == TierModeBest {
		checkTierReachability(buckets, tiers, budget, teamSize, playerCount, &report)
	}
	return report
}

type topBucket struct {
	Tier
	inRange int
}

// rankRangeSum sums the prices of the items ranked [start, start+n) in the
// ascending item ordering, walking buckets in O(T). It also reports the most
// expensive bucket touched and how many of its items fall in the range, for
// remediation suggestions.
func rankRangeSum(buckets []Tier, start, n int) (int, topBucket) {
	sum := 0
	var top topBucket
	seen := 0
	remaining := n
	for _, b := range buckets {
		if remaining == 0 {
			break
		}
		lo := seen
		hi := seen + b.Count
		seen = hi
		if hi <= start {
			continue
		}
		from := max(lo, start)
		take := min(hi, start+n) - from
		if take <= 0 {
			continue
		}
		sum += take * b.Price
		remaining -= take
		top = topBucket{Tier: b, inRange: take}
	}
	return sum, top
}

// checkTierReachability enforces BEST mode: for every tier there must be an
// affordable roster containing at least one of its items, after reserving
// one slot of that tier per player.
func checkTierReachability(buckets, original []Tier, budget, teamSize, playerCount int, report *TierReport) {
	for _, t := range original {
		t.Price = coerce(t.Price)
		diag := TierDiagnostic{Tier: t.Name, Price: t.Price, Count: t.Count, Reachable: true}

		if t.Count < playerCount {
			diag.Reachable = false
			report.Feasible = false
			report.Reason = fmt.Sprintf("tier %q has %d items for %d players", t.Name, t.Count, playerCount)
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("add %d more items to tier %q", playerCount-t.Count, t.Name))
			report.PerTier = append(report.PerTier, diag)
			continue
		}

		// Fill the other teamSize-1 slots from the cheapest remaining
		// items, with this tier's pool shrunk by the N reserved slots.
		rest, enough := cheapestOthers(buckets, t, playerCount, teamSize-1)
		if !enough {
			diag.Reachable = false
			report.Feasible = false
			report.Reason = fmt.Sprintf("not enough items outside tier %q to fill a roster", t.Name)
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("add %d more items to an undersized tier", playerCount))
			report.PerTier = append(report.PerTier, diag)
			continue
		}
		diag.WorstCaseCost = t.Price + rest
		if diag.WorstCaseCost > budget {
			diag.Reachable = false
			report.Feasible = false
			report.Reason = fmt.Sprintf("tier %q is unreachable: cheapest roster including it costs %d, budget is %d",
				t.Name, diag.WorstCaseCost, budget)
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("lower tier %q price to %d or below", t.Name, budget-rest))
		}
		report.PerTier = append(report.PerTier, diag)
	}
}

// cheapestOthers sums the n cheapest items across buckets with the target
// tier's count reduced by reserve.
func cheapestOthers(buckets []Tier, target Tier, reserve, n int) (int, bool) {
	sum := 0
	remaining := n
	for _, b := range buckets {
		if remaining == 0 {
			break
		}
		count := b.Count
		if b.Name == target.Name && b.Price == target.Price {
			count -= reserve
			if count < 0 {
				count = 0
			}
		}
		take := min(count, remaining)
		sum += take * b.Price
		remaining -= take
	}
	return sum, remaining == 0
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
