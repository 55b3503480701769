package engine

import "github.com/pokedraft/pokedraft-backend/internal/model"

// BuildSnakeOrder lays out rounds of alternating direction: 1..N, N..1,
// 1..N and so on. Auction contests use the same order; only the first
// round's rotation matters there since nomination is taken modulo N.
func BuildSnakeOrder(playerIDs []string, rounds int) model.StringList {
	order := make(model.StringList, 0, len(playerIDs)*rounds)
	for r := 0; r < rounds; r++ {
		if r%2 == 0 {
			order = append(order, playerIDs...)
			continue
		}
		for i := len(playerIDs) - 1; i >= 0; i-- {
			order = append(order, playerIDs[i])
		}
	}
	return order
}
