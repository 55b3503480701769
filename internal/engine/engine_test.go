package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/pokedraft/pokedraft-backend/internal/model"
)

func snakeContest(order ...string) *model.Contest {
	return &model.Contest{
		Mode:              model.ModeSnake,
		Status:            model.StatusActive,
		DraftOrder:        model.StringList(order),
		MaxItemsPerPlayer: 3,
	}
}

func players(ps ...model.PlayerState) map[string]model.PlayerState {
	m := make(map[string]model.PlayerState, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return m
}

func player(id string, tokens, owned int) model.PlayerState {
	return model.PlayerState{Player: model.Player{ID: id, Tokens: tokens}, OwnedItemCount: owned}
}

func TestBuildSnakeOrder(t *testing.T) {
	order := BuildSnakeOrder([]string{"a", "b", "c"}, 3)
	want := model.StringList{"a", "b", "c", "c", "b", "a", "a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order length: got %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("slot %d: got %s, want %s (full order %v)", i, order[i], want[i], order)
		}
	}
}

func TestCurrentPlayerID(t *testing.T) {
	snake := snakeContest("a", "b", "b", "a")
	snake.CurrentTurn = 2
	if id, _ := CurrentPlayerID(snake); id != "b" {
		t.Fatalf("snake: got %s, want b", id)
	}

	auction := snakeContest("a", "b", "b", "a")
	auction.Mode = model.ModeAuction
	auction.CurrentTurn = 2
	// Rotation is modulo the player count (2), so turn 2 wraps to "a".
	if id, _ := CurrentPlayerID(auction); id != "a" {
		t.Fatalf("auction: got %s, want a", id)
	}
}

func TestResolveTurnSkipsIneligiblePlayers(t *testing.T) {
	cases := []struct {
		name          string
		contest       *model.Contest
		players       map[string]model.PlayerState
		cheapest      int
		hasAvailable  bool
		wantTurn      int
		wantPlayer    string
		wantCompleted bool
	}{
		{
			name:         "current player is eligible",
			contest:      snakeContest("a", "b", "b", "a"),
			players:      players(player("a", 50, 0), player("b", 50, 0)),
			cheapest:     10,
			hasAvailable: true,
			wantTurn:     0,
			wantPlayer:   "a",
		},
		{
			name:         "bankrupt player is skipped",
			contest:      snakeContest("a", "b", "b", "a"),
			players:      players(player("a", 5, 0), player("b", 50, 0)),
			cheapest:     10,
			hasAvailable: true,
			wantTurn:     1,
			wantPlayer:   "b",
		},
		{
			name:         "full roster is skipped",
			contest:      snakeContest("a", "b", "b", "a"),
			players:      players(player("a", 50, 3), player("b", 50, 0)),
			cheapest:     10,
			hasAvailable: true,
			wantTurn:     1,
			wantPlayer:   "b",
		},
		{
			name:          "nobody eligible completes the contest",
			contest:       snakeContest("a", "b", "b", "a"),
			players:       players(player("a", 5, 0), player("b", 3, 0)),
			cheapest:      10,
			hasAvailable:  true,
			wantCompleted: true,
		},
		{
			name:          "empty pool completes the contest",
			contest:       snakeContest("a", "b"),
			players:       players(player("a", 50, 0), player("b", 50, 0)),
			cheapest:      10,
			hasAvailable:  false,
			wantCompleted: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			turn, id, completed := ResolveTurn(tc.contest, tc.players, tc.cheapest, tc.hasAvailable)
			if completed != tc.wantCompleted {
				t.Fatalf("completed: got %v, want %v", completed, tc.wantCompleted)
			}
			if completed {
				return
			}
			if turn != tc.wantTurn || id != tc.wantPlayer {
				t.Fatalf("got turn=%d player=%s, want turn=%d player=%s", turn, id, tc.wantTurn, tc.wantPlayer)
			}
		})
	}
}

func TestAdvanceTurnRunsOffTheEnd(t *testing.T) {
	c := snakeContest("a", "b")
	c.CurrentTurn = 1
	ps := players(player("a", 50, 0), player("b", 50, 0))
	if _, _, completed := AdvanceTurn(c, ps, 10, true); !completed {
		t.Fatalf("advancing past the last slot should complete the contest")
	}
}

func TestAdvanceTurnWrapsAuctionRotation(t *testing.T) {
	// "a" is full, "b" still has a slot and an item remains: running off
	// the end of the order must wrap the rotation, not complete the draft.
	c := snakeContest("a", "b", "b", "a")
	c.Mode = model.ModeAuction
	c.MaxItemsPerPlayer = 2
	c.CurrentTurn = 3
	ps := players(player("a", 50, 2), player("b", 50, 1))

	turn, id, completed := AdvanceTurn(c, ps, 10, true)
	if completed {
		t.Fatalf("auction must not complete while an eligible player has open slots")
	}
	if turn != 1 || id != "b" {
		t.Fatalf("got turn=%d player=%s, want turn=1 player=b", turn, id)
	}

	// With every roster full the wrap finds nobody and completes.
	ps = players(player("a", 50, 2), player("b", 50, 2))
	if _, _, completed := AdvanceTurn(c, ps, 10, true); !completed {
		t.Fatalf("auction with all rosters full should complete")
	}
}

func TestAdminSkip(t *testing.T) {
	c := snakeContest("a", "b", "b", "a")
	c.CurrentTurn = 1
	if err := AdminSkip(c); err != nil {
		t.Fatalf("skip: %v", err)
	}
	want := model.StringList{"a", "b", "a", "b"}
	for i := range want {
		if c.DraftOrder[i] != want[i] {
			t.Fatalf("order after skip: got %v, want %v", c.DraftOrder, want)
		}
	}
	if c.CurrentTurn != 1 {
		t.Fatalf("cursor must stay put after skip, got %d", c.CurrentTurn)
	}
}

func TestAdminSkipAuctionAdvancesNominator(t *testing.T) {
	c := snakeContest("a", "b", "b", "a")
	c.Mode = model.ModeAuction
	c.CurrentTurn = 2 // rotation occupant is "a", not the slot holder

	if err := AdminSkip(c); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if c.CurrentTurn != 3 {
		t.Fatalf("cursor after auction skip: got %d, want 3", c.CurrentTurn)
	}
	if id, _ := CurrentPlayerID(c); id != "b" {
		t.Fatalf("nominator after skip: got %s, want b", id)
	}
	want := model.StringList{"a", "b", "b", "a"}
	for i := range want {
		if c.DraftOrder[i] != want[i] {
			t.Fatalf("auction skip must not reorder slots: got %v", c.DraftOrder)
		}
	}
}

func TestAdminSkipRejectsLastSlot(t *testing.T) {
	c := snakeContest("a", "b")
	c.CurrentTurn = 1
	if err := AdminSkip(c); !errors.Is(err, ErrEndOfOrder) {
		t.Fatalf("got %v, want ErrEndOfOrder", err)
	}
}

func TestRewindTurnFindsExactPriorSlot(t *testing.T) {
	// "a" picked at slot 0, then an admin skip shifted things and the
	// cursor advanced to 3. The rewind must land on 0, not cursor-1.
	c := snakeContest("a", "b", "b", "a")
	c.CurrentTurn = 3
	turn, ok := RewindTurn(c, "a")
	if !ok || turn != 0 {
		t.Fatalf("rewind: got (%d, %v), want (0, true)", turn, ok)
	}

	turn, ok = RewindTurn(c, "b")
	if !ok || turn != 2 {
		t.Fatalf("rewind b: got (%d, %v), want (2, true)", turn, ok)
	}

	if _, ok := RewindTurn(c, "zz"); ok {
		t.Fatalf("rewind of unknown player must fail")
	}
}

func TestPauseCapturesBidTimer(t *testing.T) {
	now := time.Now()
	deadline := now.Add(42 * time.Second)
	c := snakeContest("a", "b")
	c.Mode = model.ModeAuction
	c.AuctionPhase = model.PhaseBidding
	c.BidEndTime = &deadline

	if err := Pause(c, now); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if c.Status != model.StatusPaused || !c.IsPaused {
		t.Fatalf("status after pause: %s", c.Status)
	}
	if c.BidEndTime != nil || c.PausedTimeRemaining != 42*time.Second {
		t.Fatalf("timer capture: end=%v remaining=%v", c.BidEndTime, c.PausedTimeRemaining)
	}

	later := now.Add(5 * time.Minute)
	if err := Resume(c, later); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if c.BidEndTime == nil || !c.BidEndTime.Equal(later.Add(42*time.Second)) {
		t.Fatalf("restored deadline: got %v", c.BidEndTime)
	}
	if c.PausedTimeRemaining != 0 {
		t.Fatalf("remaining should reset, got %v", c.PausedTimeRemaining)
	}
}

func TestResumeRequiresPause(t *testing.T) {
	c := snakeContest("a", "b")
	if err := Resume(c, time.Now()); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("got %v, want ErrNotPaused", err)
	}
}
