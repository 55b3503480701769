package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/pokedraft/pokedraft-backend/internal/model"
)

func auctionContest(order ...string) *model.Contest {
	return &model.Contest{
		Mode:              model.ModeAuction,
		Status:            model.StatusActive,
		DraftOrder:        model.StringList(order),
		AuctionPhase:      model.PhaseNominating,
		MaxItemsPerPlayer: 3,
		AuctionBidDur:     30 * time.Second,
	}
}

func TestNominateOpensBidding(t *testing.T) {
	now := time.Now()
	c := auctionContest("a", "b", "a", "b")
	item := &model.PoolItem{ID: "pika", BasePrice: 15, Status: model.ItemAvailable}

	if err := Nominate(c, player("a", 100, 0), item, now); err != nil {
		t.Fatalf("nominate: %v", err)
	}
	if c.AuctionPhase != model.PhaseBidding {
		t.Fatalf("phase: got %s, want BIDDING", c.AuctionPhase)
	}
	if c.HighestBid != 15 || c.HighestBidderID != "a" || c.ActiveItemID != "pika" {
		t.Fatalf("opening bid state: %+v", c)
	}
	if c.BidEndTime == nil || !c.BidEndTime.Equal(now.Add(30*time.Second)) {
		t.Fatalf("deadline: got %v", c.BidEndTime)
	}
}

func TestNominateUntimedLeavesNoDeadline(t *testing.T) {
	c := auctionContest("a", "b")
	c.AuctionBidDur = 0
	item := &model.PoolItem{ID: "pika", BasePrice: 15, Status: model.ItemAvailable}
	if err := Nominate(c, player("a", 100, 0), item, time.Now()); err != nil {
		t.Fatalf("nominate: %v", err)
	}
	if c.BidEndTime != nil {
		t.Fatalf("untimed auction must not set a deadline, got %v", c.BidEndTime)
	}
}

func TestNominateZeroBasePriceOpensAtOne(t *testing.T) {
	c := auctionContest("a", "b")
	item := &model.PoolItem{ID: "weedle", BasePrice: 0, Status: model.ItemAvailable}
	if err := Nominate(c, player("a", 100, 0), item, time.Now()); err != nil {
		t.Fatalf("nominate: %v", err)
	}
	if c.HighestBid != 1 {
		t.Fatalf("opening bid: got %d, want 1", c.HighestBid)
	}
}

func TestNominateRejections(t *testing.T) {
	item := &model.PoolItem{ID: "pika", BasePrice: 15, Status: model.ItemAvailable}
	drafted := &model.PoolItem{ID: "mew", BasePrice: 15, Status: model.ItemDrafted}

	cases := []struct {
		name    string
		mutate  func(c *model.Contest)
		player  model.PlayerState
		item    *model.PoolItem
		wantErr error
	}{
		{"wrong turn", nil, player("b", 100, 0), item, ErrWrongTurn},
		{"drafted item", nil, player("a", 100, 0), drafted, ErrItemUnavailable},
		{"full roster", nil, player("a", 100, 3), item, ErrRosterFull},
		{"cannot afford opening bid", nil, player("a", 10, 0), item, ErrInsufficientTokens},
		{
			"wrong phase",
			func(c *model.Contest) { c.AuctionPhase = model.PhaseBidding },
			player("a", 100, 0), item, ErrWrongPhase,
		},
		{
			"paused",
			func(c *model.Contest) { c.Status = model.StatusPaused },
			player("a", 100, 0), item, ErrPaused,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := auctionContest("a", "b")
			if tc.mutate != nil {
				tc.mutate(c)
			}
			if err := Nominate(c, tc.player, tc.item, time.Now()); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func biddingContest(now time.Time) *model.Contest {
	deadline := now.Add(30 * time.Second)
	c := auctionContest("a", "b", "a", "b")
	c.AuctionPhase = model.PhaseBidding
	c.ActiveItemID = "pika"
	c.HighestBid = 100
	c.HighestBidderID = "a"
	c.BidEndTime = &deadline
	return c
}

func TestValidateBid(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		mutate  func(c *model.Contest)
		bidder  model.PlayerState
		amount  int
		wantErr error
	}{
		{"valid raise", nil, player("b", 200, 0), 110, nil},
		{"equal bid is too low", nil, player("b", 200, 0), 100, ErrBidTooLow},
		{"raising own bid", nil, player("a", 200, 0), 101, ErrCannotRaiseOwnBid},
		{"roster full", nil, player("b", 200, 3), 110, ErrRosterFull},
		{"insufficient tokens", nil, player("b", 105, 0), 110, ErrInsufficientTokens},
		{
			"deadline passed",
			func(c *model.Contest) {
				past := now.Add(-time.Second)
				c.BidEndTime = &past
			},
			player("b", 200, 0), 110, ErrBiddingClosed,
		},
		{
			"no active item",
			func(c *model.Contest) { c.AuctionPhase = model.PhaseNominating },
			player("b", 200, 0), 110, ErrNoActiveAuction,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := biddingContest(now)
			if tc.mutate != nil {
				tc.mutate(c)
			}
			err := ValidateBid(c, tc.bidder, tc.amount, now)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestApplyBidAntiSnipe(t *testing.T) {
	now := time.Now()

	// 30s left: deadline untouched.
	c := biddingContest(now)
	before := *c.BidEndTime
	ApplyBid(c, "b", 110, now)
	if !c.BidEndTime.Equal(before) {
		t.Fatalf("deadline moved with 30s left: %v", c.BidEndTime)
	}
	if c.HighestBid != 110 || c.HighestBidderID != "b" {
		t.Fatalf("bid not recorded: %+v", c)
	}

	// 3s left: deadline resets to now+10s, never shorter.
	c = biddingContest(now)
	closing := now.Add(3 * time.Second)
	c.BidEndTime = &closing
	ApplyBid(c, "b", 110, now)
	if !c.BidEndTime.Equal(now.Add(10 * time.Second)) {
		t.Fatalf("anti-snipe deadline: got %v, want now+10s", c.BidEndTime)
	}

	// Untimed auctions stay untimed.
	c = biddingContest(now)
	c.BidEndTime = nil
	ApplyBid(c, "b", 110, now)
	if c.BidEndTime != nil {
		t.Fatalf("untimed auction gained a deadline: %v", c.BidEndTime)
	}
}

func TestCanSettle(t *testing.T) {
	now := time.Now()

	c := biddingContest(now)
	if err := CanSettle(c, now, false); !errors.Is(err, ErrBiddingStillOpen) {
		t.Fatalf("before deadline: got %v, want ErrBiddingStillOpen", err)
	}
	if err := CanSettle(c, now.Add(31*time.Second), false); err != nil {
		t.Fatalf("after deadline: %v", err)
	}

	// Untimed: only an admin command settles, but it settles immediately.
	c = biddingContest(now)
	c.BidEndTime = nil
	if err := CanSettle(c, now, false); !errors.Is(err, ErrBiddingStillOpen) {
		t.Fatalf("untimed non-admin: got %v", err)
	}
	if err := CanSettle(c, now, true); err != nil {
		t.Fatalf("untimed admin settle: %v", err)
	}

	c = biddingContest(now)
	c.AuctionPhase = model.PhaseNominating
	c.ActiveItemID = ""
	if err := CanSettle(c, now, true); !errors.Is(err, ErrNoActiveAuction) {
		t.Fatalf("no active auction: got %v", err)
	}
}
