package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/internal/engine"
	"github.com/pokedraft/pokedraft-backend/internal/feasibility"
	"github.com/pokedraft/pokedraft-backend/internal/model"
)

type PlayerSeed struct {
	Name string
}

type TierSeed struct {
	Name  string
	Price int
}

type ItemSeed struct {
	Name           string
	BasePrice      int
	Tier           string
	ExclusiveGroup string
}

type ContestParams struct {
	Name               string
	Mode               model.Mode
	PlayerBudget       int
	MaxItemsPerPlayer  int
	AuctionBasePrice   int
	AuctionBidDuration time.Duration
	Players            []PlayerSeed
	Tiers              []TierSeed
	Items              []ItemSeed
}

// CreateContest sets up a PENDING contest with its players, tiers, and
// item pool. Base prices are clamped to 1: a free item would poison every
// feasibility verdict.
func (s *Service) CreateContest(ctx context.Context, adminID string, params ContestParams) (*model.Contest, error) {
	if params.Mode != model.ModeSnake && params.Mode != model.ModeAuction {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrIllegalTurn, params.Mode)
	}
	if len(params.Players) < 2 {
		return nil, fmt.Errorf("%w: a contest needs at least two players", ErrIllegalTurn)
	}
	if params.MaxItemsPerPlayer < 1 || params.PlayerBudget < 1 {
		return nil, fmt.Errorf("%w: budget and roster size must be positive", ErrIllegalTurn)
	}

	contest := &model.Contest{
		ID:                uuid.NewString(),
		Name:              params.Name,
		AdminID:           adminID,
		Mode:              params.Mode,
		Status:            model.StatusPending,
		PlayerBudget:      params.PlayerBudget,
		MaxItemsPerPlayer: params.MaxItemsPerPlayer,
		AuctionBasePrice:  params.AuctionBasePrice,
		AuctionBidDur:     params.AuctionBidDuration,
	}

	err := s.store.Tx(ctx, func(tx StoreTx) error {
		if err := tx.CreateContest(contest); err != nil {
			return err
		}
		for _, seed := range params.Players {
			if err := tx.CreatePlayer(&model.Player{
				ID:        uuid.NewString(),
				ContestID: contest.ID,
				Name:      seed.Name,
				Tokens:    params.PlayerBudget,
			}); err != nil {
				return err
			}
		}
		tierIDs := make(map[string]string, len(params.Tiers))
		for _, seed := range params.Tiers {
			price := seed.Price
			if price < 1 {
				price = 1
			}
			id := uuid.NewString()
			tierIDs[seed.Name] = id
			if err := tx.CreateTier(&model.PriceTier{
				ID:        id,
				ContestID: contest.ID,
				Name:      seed.Name,
				Price:     price,
			}); err != nil {
				return err
			}
		}
		for _, seed := range params.Items {
			price := seed.BasePrice
			if price < 1 {
				price = 1
			}
			tierID, ok := tierIDs[seed.Tier]
			if !ok && seed.Tier != "" {
				return fmt.Errorf("%w: tier %q", ErrNotFound, seed.Tier)
			}
			if err := tx.CreatePoolItem(&model.PoolItem{
				ID:             uuid.NewString(),
				ContestID:      contest.ID,
				Name:           seed.Name,
				BasePrice:      price,
				Status:         model.ItemAvailable,
				ExclusiveGroup: seed.ExclusiveGroup,
				TierID:         tierID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("contest created",
		zap.String("contest", contest.ID),
		zap.String("mode", string(contest.Mode)),
		zap.Int("players", len(params.Players)))
	return contest, nil
}

// StartContest validates completability and flips the contest to ACTIVE.
// Snake drafts are gated on the tier-completeness check; auction drafts on
// a plain team-fill check per player.
func (s *Service) StartContest(ctx context.Context, callerID, contestID string) (*TurnInfo, error) {
	var info *TurnInfo

	err := s.store.Tx(ctx, func(tx StoreTx) error {
		c, err := tx.GetContest(contestID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: contest %s", ErrNotFound, contestID)
		}
		if c.AdminID != callerID {
			return ErrUnauthorized
		}
		if c.Status != model.StatusPending {
			return fmt.Errorf("%w: contest already started", ErrIllegalTurn)
		}
		observed := c.Version

		players, err := tx.ListPlayers(contestID)
		if err != nil {
			return err
		}
		available, err := tx.ListAvailableItems(contestID)
		if err != nil {
			return err
		}

		if c.Mode == model.ModeSnake {
			if err := checkTiers(tx, c, available, len(players)); err != nil {
				return err
			}
		} else {
			need := len(players) * c.MaxItemsPerPlayer
			if len(available) < need {
				return &InfeasibleError{Reason: fmt.Sprintf("pool has %d items, %d players x %d slots need %d",
					len(available), len(players), c.MaxItemsPerPlayer, need)}
			}
			if !feasibility.CanFillTeam(c.PlayerBudget, c.MaxItemsPerPlayer, prices(available, "")) {
				return &InfeasibleError{Reason: "budget cannot cover the cheapest full roster"}
			}
		}

		ids := make([]string, len(players))
		for i, p := range players {
			ids[i] = p.ID
		}
		c.DraftOrder = engine.BuildSnakeOrder(ids, c.MaxItemsPerPlayer)
		c.CurrentTurn = 0
		c.Status = model.StatusActive
		if c.Mode == model.ModeAuction {
			c.AuctionPhase = model.PhaseNominating
		}

		if err := s.cas(tx, c, observed); err != nil {
			return err
		}
		if err := appendAction(tx, contestID, &model.StartDetail{
			AdminID: callerID,
			Order:   c.DraftOrder,
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
	s.log.Info("contest started", zap.String("contest", contestID))
	return info, nil
}

// checkTiers enforces the snake-mode start gate: every available item in
// exactly one tier, and the tier configuration completable for every
// player simultaneously.
func checkTiers(tx StoreTx, c *model.Contest, available []model.PoolItem, playerCount int) error {
	tiers, err := tx.ListTiers(c.ID)
	if err != nil {
		return err
	}
	byID := make(map[string]*feasibility.Tier, len(tiers))
	solverTiers := make([]feasibility.Tier, len(tiers))
	for i, t := range tiers {
		solverTiers[i] = feasibility.Tier{Name: t.Name, Price: t.Price}
		byID[t.ID] = &solverTiers[i]
	}
	for _, it := range available {
		t, ok := byID[it.TierID]
		if !ok {
			return &InfeasibleError{Reason: fmt.Sprintf("item %q is not assigned to a tier", it.Name)}
		}
		t.Count++
	}
	report := feasibility.CheckTierCompleteness(
		solverTiers, c.PlayerBudget, c.MaxItemsPerPlayer, playerCount, feasibility.TierModeBest)
	if !report.Feasible {
		reason := report.Reason
		if len(report.Suggestions) > 0 {
			reason += "; " + strings.Join(report.Suggestions, "; ")
		}
		return &InfeasibleError{Reason: reason}
	}
	return nil
}

// Pause freezes the contest, capturing any running bid timer.
func (s *Service) Pause(ctx context.Context, callerID, contestID string) (*TurnInfo, error) {
	return s.adminTransition(ctx, callerID, contestID, func(c *model.Contest, now time.Time) (model.ActionDetail, error) {
		if err := engine.Pause(c, now); err != nil {
			return nil, classify(err)
		}
		return &model.PauseDetail{AdminID: callerID, Remaining: c.PausedTimeRemaining}, nil
	})
}

// Resume unfreezes the contest and restarts a captured bid timer.
func (s *Service) Resume(ctx context.Context, callerID, contestID string) (*TurnInfo, error) {
	return s.adminTransition(ctx, callerID, contestID, func(c *model.Contest, now time.Time) (model.ActionDetail, error) {
		if err := engine.Resume(c, now); err != nil {
			return nil, classify(err)
		}
		return &model.ResumeDetail{AdminID: callerID}, nil
	})
}

// Skip pushes the current draft slot to the end of the order. The skipped
// player keeps all future turns; whoever shifted into the slot acts next.
func (s *Service) Skip(ctx context.Context, callerID, contestID string) (*TurnInfo, error) {
	return s.adminTransition(ctx, callerID, contestID, func(c *model.Contest, now time.Time) (model.ActionDetail, error) {
		if err := requireActive(c); err != nil {
			return nil, classify(err)
		}
		// Resolve the occupant before mutating: in auction mode the
		// nominator is the cursor modulo the player count, not the slot
		// at the cursor.
		skipped, _ := engine.CurrentPlayerID(c)
		turn := c.CurrentTurn
		if err := engine.AdminSkip(c); err != nil {
			return nil, classify(err)
		}
		return &model.SkipDetail{AdminID: callerID, SkippedPlayerID: skipped, TurnIndex: turn}, nil
	})
}

// adminTransition is the shared shell for contest-level admin mutations:
// authorize, mutate in memory, CAS, log, publish.
func (s *Service) adminTransition(ctx context.Context, callerID, contestID string,
	mutate func(c *model.Contest, now time.Time) (model.ActionDetail, error)) (*TurnInfo, error) {

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
		if c.AdminID != callerID {
			return ErrUnauthorized
		}
		observed := c.Version

		detail, err := mutate(c, now)
		if err != nil {
			return err
		}
		if err := s.cas(tx, c, observed); err != nil {
			return err
		}
		if err := appendAction(tx, contestID, detail); err != nil {
			return err
		}
		info = turnInfo(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(contestID)
	return info, nil
}

// Undo reverses the most recent item award (a snake pick or an auction
// settlement): the roster entry is removed, the item returns to the pool,
// tokens are refunded, and the cursor rewinds. The contest is left PAUSED
// so the admin can review before resuming.
func (s *Service) Undo(ctx context.Context, callerID, contestID string) (*TurnInfo, error) {
	var info *TurnInfo

	err := s.store.Tx(ctx, func(tx StoreTx) error {
		c, err := tx.GetContest(contestID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: contest %s", ErrNotFound, contestID)
		}
		if c.AdminID != callerID {
			return ErrUnauthorized
		}
		observed := c.Version

		entry, err := tx.LatestAwardAction(contestID)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%w: no pick to undo", ErrNotFound)
		}
		detail, err := entry.DecodeDetail()
		if err != nil {
			return err
		}

		var playerID, itemID string
		var refund, awardTurn int
		switch d := detail.(type) {
		case *model.PickDetail:
			playerID, itemID, refund, awardTurn = d.PlayerID, d.ItemID, d.Cost, d.TurnIndex
		case *model.SettleDetail:
			playerID, itemID, refund, awardTurn = d.WinnerID, d.ItemID, d.Cost, d.TurnIndex
		default:
			return fmt.Errorf("%w: latest award entry has type %s", ErrConflict, entry.Type)
		}

		// The item must still sit on that player's roster; if it was
		// since removed or traded the undo no longer applies cleanly.
		roster, err := tx.GetRosterEntry(contestID, playerID, itemID)
		if err != nil {
			return err
		}
		if roster == nil {
			return fmt.Errorf("%w: item %s is no longer owned by player %s", ErrConflict, itemID, playerID)
		}
		player, err := tx.GetPlayer(contestID, playerID)
		if err != nil {
			return err
		}
		if player == nil {
			return fmt.Errorf("%w: player %s", ErrNotFound, playerID)
		}

		if err := tx.DeleteRosterEntry(contestID, playerID, itemID); err != nil {
			return err
		}
		if err := tx.UpdateItemStatus(itemID, model.ItemAvailable); err != nil {
			return err
		}
		if err := tx.UpdatePlayerTokens(playerID, player.Tokens+refund); err != nil {
			return err
		}

		if c.Mode == model.ModeSnake {
			// Exact rewind by scan: intervening skips may have moved
			// slots around, so cursor-1 would be wrong.
			if turn, found := engine.RewindTurn(c, playerID); found {
				c.CurrentTurn = turn
			}
		} else {
			// Reversing a settlement reopens the nomination turn it
			// was awarded on; the item can be re-nominated.
			c.CurrentTurn = awardTurn
			engine.ClearAuction(c)
		}
		c.Status = model.StatusPaused
		c.IsPaused = true

		if err := s.cas(tx, c, observed); err != nil {
			return err
		}
		if err := appendAction(tx, contestID, &model.UndoDetail{
			AdminID:     callerID,
			PlayerID:    playerID,
			ItemID:      itemID,
			Refund:      refund,
			RewoundTurn: c.CurrentTurn,
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
	s.log.Info("pick undone", zap.String("contest", contestID), zap.Int64("version", info.Version))
	return info, nil
}
