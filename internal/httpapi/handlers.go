package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/internal/draft"
	"github.com/pokedraft/pokedraft-backend/internal/model"
)

// API carries the handler dependencies. Caller identity rides on the
// X-Player-ID header; there is no session layer in front of this service.
type API struct {
	svc *draft.Service
	log *zap.Logger
}

func NewAPI(svc *draft.Service, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{svc: svc, log: log}
}

func callerID(r *http.Request) string {
	return r.Header.Get("X-Player-ID")
}

type errorResponse struct {
	Error             string `json:"error"`
	SuggestedMaxPrice int    `json:"suggested_max_price,omitempty"`
}

// writeErr maps the service taxonomy onto HTTP. Conflict and exhausted
// resources are 409 (retry after re-fetch), rule violations are 422.
func (a *API) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, draft.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, draft.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, draft.ErrConflict),
		errors.Is(err, draft.ErrResourceExhausted),
		errors.Is(err, draft.ErrExclusivityViolation):
		status = http.StatusConflict
	case errors.Is(err, draft.ErrInfeasible),
		errors.Is(err, draft.ErrIllegalTurn):
		status = http.StatusUnprocessableEntity
	default:
		a.log.Error("unclassified handler error", zap.Error(err))
	}

	resp := errorResponse{Error: err.Error()}
	var inf *draft.InfeasibleError
	if errors.As(err, &inf) {
		resp.SuggestedMaxPrice = inf.SuggestedMaxPrice
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad json: " + err.Error()})
		return false
	}
	return true
}

type createContestRequest struct {
	Name              string `json:"name"`
	Mode              string `json:"mode"`
	PlayerBudget      int    `json:"player_budget"`
	MaxItemsPerPlayer int    `json:"max_items_per_player"`
	AuctionBasePrice  int    `json:"auction_base_price"`
	AuctionBidSeconds int    `json:"auction_bid_seconds"`
	Players           []struct {
		Name string `json:"name"`
	} `json:"players"`
	Tiers []struct {
		Name  string `json:"name"`
		Price int    `json:"price"`
	} `json:"tiers"`
	Items []struct {
		Name           string `json:"name"`
		BasePrice      int    `json:"base_price"`
		Tier           string `json:"tier"`
		ExclusiveGroup string `json:"exclusive_group"`
	} `json:"items"`
}

func (a *API) createContest(w http.ResponseWriter, r *http.Request) {
	var req createContestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	admin := callerID(r)
	if admin == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Player-ID"})
		return
	}

	params := draft.ContestParams{
		Name:               req.Name,
		Mode:               model.Mode(req.Mode),
		PlayerBudget:       req.PlayerBudget,
		MaxItemsPerPlayer:  req.MaxItemsPerPlayer,
		AuctionBasePrice:   req.AuctionBasePrice,
		AuctionBidDuration: time.Duration(req.AuctionBidSeconds) * time.Second,
	}
	for _, p := range req.Players {
		params.Players = append(params.Players, draft.PlayerSeed{Name: p.Name})
	}
	for _, t := range req.Tiers {
		params.Tiers = append(params.Tiers, draft.TierSeed{Name: t.Name, Price: t.Price})
	}
	for _, it := range req.Items {
		params.Items = append(params.Items, draft.ItemSeed{
			Name:           it.Name,
			BasePrice:      it.BasePrice,
			Tier:           it.Tier,
			ExclusiveGroup: it.ExclusiveGroup,
		})
	}

	contest, err := a.svc.CreateContest(r.Context(), admin, params)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	snap, err := a.svc.Snapshot(r.Context(), contest.ID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (a *API) getContest(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// mutation adapts the common (caller, contest) -> TurnInfo shape every
// state-changing endpoint shares.
func (a *API) mutation(fn func(r *http.Request, caller, contestID string) (*draft.TurnInfo, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := fn(r, callerID(r), chi.URLParam(r, "id"))
		if err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

type itemRequest struct {
	ItemID string `json:"item_id"`
}

type bidRequest struct {
	Amount int `json:"amount"`
}

func (a *API) pick(r *http.Request, caller, contestID string) (*draft.TurnInfo, error) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(draft.ErrIllegalTurn, err)
	}
	return a.svc.Pick(r.Context(), caller, contestID, req.ItemID)
}

func (a *API) nominate(r *http.Request, caller, contestID string) (*draft.TurnInfo, error) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(draft.ErrIllegalTurn, err)
	}
	return a.svc.Nominate(r.Context(), caller, contestID, req.ItemID)
}

func (a *API) bid(r *http.Request, caller, contestID string) (*draft.TurnInfo, error) {
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(draft.ErrIllegalTurn, err)
	}
	return a.svc.Bid(r.Context(), caller, contestID, req.Amount)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
