package draft

import (
	"errors"
	"fmt"

	"github.com/pokedraft/pokedraft-backend/internal/engine"
)

// The caller-facing failure taxonomy. Conflict is the only class a caller
// should silently retry (re-fetch, re-issue); everything else is surfaced
// with its reason.
var ErrConflict = errors.New("contest was modified concurrently")
var ErrIllegalTurn = errors.New("action is not legal right now")
var ErrInfeasible = errors.New("action would strand a roster")
var ErrResourceExhausted = errors.New("resource exhausted")
var ErrExclusivityViolation = errors.New("an item from this exclusive group is already owned")
var ErrNotFound = errors.New("not found")
var ErrUnauthorized = errors.New("caller lacks rights for this action")

// InfeasibleError carries the solver's remediation hint alongside the
// rejection.
type InfeasibleError struct {
	Reason            string
	SuggestedMaxPrice int
}

func (e *InfeasibleError) Error() string {
	if e.SuggestedMaxPrice > 0 {
		return fmt.Sprintf("%s (max affordable price: %d)", e.Reason, e.SuggestedMaxPrice)
	}
	return e.Reason
}

func (e *InfeasibleError) Is(target error) bool { return target == ErrInfeasible }

// classify folds engine sentinels into the caller-facing taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrItemUnavailable),
		errors.Is(err, engine.ErrRosterFull),
		errors.Is(err, engine.ErrInsufficientTokens):
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	default:
		return fmt.Errorf("%w: %w", ErrIllegalTurn, err)
	}
}
