package draft

import (
	"context"
	"sync"

	"github.com/pokedraft/pokedraft-backend/internal/model"
)

// memStore is an in-memory Store with real transaction semantics: the
// state is cloned at Tx start and restored if the callback errors, so a
// failed mutation leaves nothing behind. beforeCAS, when set, runs just
// before a contest CAS and can mutate the committed state to simulate a
// concurrent writer.
type memStore struct {
	mu        sync.Mutex
	state     memState
	beforeCAS func(s *memState)
}

type memState struct {
	contests map[string]model.Contest
	players  map[string]model.Player
	items    map[string]model.PoolItem
	tiers    map[string]model.PriceTier
	roster   map[string]model.RosterEntry // keyed by item id
	actions  []model.ActionLogEntry
	nextLog  uint64
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		contests: map[string]model.Contest{},
		players:  map[string]model.Player{},
		items:    map[string]model.PoolItem{},
		tiers:    map[string]model.PriceTier{},
		roster:   map[string]model.RosterEntry{},
		nextLog:  1,
	}}
}

func (s memState) clone() memState {
	out := memState{
		contests: make(map[string]model.Contest, len(s.contests)),
		players:  make(map[string]model.Player, len(s.players)),
		items:    make(map[string]model.PoolItem, len(s.items)),
		tiers:    make(map[string]model.PriceTier, len(s.tiers)),
		roster:   make(map[string]model.RosterEntry, len(s.roster)),
		actions:  append([]model.ActionLogEntry(nil), s.actions...),
		nextLog:  s.nextLog,
	}
	for k, v := range s.contests {
		v.DraftOrder = append(model.StringList(nil), v.DraftOrder...)
		out.contests[k] = v
	}
	for k, v := range s.players {
		out.players[k] = v
	}
	for k, v := range s.items {
		out.items[k] = v
	}
	for k, v := range s.tiers {
		out.tiers[k] = v
	}
	for k, v := range s.roster {
		out.roster[k] = v
	}
	return out
}

func (m *memStore) Tx(_ context.Context, fn func(tx StoreTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	backup := m.state.clone()
	if err := fn(&memTx{store: m}); err != nil {
		m.state = backup
		return err
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) s() *memState { return &t.store.state }

func (t *memTx) CreateContest(c *model.Contest) error {
	t.s().contests[c.ID] = *c
	return nil
}

func (t *memTx) GetContest(id string) (*model.Contest, error) {
	c, ok := t.s().contests[id]
	if !ok {
		return nil, nil
	}
	c.DraftOrder = append(model.StringList(nil), c.DraftOrder...)
	return &c, nil
}

func (t *memTx) GetContestForUpdate(id string) (*model.Contest, error) {
	return t.GetContest(id)
}

func (t *memTx) CompareAndSwapContest(c *model.Contest, expectedVersion int64) (bool, error) {
	if t.store.beforeCAS != nil {
		hook := t.store.beforeCAS
		t.store.beforeCAS = nil
		hook(t.s())
	}
	cur, ok := t.s().contests[c.ID]
	if !ok || cur.Version != expectedVersion {
		return false, nil
	}
	c.Version = expectedVersion + 1
	saved := *c
	saved.DraftOrder = append(model.StringList(nil), c.DraftOrder...)
	t.s().contests[c.ID] = saved
	return true, nil
}

func (t *memTx) CreatePlayer(p *model.Player) error {
	t.s().players[p.ID] = *p
	return nil
}

func (t *memTx) GetPlayer(contestID, playerID string) (*model.Player, error) {
	p, ok := t.s().players[playerID]
	if !ok || p.ContestID != contestID {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) GetPlayerForUpdate(contestID, playerID string) (*model.Player, error) {
	return t.GetPlayer(contestID, playerID)
}

func (t *memTx) ListPlayers(contestID string) ([]model.Player, error) {
	var out []model.Player
	for _, p := range t.s().players {
		if p.ContestID == contestID {
			out = append(out, p)
		}
	}
	// Deterministic creation order: mem ids are assigned a, b, c... in
	// tests, so sort by id.
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID < out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (t *memTx) UpdatePlayerTokens(playerID string, tokens int) error {
	p := t.s().players[playerID]
	p.Tokens = tokens
	t.s().players[playerID] = p
	return nil
}

func (t *memTx) CountOwned(contestID, playerID string) (int, error) {
	n := 0
	for _, e := range t.s().roster {
		if e.ContestID == contestID && e.PlayerID == playerID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) OwnsInExclusiveGroup(contestID, playerID, group string) (bool, error) {
	for _, e := range t.s().roster {
		if e.ContestID != contestID || e.PlayerID != playerID {
			continue
		}
		if it, ok := t.s().items[e.ItemID]; ok && it.ExclusiveGroup == group {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreatePoolItem(i *model.PoolItem) error {
	t.s().items[i.ID] = *i
	return nil
}

func (t *memTx) GetPoolItem(contestID, itemID string) (*model.PoolItem, error) {
	it, ok := t.s().items[itemID]
	if !ok || it.ContestID != contestID {
		return nil, nil
	}
	return &it, nil
}

func (t *memTx) ListItems(contestID string) ([]model.PoolItem, error) {
	var out []model.PoolItem
	for _, it := range t.s().items {
		if it.ContestID == contestID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (t *memTx) ListAvailableItems(contestID string) ([]model.PoolItem, error) {
	var out []model.PoolItem
	for _, it := range t.s().items {
		if it.ContestID == contestID && it.Status == model.ItemAvailable {
			out = append(out, it)
		}
	}
	return out, nil
}

func (t *memTx) UpdateItemStatus(itemID string, status model.ItemStatus) error {
	it := t.s().items[itemID]
	it.Status = status
	t.s().items[itemID] = it
	return nil
}

func (t *memTx) CreateTier(tier *model.PriceTier) error {
	t.s().tiers[tier.ID] = *tier
	return nil
}

func (t *memTx) ListTiers(contestID string) ([]model.PriceTier, error) {
	var out []model.PriceTier
	for _, tr := range t.s().tiers {
		if tr.ContestID == contestID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (t *memTx) CreateRosterEntry(e *model.RosterEntry) error {
	t.s().roster[e.ItemID] = *e
	return nil
}

func (t *memTx) GetRosterEntry(contestID, playerID, itemID string) (*model.RosterEntry, error) {
	e, ok := t.s().roster[itemID]
	if !ok || e.ContestID != contestID || e.PlayerID != playerID {
		return nil, nil
	}
	return &e, nil
}

func (t *memTx) DeleteRosterEntry(contestID, playerID, itemID string) error {
	e, ok := t.s().roster[itemID]
	if ok && e.ContestID == contestID && e.PlayerID == playerID {
		delete(t.s().roster, itemID)
	}
	return nil
}

func (t *memTx) ListRoster(contestID string) ([]model.RosterEntry, error) {
	var out []model.RosterEntry
	for _, e := range t.s().roster {
		if e.ContestID == contestID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) AppendAction(e *model.ActionLogEntry) error {
	e.ID = t.s().nextLog
	t.s().nextLog++
	t.s().actions = append(t.s().actions, *e)
	return nil
}

func (t *memTx) LatestAwardAction(contestID string) (*model.ActionLogEntry, error) {
	undone := map[string]int{}
	for i := len(t.s().actions) - 1; i >= 0; i-- {
		e := t.s().actions[i]
		if e.ContestID != contestID {
			continue
		}
		switch e.Type {
		case model.ActionAdminUndo:
			d, err := e.DecodeDetail()
			if err != nil {
				return nil, err
			}
			u := d.(*model.UndoDetail)
			undone[u.PlayerID+"/"+u.ItemID]++
		case model.ActionPick, model.ActionSettle:
			d, err := e.DecodeDetail()
			if err != nil {
				return nil, err
			}
			var key string
			switch v := d.(type) {
			case *model.PickDetail:
				key = v.PlayerID + "/" + v.ItemID
			case *model.SettleDetail:
				key = v.WinnerID + "/" + v.ItemID
			}
			if undone[key] > 0 {
				undone[key]--
				continue
			}
			return &e, nil
		}
	}
	return nil, nil
}
