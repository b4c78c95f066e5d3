package services

import (
	"sort"
	"sync"
	"time"

	"pawwalk/internal/walk-service/core/domain/model"
	ports "pawwalk/internal/walk-service/core/ports/driven"
)

// BlockStore holds "my" and "others'" occupied cells for one walk. A cell id
// lives in at most one of the two maps; every mutation keeps that true under
// a single lock and emits exactly one snapshot to subscribers.
type BlockStore struct {
	// notifyMu keeps snapshots reaching listeners in mutation order
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	mine      map[string]model.Cell
	others    map[string]model.Cell
	listeners map[int]func(model.BlockSnapshot)
	nextID    int
}

var _ ports.IBlockStore = (*BlockStore)(nil)

func NewBlockStore() *BlockStore {
	return &BlockStore{
		mine:      make(map[string]model.Cell),
		others:    make(map[string]model.Cell),
		listeners: make(map[int]func(model.BlockSnapshot)),
	}
}

func (s *BlockStore) SetMine(cells []model.Cell) {
	s.mutate(func() {
		s.mine = make(map[string]model.Cell, len(cells))
		for _, c := range cells {
			delete(s.others, c.ID)
			s.mine[c.ID] = c
		}
	})
}

func (s *BlockStore) SetOthers(cells []model.Cell) {
	s.mutate(func() {
		s.others = make(map[string]model.Cell, len(cells))
		for _, c := range cells {
			delete(s.mine, c.ID)
			s.others[c.ID] = c
		}
	})
}

// Replace swaps both maps at once. On a duplicate id "mine" wins.
func (s *BlockStore) Replace(mine, others []model.Cell) {
	s.mutate(func() {
		s.mine = make(map[string]model.Cell, len(mine))
		s.others = make(map[string]model.Cell, len(others))
		for _, c := range mine {
			s.mine[c.ID] = c
		}
		for _, c := range others {
			if _, ok := s.mine[c.ID]; ok {
				continue
			}
			s.others[c.ID] = c
		}
	})
}

func (s *BlockStore) AddMine(cell model.Cell) {
	s.mutate(func() {
		delete(s.others, cell.ID)
		s.mine[cell.ID] = cell
	})
}

func (s *BlockStore) RemoveMine(cellID string) {
	s.mutate(func() {
		delete(s.mine, cellID)
	})
}

// UpsertOthers covers both a first occupation by another dog and a takeover
// between two other dogs.
func (s *BlockStore) UpsertOthers(cell model.Cell) {
	s.mutate(func() {
		delete(s.mine, cell.ID)
		s.others[cell.ID] = cell
	})
}

func (s *BlockStore) RemoveOthers(cellID string) {
	s.mutate(func() {
		delete(s.others, cellID)
	})
}

// ApplyTakeover moves ownership of cellID to toDogID in one transition. It
// reports whether the store agreed that fromDogID was the previous owner; a
// takeover of an unknown or differently owned cell is still applied.
func (s *BlockStore) ApplyTakeover(cellID string, fromDogID, toDogID model.DogID, byMe bool, at time.Time) (matched bool) {
	s.mutate(func() {
		prev, ok := s.mine[cellID]
		if !ok {
			prev, ok = s.others[cellID]
		}
		matched = ok && prev.OwnerID == fromDogID

		cell := model.Cell{ID: cellID, OwnerID: toDogID, OccupiedAt: at}
		if byMe {
			delete(s.others, cellID)
			s.mine[cellID] = cell
			return
		}
		delete(s.mine, cellID)
		s.others[cellID] = cell
	})
	return matched
}

func (s *BlockStore) Reset() {
	s.Replace(nil, nil)
}

func (s *BlockStore) Snapshot() model.BlockSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *BlockStore) Mine() []model.Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCells(s.mine)
}

func (s *BlockStore) Others() []model.Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCells(s.others)
}

func (s *BlockStore) Owner(cellID string) (model.Cell, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.mine[cellID]; ok {
		return c, true, true
	}
	c, ok := s.others[cellID]
	return c, false, ok
}

// Subscribe registers fn for every state change. fn runs on the mutating
// goroutine after the lock is released; it must not block or mutate the store.
func (s *BlockStore) Subscribe(fn func(model.BlockSnapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *BlockStore) mutate(apply func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	apply()
	snap := s.snapshotLocked()
	listeners := make([]func(model.BlockSnapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (s *BlockStore) snapshotLocked() model.BlockSnapshot {
	return model.BlockSnapshot{
		Mine:   sortedCells(s.mine),
		Others: sortedCells(s.others),
	}
}

func sortedCells(m map[string]model.Cell) []model.Cell {
	cells := make([]model.Cell, 0, len(m))
	for _, c := range m {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].ID < cells[j].ID })
	return cells
}
