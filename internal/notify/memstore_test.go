package notify

import (
	"context"
	"sort"
	"sync"
)

// memStore is an in-memory Store used by the package tests.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*Pending
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func sameTuple(a, b *Pending) bool {
	return a.Category == b.Category && a.Profile == b.Profile &&
		a.Title == b.Title && a.TimingType == b.TimingType &&
		a.NotifyUnix == b.NotifyUnix && a.Region == b.Region
}

func (s *memStore) Insert(ctx context.Context, p *Pending) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if sameTuple(row, p) {
			return false, nil
		}
	}
	cp := *p
	cp.ID = s.nextID
	s.nextID++
	s.rows = append(s.rows, &cp)
	return true, nil
}

// insertRaw bypasses the uniqueness check, simulating legacy ad-hoc writes.
func (s *memStore) insertRaw(p *Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.ID = s.nextID
	s.nextID++
	s.rows = append(s.rows, &cp)
}

func (s *memStore) Exists(ctx context.Context, p *Pending) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if sameTuple(row, p) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ClaimDue(ctx context.Context, deadline int64, limit int) ([]*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []*Pending
	for _, row := range s.rows {
		if row.Sent || row.NotifyUnix > deadline {
			continue
		}
		row.Sent = true
		cp := *row
		claimed = append(claimed, &cp)
		if len(claimed) == limit {
			break
		}
	}
	return claimed, nil
}

func (s *memStore) ListForEvent(ctx context.Context, ref EventRef) ([]*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Pending
	for _, row := range s.rows {
		if row.Profile == ref.Profile && row.Title == ref.Title && row.Category == ref.Category {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NotifyUnix < out[j].NotifyUnix })
	return out, nil
}

func (s *memStore) ListPending(ctx context.Context, limit int) ([]*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Pending
	for _, row := range s.rows {
		if row.Sent {
			continue
		}
		cp := *row
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.rows {
		if !row.Sent {
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteForEvent(ctx context.Context, ref EventRef) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*Pending
	var removed int64
	for _, row := range s.rows {
		if row.Profile == ref.Profile && row.Title == ref.Title && row.Category == ref.Category {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return removed, nil
}

func (s *memStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.rows))
	s.rows = nil
	return n, nil
}

func (s *memStore) SetCustomMessage(ctx context.Context, id int64, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id {
			row.CustomMessage = message
			return nil
		}
	}
	return nil
}

func (s *memStore) EventRefs(ctx context.Context) ([]EventRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[EventRef]bool)
	var refs []EventRef
	for _, row := range s.rows {
		ref := EventRef{Profile: row.Profile, Title: row.Title, Category: row.Category}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (s *memStore) TimingTypes(ctx context.Context, ref EventRef) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var types []string
	for _, row := range s.rows {
		if row.Profile != ref.Profile || row.Title != ref.Title || row.Category != ref.Category {
			continue
		}
		if !seen[row.TimingType] {
			seen[row.TimingType] = true
			types = append(types, row.TimingType)
		}
	}
	return types, nil
}

func (s *memStore) RemoveDuplicates(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*Pending
	var removed int64
	for _, row := range s.rows {
		dup := false
		for _, k := range kept {
			if sameTuple(k, row) {
				dup = true
				break
			}
		}
		if dup {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return removed, nil
}

func (s *memStore) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*Pending
	var removed int64
	for _, row := range s.rows {
		if row.EventTimeUnix > 0 && row.EventTimeUnix < now-expiredRetention {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return removed, nil
}

func (s *memStore) all() []*Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Pending, len(s.rows))
	for i, row := range s.rows {
		cp := *row
		out[i] = &cp
	}
	return out
}
