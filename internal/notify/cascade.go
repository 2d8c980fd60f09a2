package notify

import "context"

// Cascade adapts a Store to the string-keyed cascade interface the event
// lifecycle service consumes.
type Cascade struct {
	store Store
}

// NewCascade wraps a store for use by the event service.
func NewCascade(store Store) Cascade {
	return Cascade{store: store}
}

// DeleteForEvent removes every notification row for one event.
func (c Cascade) DeleteForEvent(ctx context.Context, profile, title, category string) (int64, error) {
	return c.store.DeleteForEvent(ctx, EventRef{Profile: profile, Title: title, Category: category})
}

// HasRows reports whether any notification rows exist for one event.
func (c Cascade) HasRows(ctx context.Context, profile, title, category string) (bool, error) {
	rows, err := c.store.ListForEvent(ctx, EventRef{Profile: profile, Title: title, Category: category})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
