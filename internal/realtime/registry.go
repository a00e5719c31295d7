package realtime

import "sort"

// registry is the idempotent record of what the application currently
// wants to observe, keyed entity kind → set of IDs. Entries never
// expire implicitly; they are replayed verbatim on every reconnect
// until explicitly removed.
//
// Not safe for concurrent use; the service guards it with its mutex.
type registry struct {
	kinds map[string]map[string]struct{}
}

func newRegistry() *registry {
	return &registry{kinds: make(map[string]map[string]struct{})}
}

// Add records a subscription. Returns false if it was already present.
func (r *registry) Add(entity, id string) bool {
	ids, ok := r.kinds[entity]
	if !ok {
		ids = make(map[string]struct{})
		r.kinds[entity] = ids
	}
	if _, exists := ids[id]; exists {
		return false
	}
	ids[id] = struct{}{}
	return true
}

// Remove deletes a subscription. Returns false if it was not present.
func (r *registry) Remove(entity, id string) bool {
	ids, ok := r.kinds[entity]
	if !ok {
		return false
	}
	if _, exists := ids[id]; !exists {
		return false
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(r.kinds, entity)
	}
	return true
}

// Snapshot returns all subscriptions sorted by (entity, id) so replay
// order is deterministic.
func (r *registry) Snapshot() []Subscription {
	subs := make([]Subscription, 0, r.Count())
	for entity, ids := range r.kinds {
		for id := range ids {
			subs = append(subs, Subscription{Entity: entity, ID: id})
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Entity != subs[j].Entity {
			return subs[i].Entity < subs[j].Entity
		}
		return subs[i].ID < subs[j].ID
	})
	return subs
}

// Count returns the total number of subscriptions.
func (r *registry) Count() int {
	n := 0
	for _, ids := range r.kinds {
		n += len(ids)
	}
	return n
}
