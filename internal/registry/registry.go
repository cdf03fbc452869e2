// Package registry maps caller-facing instance identifiers to live native
// handles.
//
// A Registry has no locking. It belongs to exactly one execution context (the
// goroutine that drives the native library) and must only be touched from
// there. Hosts that need several native contexts create one Registry each.
package registry

import "sort"

// ID names one registered instance. IDs are issued in strictly increasing
// order and never reused by the Registry that issued them.
type ID uint32

// Registry is an arena of handles addressed by ID.
type Registry[H any] struct {
	next    ID
	entries map[ID]H
}

// New returns an empty registry whose first issued ID is 0.
func New[H any]() *Registry[H] {
	return &Registry[H]{entries: make(map[ID]H)}
}

// Allocate returns the next unused ID.
func (r *Registry[H]) Allocate() ID {
	id := r.next
	r.next++
	return id
}

// Insert records that id maps to handle, overwriting any previous entry.
func (r *Registry[H]) Insert(id ID, handle H) {
	r.entries[id] = handle
}

// Get resolves id. The boolean is false for IDs that were never inserted or
// have been removed.
func (r *Registry[H]) Get(id ID) (H, bool) {
	h, ok := r.entries[id]
	return h, ok
}

// Remove drops id and returns the handle it mapped to.
func (r *Registry[H]) Remove(id ID) (H, bool) {
	h, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return h, ok
}

// Len returns the number of live entries.
func (r *Registry[H]) Len() int {
	return len(r.entries)
}

// IDs returns the live IDs in ascending order.
func (r *Registry[H]) IDs() []ID {
	ids := make([]ID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
