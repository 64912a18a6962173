/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package itemstore

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Item is the locally known metadata of a remote item.
type Item struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
}

// Store maps item identifiers to items. It is safe for concurrent use.
type Store struct {
	items *xsync.MapOf[string, Item]
}

// New creates an empty Store.
func New() *Store {
	return &Store{items: xsync.NewMapOf[string, Item]()}
}

// AddItems inserts or overwrites every item by its identifier
// and returns the identifiers in input order.
func (s *Store) AddItems(items []Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		s.items.Store(item.ItemID, item)
		ids = append(ids, item.ItemID)
	}
	return ids
}

// GetItem returns the item stored under id.
func (s *Store) GetItem(id string) (Item, bool) {
	return s.items.Load(id)
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	return s.items.Size()
}
