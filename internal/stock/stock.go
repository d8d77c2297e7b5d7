// Package stock reconciles menu and addon inventory when an order's line
// quantities change.
package stock

import (
	"fmt"
	"maps"
	"net/http"
	"sort"
)

type Kind string

const (
	KindMenu  Kind = "MENU"
	KindAddon Kind = "ADDON"
)

// Quantities is the consumption of one order keyed by menu id and addon id.
type Quantities struct {
	Menus  map[int64]int32
	Addons map[int64]int32
}

func NewQuantities() Quantities {
	return Quantities{Menus: map[int64]int32{}, Addons: map[int64]int32{}}
}

func (q Quantities) AddMenu(id int64, qty int32) {
	if id > 0 && qty > 0 {
		q.Menus[id] += qty
	}
}

func (q Quantities) AddAddon(id int64, qty int32) {
	if id > 0 && qty > 0 {
		q.Addons[id] += qty
	}
}

func (q Quantities) MenuIDs() []int64  { return unionKeys(q.Menus, nil) }
func (q Quantities) AddonIDs() []int64 { return unionKeys(q.Addons, nil) }

type Entity struct {
	Kind              Kind
	ID                int64
	Name              string
	TrackStock        bool
	StockQty          *int32
	LowStockThreshold *int32
}

// Adjustment is a net change for one entity. Positive Delta consumes stock.
type Adjustment struct {
	Kind  Kind
	ID    int64
	Name  string
	Delta int32
}

type InsufficientError struct {
	Kind      Kind
	ID        int64
	Name      string
	Available int32
	Requested int32
}

const ErrInsufficientStock = "INSUFFICIENT_STOCK"

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("Insufficient stock for %q.", e.Name)
}

func (e *InsufficientError) Code() string    { return ErrInsufficientStock }
func (e *InsufficientError) StatusCode() int { return http.StatusConflict }

func (e *InsufficientError) Details() map[string]any {
	return map[string]any{
		"kind":      e.Kind,
		"id":        e.ID,
		"name":      e.Name,
		"available": e.Available,
		"requested": e.Requested,
	}
}

// Plan computes the per-entity deltas between two consumption snapshots and
// checks each consuming delta against the entity's current stock. Entities
// that do not track stock, or have no stock count, are left out.
func Plan(before, after Quantities, entities []Entity) ([]Adjustment, error) {
	byKey := make(map[Kind]map[int64]Entity, 2)
	byKey[KindMenu] = map[int64]Entity{}
	byKey[KindAddon] = map[int64]Entity{}
	for _, e := range entities {
		byKey[e.Kind][e.ID] = e
	}

	var adjustments []Adjustment
	collect := func(kind Kind, old, next map[int64]int32) error {
		for _, id := range unionKeys(old, next) {
			delta := next[id] - old[id]
			if delta == 0 {
				continue
			}
			entity, ok := byKey[kind][id]
			if !ok || !entity.TrackStock || entity.StockQty == nil {
				continue
			}
			if delta > 0 && *entity.StockQty < delta {
				return &InsufficientError{Kind: kind, ID: id, Name: entity.Name, Available: *entity.StockQty, Requested: delta}
			}
			adjustments = append(adjustments, Adjustment{Kind: kind, ID: id, Name: entity.Name, Delta: delta})
		}
		return nil
	}

	if err := collect(KindMenu, before.Menus, after.Menus); err != nil {
		return nil, err
	}
	if err := collect(KindAddon, before.Addons, after.Addons); err != nil {
		return nil, err
	}
	return adjustments, nil
}

// Touched lists the menu and addon ids present in either snapshot.
func Touched(before, after Quantities) (menuIDs, addonIDs []int64) {
	return unionKeys(before.Menus, after.Menus), unionKeys(before.Addons, after.Addons)
}

// Equal reports whether two snapshots consume exactly the same quantities.
func (q Quantities) Equal(other Quantities) bool {
	return maps.Equal(q.Menus, other.Menus) && maps.Equal(q.Addons, other.Addons)
}

func unionKeys(a, b map[int64]int32) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	keys := make([]int64, 0, len(a)+len(b))
	for _, m := range []map[int64]int32{a, b} {
		for id := range m {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			keys = append(keys, id)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
