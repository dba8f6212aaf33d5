/*
views.go - Cached read models over the status table

PURPOSE:
  The input screens pre-check entries against the full tank-status map
  and offer pickers for destinations and ID prefixes. All of that is
  derived data served from the TTL cache; the dispatcher invalidates
  the status map after any commit, the rest expires on its own.
*/
package inventory

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/tanklink/tankops/cache"
	"github.com/tanklink/tankops/sheet"
	"github.com/tanklink/tankops/tankid"
)

// TankInfo is the status-map value for one tank.
type TankInfo struct {
	Status   Status `json:"status"`
	Location string `json:"loc"`
}

// Views serves cached derived reads. Safe for concurrent use.
type Views struct {
	Store     sheet.Store
	Cache     *cache.Cache
	StatusTTL time.Duration
	MasterTTL time.Duration
}

func NewViews(st sheet.Store, c *cache.Cache) *Views {
	return &Views{
		Store:     st,
		Cache:     c,
		StatusTTL: 6 * time.Hour,
		MasterTTL: 12 * time.Hour,
	}
}

// StatusMap returns canonical key -> {status, location} for every
// tank, from cache unless forceRefresh.
func (v *Views) StatusMap(ctx context.Context, forceRefresh bool) (map[string]TankInfo, error) {
	if !forceRefresh {
		if raw, ok := v.Cache.Get(cache.KeyTankStatusMap); ok {
			var m map[string]TankInfo
			if err := json.Unmarshal([]byte(raw), &m); err == nil {
				return m, nil
			}
			// Corrupt cache entry; rebuild below.
			v.Cache.Remove(cache.KeyTankStatusMap)
		}
	}

	snap, err := LoadSnapshot(ctx, v.Store)
	if err != nil {
		return nil, err
	}

	m := make(map[string]TankInfo, snap.Len())
	for i := 1; i < len(snap.Rows); i++ {
		row := snap.Rows[i]
		if key := tankid.Normalize(row[colID]); key != "" {
			m[key] = TankInfo{Status: Status(row[colStatus]), Location: row[colLocation]}
		}
	}

	if raw, err := json.Marshal(m); err == nil {
		v.Cache.Put(cache.KeyTankStatusMap, string(raw), v.StatusTTL)
	}
	return m, nil
}

// Prefixes returns the distinct leading letter runs of all tank IDs,
// sorted. Falls back to the standard series when the table is empty.
func (v *Views) Prefixes(ctx context.Context) ([]string, error) {
	if raw, ok := v.Cache.Get(cache.KeyTankPrefixes); ok {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list, nil
		}
	}

	snap, err := LoadSnapshot(ctx, v.Store)
	if err != nil {
		return nil, err
	}

	set := map[string]bool{}
	for i := 1; i < len(snap.Rows); i++ {
		if p := tankid.Prefix(snap.Rows[i][colID]); p != "" {
			set[p] = true
		}
	}
	list := make([]string, 0, len(set))
	for p := range set {
		list = append(list, p)
	}
	sort.Strings(list)

	if len(list) == 0 {
		list = []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	}

	if raw, err := json.Marshal(list); err == nil {
		v.Cache.Put(cache.KeyTankPrefixes, string(raw), v.StatusTTL)
	} else {
		log.Printf("[Views] prefix cache encode failed: %v", err)
	}
	return list, nil
}

// Destinations returns the active lending destinations: suspended
// rows (停止 flag or 【停止】 name prefix) are skipped.
func (v *Views) Destinations(ctx context.Context) ([]string, error) {
	key := cache.ListKey(SheetDest)
	if raw, ok := v.Cache.Get(key); ok {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list, nil
		}
	}

	rows, err := sheet.ReadAll(ctx, v.Store, SheetDest, 4)
	if err != nil {
		return nil, err
	}

	var list []string
	for _, row := range rows {
		name := row[0]
		if name == "" || row[3] == "停止" || strings.HasPrefix(name, "【停止】") {
			continue
		}
		list = append(list, name)
	}

	if len(list) > 0 {
		if raw, err := json.Marshal(list); err == nil {
			v.Cache.Put(key, string(raw), v.MasterTTL)
		}
	}
	return list, nil
}

// InHouseTanks lists tanks currently in in-house use, sorted by ID.
func (v *Views) InHouseTanks(ctx context.Context) ([]string, error) {
	snap, err := LoadSnapshot(ctx, v.Store)
	if err != nil {
		return nil, err
	}

	var list []string
	for i := 1; i < len(snap.Rows); i++ {
		if Status(snap.Rows[i][colStatus]) == StatusInHouse {
			list = append(list, tankid.FormatDisplay(snap.Rows[i][colID]))
		}
	}
	sort.Strings(list)
	return list, nil
}

// InvalidateMasters drops every master-data cache entry. Exposed as
// the "refresh masters" admin action.
func (v *Views) InvalidateMasters() {
	v.Cache.RemoveAll(
		cache.ListKey(SheetDest),
		cache.KeyPriceMaster,
		cache.KeyRepairOptions,
		cache.KeyTankPrefixes,
		cache.KeyTankStatusMap,
	)
}
