package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/9seconds/iplocation/geolib"
)

// usageStats collects counters of served lookups and database
// reloads.
type usageStats struct {
	mutex         sync.Mutex
	lastReloaded  time.Time
	lastUsed      time.Time
	checksum      string
	foundCount    uint64
	notFoundCount uint64
	failureCount  uint64
}

func (u *usageStats) Used(data *geolib.GeoData, err error) {
	now := time.Now()

	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.lastUsed = now

	switch {
	case err != nil:
		u.failureCount++
	case data == nil:
		u.notFoundCount++
	default:
		u.foundCount++
	}
}

func (u *usageStats) Reloaded(checksum string) {
	now := time.Now()

	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.lastReloaded = now
	u.checksum = checksum
}

func (u *usageStats) MarshalJSON() ([]byte, error) {
	var lastReloadedTime, lastUsedTime int64

	u.mutex.Lock()

	if !u.lastReloaded.IsZero() {
		lastReloadedTime = u.lastReloaded.Unix()
	}

	if !u.lastUsed.IsZero() {
		lastUsedTime = u.lastUsed.Unix()
	}

	rawStruct := struct {
		Checksum      string `json:"checksum"`
		LastReloaded  int64  `json:"last_reloaded"`
		LastUsed      int64  `json:"last_used"`
		FoundCount    uint64 `json:"found_count"`
		NotFoundCount uint64 `json:"not_found_count"`
		FailureCount  uint64 `json:"failure_count"`
	}{
		Checksum:      u.checksum,
		LastReloaded:  lastReloadedTime,
		LastUsed:      lastUsedTime,
		FoundCount:    u.foundCount,
		NotFoundCount: u.notFoundCount,
		FailureCount:  u.failureCount,
	}

	u.mutex.Unlock()

	return json.Marshal(&rawStruct)
}
