// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hub

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"xaphub/internal/logger"
)

// ClientEntry is the liveness record of one local client, keyed by port
type ClientEntry struct {
	Port     int       `json:"port"`
	Source   string    `json:"source"`
	Interval int       `json:"interval"`
	LastSeen time.Time `json:"last_seen"`
	Active   bool      `json:"active"`
}

// maxWindowInterval is the largest interval whose window fits in a time.Duration
const maxWindowInterval = int64(math.MaxInt64 / int64(2*time.Second))

// livenessWindow is how long after its last heartbeat a client is still forwarded to
func (e *ClientEntry) livenessWindow() time.Duration {
	if int64(e.Interval) > maxWindowInterval {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(e.Interval) * 2 * time.Second
}

// ClientRegistry tracks local clients announced by heartbeat.
// Entries are never removed, only deactivated, and stale entries are only
// discovered when Forwardable is evaluated.
type ClientRegistry struct {
	entries []*ClientEntry
	byPort  map[int]*ClientEntry
	clock   clock.Clock
	logger  zerolog.Logger
	mutex   sync.RWMutex
}

// NewClientRegistry creates an empty registry using clk for timestamps
func NewClientRegistry(clk clock.Clock) *ClientRegistry {
	if clk == nil {
		clk = clock.New()
	}
	return &ClientRegistry{
		byPort: make(map[int]*ClientEntry),
		clock:  clk,
		logger: logger.GetLogger("hub.registry"),
	}
}

// ObserveHeartbeat adds, refreshes or stops the client announcing on hb.Port
func (r *ClientRegistry) ObserveHeartbeat(hb Heartbeat) {
	if hb.Port == 0 {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.clock.Now()
	entry, exists := r.byPort[hb.Port]

	if !exists {
		if hb.Class != ClassAlive {
			return
		}
		entry = &ClientEntry{
			Port:     hb.Port,
			Source:   hb.Source,
			Interval: hb.Interval,
			LastSeen: now,
			Active:   true,
		}
		r.entries = append(r.entries, entry)
		r.byPort[hb.Port] = entry

		r.logger.Info().
			Str("source", hb.Source).
			Int("port", hb.Port).
			Int("interval", hb.Interval).
			Msg("New client")
		return
	}

	switch hb.Class {
	case ClassAlive:
		entry.LastSeen = now
		entry.Interval = hb.Interval
		entry.Active = true
		entry.Source = hb.Source
		r.logger.Debug().
			Str("source", hb.Source).
			Int("port", hb.Port).
			Msg("Client refresh")

	case ClassStopped:
		entry.LastSeen = now
		entry.Active = false
		r.logger.Info().
			Str("source", hb.Source).
			Int("port", hb.Port).
			Msg("Client stopped")
	}
}

// Forwardable returns the active clients still inside their liveness window
// at now, in registration order. Active clients found outside the window are
// marked inactive.
func (r *ClientRegistry) Forwardable(now time.Time) []ClientEntry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var result []ClientEntry
	for _, entry := range r.entries {
		if !entry.Active {
			continue
		}
		if now.Sub(entry.LastSeen) < entry.livenessWindow() {
			result = append(result, *entry)
			continue
		}

		entry.Active = false
		r.logger.Info().
			Int("port", entry.Port).
			Time("last_seen", entry.LastSeen).
			Msg("Client marked inactive")
	}
	return result
}

// Active returns the clients currently flagged active, in registration order,
// without evaluating their liveness window
func (r *ClientRegistry) Active() []ClientEntry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []ClientEntry
	for _, entry := range r.entries {
		if entry.Active {
			result = append(result, *entry)
		}
	}
	return result
}

// Snapshot returns a copy of every entry, in registration order
func (r *ClientRegistry) Snapshot() []ClientEntry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]ClientEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, *entry)
	}
	return result
}

// Get returns the entry for port
func (r *ClientRegistry) Get(port int) (ClientEntry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, ok := r.byPort[port]
	if !ok {
		return ClientEntry{}, false
	}
	return *entry, true
}

// Len returns the number of entries ever registered
func (r *ClientRegistry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.entries)
}

// ActiveCount returns the number of entries flagged active
func (r *ClientRegistry) ActiveCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	count := 0
	for _, entry := range r.entries {
		if entry.Active {
			count++
		}
	}
	return count
}
