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
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultPeerCacheSize = 256

// PeerEntry records the last heartbeat heard from a remote xAP device
type PeerEntry struct {
	Source   string       `json:"source"`
	Address  string       `json:"address"`
	Class    MessageClass `json:"class"`
	Interval int          `json:"interval"`
	LastSeen time.Time    `json:"last_seen"`
}

// PeerTable keeps the most recently heard remote heartbeat senders.
// It is informational only and never affects forwarding.
type PeerTable struct {
	cache *lru.Cache[string, PeerEntry]
}

// NewPeerTable creates a table holding at most size peers
func NewPeerTable(size int) *PeerTable {
	if size <= 0 {
		size = defaultPeerCacheSize
	}
	cache, _ := lru.New[string, PeerEntry](size)
	return &PeerTable{cache: cache}
}

// Record stores the heartbeat as the latest from its source
func (p *PeerTable) Record(hb *Heartbeat, address string, now time.Time) {
	p.cache.Add(hb.Source, PeerEntry{
		Source:   hb.Source,
		Address:  address,
		Class:    hb.Class,
		Interval: hb.Interval,
		LastSeen: now,
	})
}

// Get returns the latest entry for source
func (p *PeerTable) Get(source string) (PeerEntry, bool) {
	return p.cache.Peek(source)
}

// Snapshot returns the peers from least to most recently heard
func (p *PeerTable) Snapshot() []PeerEntry {
	return p.cache.Values()
}

// Len returns the number of peers held
func (p *PeerTable) Len() int {
	return p.cache.Len()
}
