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

package xap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// xAP protocol constants
const (
	// Port is the well known xAP UDP port
	Port = 3639

	HEARTBEAT_BLOCK = "xap-hbeat"
	CLASS_PREFIX    = "xap-hbeat."
	CLASS_ALIVE     = "xap-hbeat.alive"
	CLASS_STOPPED   = "xap-hbeat.stopped"

	VERSION = 13
)

// HeartbeatItems holds the fields of a parsed heartbeat block.
// Port is zero when the sender did not announce a listening port.
type HeartbeatItems struct {
	Version  int
	Hop      int
	UID      string
	Class    string
	Source   string
	Interval int
	Port     int
}

// IsAlive reports whether the heartbeat announces an alive sender
func (h *HeartbeatItems) IsAlive() bool {
	return strings.EqualFold(h.Class, CLASS_ALIVE)
}

// IsStopped reports whether the heartbeat announces a stopping sender
func (h *HeartbeatItems) IsStopped() bool {
	return strings.EqualFold(h.Class, CLASS_STOPPED)
}

// Block builds the wire block for the heartbeat
func (h *HeartbeatItems) Block() *Block {
	b := NewBlock(HEARTBEAT_BLOCK).
		Add("v", h.Version).
		Add("hop", h.Hop).
		Add("uid", h.UID).
		Add("class", h.Class).
		Add("source", h.Source).
		Add("interval", h.Interval)
	if h.Port > 0 {
		b.Add("port", h.Port)
	}
	return b
}

// ParseHeartbeatItems extracts heartbeat fields from a block.
// It fails when the block is not a heartbeat or lacks class, source or a
// numeric interval. A missing or unparsable port is reported as zero.
func ParseHeartbeatItems(b *Block) (*HeartbeatItems, error) {
	if b == nil || !strings.EqualFold(b.Name, HEARTBEAT_BLOCK) {
		return nil, fmt.Errorf("not a heartbeat block")
	}

	class, ok := b.Get("class")
	if !ok || !strings.HasPrefix(strings.ToLower(class), CLASS_PREFIX) {
		return nil, fmt.Errorf("heartbeat class missing or invalid: %q", class)
	}
	source, ok := b.Get("source")
	if !ok || source == "" {
		return nil, fmt.Errorf("heartbeat source missing")
	}
	intervalStr, ok := b.Get("interval")
	if !ok {
		return nil, fmt.Errorf("heartbeat interval missing")
	}
	interval, err := strconv.Atoi(strings.TrimSpace(intervalStr))
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("heartbeat interval invalid: %q", intervalStr)
	}

	hb := &HeartbeatItems{
		Class:    strings.ToLower(class),
		Source:   source,
		Interval: interval,
	}
	hb.UID, _ = b.Get("uid")
	hb.Version = atoiOrZero(b, "v")
	hb.Hop = atoiOrZero(b, "hop")
	if port := atoiOrZero(b, "port"); port > 0 && port <= 65535 {
		hb.Port = port
	}

	return hb, nil
}

func atoiOrZero(b *Block, key string) int {
	v, ok := b.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// GenerateUID13 derives a stable 13 character uid from a source address:
// "FF", eight hex digits of the source digest, then ":00".
func GenerateUID13(source string) string {
	digest := uint32(xxhash.Sum64String(strings.ToLower(source)))
	return fmt.Sprintf("FF%08X:00", digest)
}
