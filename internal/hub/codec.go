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
	"fmt"
	"strings"

	"xaphub/internal/xap"
)

// Hub heartbeat constants
const (
	HUB_VENDOR_TAG       = "xFx.HubJS"
	HUB_HOP              = 1
	HUB_INTERVAL_SECONDS = 60
)

// MessageClass is the class of a heartbeat
type MessageClass string

const (
	ClassAlive   MessageClass = "alive"
	ClassStopped MessageClass = "stopped"
	ClassOther   MessageClass = ""
)

// classFromWire maps "xap-hbeat.alive" style strings onto a MessageClass
func classFromWire(class string) MessageClass {
	switch strings.ToLower(class) {
	case xap.CLASS_ALIVE:
		return ClassAlive
	case xap.CLASS_STOPPED:
		return ClassStopped
	default:
		return ClassOther
	}
}

// Heartbeat carries the heartbeat fields the hub acts on
type Heartbeat struct {
	Source   string
	Class    MessageClass
	Port     int
	Interval int
}

// HeartbeatCodec builds the hub's own heartbeat and decodes received ones
type HeartbeatCodec struct {
	source   string
	uid      string
	interval int
}

// NewHeartbeatCodec creates a codec announcing the given hostname and
// heartbeat interval in seconds
func NewHeartbeatCodec(hostname string, intervalSeconds int) *HeartbeatCodec {
	if intervalSeconds <= 0 {
		intervalSeconds = HUB_INTERVAL_SECONDS
	}
	source := fmt.Sprintf("%s.%s", HUB_VENDOR_TAG, hostname)
	return &HeartbeatCodec{
		source:   source,
		uid:      xap.GenerateUID13(source),
		interval: intervalSeconds,
	}
}

// Source returns the hub's source address
func (c *HeartbeatCodec) Source() string {
	return c.source
}

// BuildHeartbeat serializes the hub heartbeat with the given class
func (c *HeartbeatCodec) BuildHeartbeat(class MessageClass) []byte {
	hb := &xap.HeartbeatItems{
		Version:  xap.VERSION,
		Hop:      HUB_HOP,
		UID:      c.uid,
		Class:    xap.CLASS_PREFIX + string(class),
		Source:   c.source,
		Interval: c.interval,
	}
	return hb.Block().Bytes()
}

// DecodeFirstBlock returns the first block of a datagram, or false if the
// datagram does not parse
func (c *HeartbeatCodec) DecodeFirstBlock(raw []byte) (*xap.Block, bool) {
	blocks := xap.ParseBlocks(raw)
	if len(blocks) == 0 {
		return nil, false
	}
	return blocks[0], true
}

// DecodeHeartbeatFields extracts heartbeat fields from a block. It returns
// false for non-heartbeat blocks and for heartbeats without a port, which
// come from senders that do not listen.
func (c *HeartbeatCodec) DecodeHeartbeatFields(block *xap.Block) (*Heartbeat, bool) {
	hb, ok := c.decode(block)
	if !ok || hb.Port == 0 {
		return nil, false
	}
	return hb, true
}

// decode extracts heartbeat fields whether or not a port is present
func (c *HeartbeatCodec) decode(block *xap.Block) (*Heartbeat, bool) {
	if block == nil || !strings.EqualFold(block.Name, xap.HEARTBEAT_BLOCK) {
		return nil, false
	}
	items, err := xap.ParseHeartbeatItems(block)
	if err != nil {
		return nil, false
	}
	return &Heartbeat{
		Source:   items.Source,
		Class:    classFromWire(items.Class),
		Port:     items.Port,
		Interval: items.Interval,
	}, true
}
