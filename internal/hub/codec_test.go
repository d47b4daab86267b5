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

package hub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xaphub/internal/hub"
	"xaphub/internal/xap"
)

func TestBuildHeartbeat(t *testing.T) {
	codec := hub.NewHeartbeatCodec("myhost", 60)

	t.Run("alive heartbeat fields", func(t *testing.T) {
		blocks := xap.ParseBlocks(codec.BuildHeartbeat(hub.ClassAlive))
		require.Len(t, blocks, 1)

		hb, err := xap.ParseHeartbeatItems(blocks[0])
		require.NoError(t, err)
		assert.Equal(t, 13, hb.Version)
		assert.Equal(t, 1, hb.Hop)
		assert.Equal(t, "xap-hbeat.alive", hb.Class)
		assert.Equal(t, "xFx.HubJS.myhost", hb.Source)
		assert.Equal(t, 60, hb.Interval)
		assert.Len(t, hb.UID, 13)
		assert.Zero(t, hb.Port)
	})

	t.Run("deterministic and uid stable across classes", func(t *testing.T) {
		assert.Equal(t, codec.BuildHeartbeat(hub.ClassAlive), codec.BuildHeartbeat(hub.ClassAlive))

		aliveHB, _ := xap.ParseHeartbeatItems(xap.ParseBlocks(codec.BuildHeartbeat(hub.ClassAlive))[0])
		stoppedHB, _ := xap.ParseHeartbeatItems(xap.ParseBlocks(codec.BuildHeartbeat(hub.ClassStopped))[0])
		assert.Equal(t, aliveHB.UID, stoppedHB.UID)
		assert.Equal(t, "xap-hbeat.stopped", stoppedHB.Class)
	})

	t.Run("uid follows hostname", func(t *testing.T) {
		other := hub.NewHeartbeatCodec("otherhost", 60)
		assert.NotEqual(t, codec.BuildHeartbeat(hub.ClassAlive), other.BuildHeartbeat(hub.ClassAlive))
	})
}

func TestDecode(t *testing.T) {
	codec := hub.NewHeartbeatCodec("myhost", 60)

	t.Run("malformed datagram has no block", func(t *testing.T) {
		_, ok := codec.DecodeFirstBlock([]byte{0xff, 0x00, '{'})
		assert.False(t, ok)
	})

	t.Run("client heartbeat with port", func(t *testing.T) {
		block, ok := codec.DecodeFirstBlock(clientHeartbeat("xap-hbeat.alive", 3640, 60))
		require.True(t, ok)

		hb, ok := codec.DecodeHeartbeatFields(block)
		require.True(t, ok)
		assert.Equal(t, hub.ClassAlive, hb.Class)
		assert.Equal(t, 3640, hb.Port)
		assert.Equal(t, 60, hb.Interval)
	})

	t.Run("heartbeat without port is absent", func(t *testing.T) {
		block, ok := codec.DecodeFirstBlock(codec.BuildHeartbeat(hub.ClassAlive))
		require.True(t, ok)

		_, ok = codec.DecodeHeartbeatFields(block)
		assert.False(t, ok)
	})

	t.Run("non heartbeat block is absent", func(t *testing.T) {
		block, ok := codec.DecodeFirstBlock(bscEvent())
		require.True(t, ok)

		_, ok = codec.DecodeHeartbeatFields(block)
		assert.False(t, ok)
	})
}

// clientHeartbeat builds a heartbeat as a local client would send it
func clientHeartbeat(class string, port, interval int) []byte {
	hb := &xap.HeartbeatItems{
		Version:  12,
		Hop:      1,
		UID:      "FF123400",
		Class:    class,
		Source:   "acme.switch.kitchen",
		Interval: interval,
		Port:     port,
	}
	return hb.Block().Bytes()
}

// bscEvent builds an ordinary xAP BSC event message
func bscEvent() []byte {
	header := xap.NewBlock("xap-header").
		Add("v", 12).
		Add("hop", 1).
		Add("uid", "FF123401").
		Add("class", "xAPBSC.event").
		Add("source", "acme.switch.kitchen:light")
	body := xap.NewBlock("output.state.1").Add("state", "on")
	return xap.Encode(header, body)
}
