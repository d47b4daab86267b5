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
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xaphub/internal/hub"
)

func alive(port, interval int) hub.Heartbeat {
	return hub.Heartbeat{Source: "acme.test.client", Class: hub.ClassAlive, Port: port, Interval: interval}
}

func stopped(port, interval int) hub.Heartbeat {
	return hub.Heartbeat{Source: "acme.test.client", Class: hub.ClassStopped, Port: port, Interval: interval}
}

func TestObserveHeartbeat(t *testing.T) {
	t.Run("alive heartbeats for a new port create one active entry", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)

		for i := 0; i < 5; i++ {
			registry.ObserveHeartbeat(alive(3640, 60))
			clk.Add(10 * time.Second)
		}

		require.Equal(t, 1, registry.Len())
		entry, ok := registry.Get(3640)
		require.True(t, ok)
		assert.True(t, entry.Active)
		assert.Equal(t, 60, entry.Interval)
		assert.Equal(t, clk.Now().Add(-10*time.Second), entry.LastSeen)
	})

	t.Run("alive refresh updates interval and reactivates", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)

		registry.ObserveHeartbeat(alive(3640, 60))
		registry.ObserveHeartbeat(stopped(3640, 60))
		clk.Add(5 * time.Second)
		registry.ObserveHeartbeat(alive(3640, 30))

		entry, _ := registry.Get(3640)
		assert.True(t, entry.Active)
		assert.Equal(t, 30, entry.Interval)
		assert.Equal(t, clk.Now(), entry.LastSeen)
	})

	t.Run("stopped deactivates but keeps the entry and interval", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)

		registry.ObserveHeartbeat(alive(3640, 60))
		clk.Add(3 * time.Second)
		registry.ObserveHeartbeat(stopped(3640, 10))

		require.Equal(t, 1, registry.Len())
		entry, ok := registry.Get(3640)
		require.True(t, ok)
		assert.False(t, entry.Active)
		assert.Equal(t, 60, entry.Interval)
		assert.Equal(t, clk.Now(), entry.LastSeen)
	})

	t.Run("stopped for an unseen port is a no-op", func(t *testing.T) {
		registry := hub.NewClientRegistry(clock.NewMock())
		registry.ObserveHeartbeat(stopped(3650, 60))
		assert.Zero(t, registry.Len())
	})

	t.Run("heartbeat without port is a no-op", func(t *testing.T) {
		registry := hub.NewClientRegistry(clock.NewMock())
		registry.ObserveHeartbeat(alive(0, 60))
		assert.Zero(t, registry.Len())
	})

	t.Run("unknown class does not touch an existing entry", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)
		registry.ObserveHeartbeat(alive(3640, 60))
		before, _ := registry.Get(3640)

		clk.Add(time.Second)
		registry.ObserveHeartbeat(hub.Heartbeat{Source: "x", Class: hub.ClassOther, Port: 3640, Interval: 5})

		after, _ := registry.Get(3640)
		assert.Equal(t, before, after)
	})

	t.Run("observing twice without elapsed time is idempotent", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)

		registry.ObserveHeartbeat(alive(3640, 60))
		first, _ := registry.Get(3640)
		registry.ObserveHeartbeat(alive(3640, 60))
		second, _ := registry.Get(3640)

		assert.Equal(t, 1, registry.Len())
		assert.Equal(t, first, second)
	})
}

func TestForwardable(t *testing.T) {
	t.Run("boundary of the liveness window", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)
		registry.ObserveHeartbeat(alive(3640, 60))
		seen := clk.Now()

		just := registry.Forwardable(seen.Add(120*time.Second - time.Millisecond))
		require.Len(t, just, 1)
		assert.Equal(t, 3640, just[0].Port)
		entry, _ := registry.Get(3640)
		assert.True(t, entry.Active, "a forwardable entry must not change")

		assert.Empty(t, registry.Forwardable(seen.Add(120*time.Second)))
		entry, _ = registry.Get(3640)
		assert.False(t, entry.Active)
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("huge interval does not wrap the window", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)
		registry.ObserveHeartbeat(alive(3640, 5000000000))
		registry.ObserveHeartbeat(alive(3641, math.MaxInt))

		forwardable := registry.Forwardable(clk.Now().Add(time.Second))
		require.Len(t, forwardable, 2)
		assert.Equal(t, 3640, forwardable[0].Port)

		assert.Len(t, registry.Forwardable(clk.Now().Add(100*365*24*time.Hour)), 2)
	})

	t.Run("expired entry stays inactive until a new alive", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)
		registry.ObserveHeartbeat(alive(3640, 10))

		clk.Add(25 * time.Second)
		assert.Empty(t, registry.Forwardable(clk.Now()))

		// going back inside the window does not revive it
		assert.Empty(t, registry.Forwardable(clk.Now().Add(-20*time.Second)))

		registry.ObserveHeartbeat(alive(3640, 10))
		assert.Len(t, registry.Forwardable(clk.Now()), 1)
	})

	t.Run("inactive entries are skipped and results keep registration order", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)
		registry.ObserveHeartbeat(alive(3642, 60))
		registry.ObserveHeartbeat(alive(3640, 60))
		registry.ObserveHeartbeat(alive(3641, 60))
		registry.ObserveHeartbeat(stopped(3640, 60))

		ports := []int{}
		for _, e := range registry.Forwardable(clk.Now()) {
			ports = append(ports, e.Port)
		}
		assert.Equal(t, []int{3642, 3641}, ports)
		assert.Equal(t, 2, registry.ActiveCount())
		assert.Len(t, registry.Active(), 2)
		assert.Len(t, registry.Snapshot(), 3)
	})

	t.Run("only expired entries flip", func(t *testing.T) {
		clk := clock.NewMock()
		registry := hub.NewClientRegistry(clk)
		registry.ObserveHeartbeat(alive(3640, 10))
		registry.ObserveHeartbeat(alive(3641, 60))

		clk.Add(30 * time.Second)
		result := registry.Forwardable(clk.Now())
		require.Len(t, result, 1)
		assert.Equal(t, 3641, result[0].Port)

		e0, _ := registry.Get(3640)
		e1, _ := registry.Get(3641)
		assert.False(t, e0.Active)
		assert.True(t, e1.Active)
	})
}
