package hub_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xaphub/internal/hub"
)

func TestPeerTable(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("latest heartbeat wins", func(t *testing.T) {
		peers := hub.NewPeerTable(8)
		hb := &hub.Heartbeat{Source: "acme.lamp.hall", Class: hub.ClassAlive, Interval: 60}

		peers.Record(hb, "192.168.1.50", now)
		peers.Record(&hub.Heartbeat{Source: "acme.lamp.hall", Class: hub.ClassStopped, Interval: 60}, "192.168.1.50", now.Add(time.Minute))

		entry, ok := peers.Get("acme.lamp.hall")
		require.True(t, ok)
		assert.Equal(t, hub.ClassStopped, entry.Class)
		assert.Equal(t, now.Add(time.Minute), entry.LastSeen)
		assert.Equal(t, 1, peers.Len())
	})

	t.Run("least recently heard peer is evicted", func(t *testing.T) {
		peers := hub.NewPeerTable(2)
		for i := 0; i < 3; i++ {
			hb := &hub.Heartbeat{Source: fmt.Sprintf("acme.node.%d", i), Class: hub.ClassAlive, Interval: 60}
			peers.Record(hb, "192.168.1.60", now)
		}

		assert.Equal(t, 2, peers.Len())
		_, ok := peers.Get("acme.node.0")
		assert.False(t, ok)

		sources := []string{}
		for _, p := range peers.Snapshot() {
			sources = append(sources, p.Source)
		}
		assert.Equal(t, []string{"acme.node.1", "acme.node.2"}, sources)
	})

	t.Run("zero size falls back to the default", func(t *testing.T) {
		peers := hub.NewPeerTable(0)
		for i := 0; i < 100; i++ {
			peers.Record(&hub.Heartbeat{Source: fmt.Sprintf("acme.node.%d", i)}, "10.0.0.1", now)
		}
		assert.Equal(t, 100, peers.Len())
	})
}
