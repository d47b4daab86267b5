package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"xaphub/internal/hub"
)

// HealthInfo is the hub status reported by /health
type HealthInfo struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	Connected     bool   `json:"connected"`
	Source        string `json:"source"`
	Topology      string `json:"topology"`
	Port          int    `json:"port"`
	ActiveClients int    `json:"active_clients"`
	Clients       int    `json:"clients"`
	Peers         int    `json:"peers"`
	StartedAt     string `json:"started_at"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DefaultIP     string `json:"default_ip"`
	BroadcastIP   string `json:"broadcast_ip"`
}

// Snapshot is one poll of a running hub
type Snapshot struct {
	Health    HealthInfo
	Clients   []hub.ClientEntry
	Peers     []hub.PeerEntry
	FetchedAt time.Time
}

// StatusClient reads a hub's status API
type StatusClient struct {
	baseURL string
	http    *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// NewStatusClient creates a client for the status API at addr (host:port or URL)
func NewStatusClient(addr string) *StatusClient {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &StatusClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 3 * time.Second},
	}
}

// Health fetches the hub lifecycle status. A hub that is not connected
// still reports its status.
func (c *StatusClient) Health(ctx context.Context) (*HealthInfo, error) {
	var info HealthInfo
	if err := c.get(ctx, "/health", true, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Clients fetches every registered client
func (c *StatusClient) Clients(ctx context.Context) ([]hub.ClientEntry, error) {
	var data struct {
		Clients []hub.ClientEntry `json:"clients"`
	}
	if err := c.get(ctx, "/clients", false, &data); err != nil {
		return nil, err
	}
	return data.Clients, nil
}

// Peers fetches the remote heartbeat senders
func (c *StatusClient) Peers(ctx context.Context) ([]hub.PeerEntry, error) {
	var data struct {
		Peers []hub.PeerEntry `json:"peers"`
	}
	if err := c.get(ctx, "/peers", false, &data); err != nil {
		return nil, err
	}
	return data.Peers, nil
}

// Fetch polls health, clients and peers
func (c *StatusClient) Fetch(ctx context.Context) (*Snapshot, error) {
	health, err := c.Health(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := c.Clients(ctx)
	if err != nil {
		return nil, err
	}
	peers, err := c.Peers(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Health:    *health,
		Clients:   clients,
		Peers:     peers,
		FetchedAt: time.Now(),
	}, nil
}

func (c *StatusClient) get(ctx context.Context, path string, allowUnavailable bool, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hub status API unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}

	unavailable := resp.StatusCode == http.StatusServiceUnavailable && allowUnavailable
	if resp.StatusCode != http.StatusOK && !unavailable {
		msg := env.Message
		if env.Error != "" {
			msg = fmt.Sprintf("%s: %s", msg, env.Error)
		}
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, msg)
	}

	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
