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

package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SnapshotFetcher polls a running hub
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

type snapshotMsg struct {
	snapshot *Snapshot
}

type fetchErrMsg struct {
	err error
}

type tickMsg time.Time

// Monitor model that refreshes a live view of the hub
type model struct {
	fetcher  SnapshotFetcher
	interval time.Duration

	snapshot *Snapshot
	lastErr  error
	polls    int
	width    int
	height   int
	quitting bool
}

func initialModel(fetcher SnapshotFetcher, interval time.Duration) model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return model{
		fetcher:  fetcher,
		interval: interval,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

func (m model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		defer cancel()

		snapshot, err := m.fetcher.Fetch(ctx)
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return snapshotMsg{snapshot: snapshot}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.lastErr = nil
		m.polls++
		return m, nil

	case fetchErrMsg:
		m.lastErr = msg.err
		m.polls++
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	view := ""
	switch {
	case m.snapshot != nil:
		view = RenderSnapshot(m.snapshot)
	case m.lastErr == nil:
		view = titleStyle.Render("xAP Hub") + "\n\n" + mutedStyle.Render("Connecting to hub...") + "\n"
	default:
		view = titleStyle.Render("xAP Hub") + "\n"
	}

	if m.lastErr != nil {
		view += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.lastErr)) + "\n"
	}

	view += "\n" + helpStyle.Render(fmt.Sprintf("refresh every %s • r: refresh now • q: quit", m.interval))
	return view
}

// StartMonitor runs the live monitor until the user quits
func StartMonitor(fetcher SnapshotFetcher, interval time.Duration) error {
	p := tea.NewProgram(
		initialModel(fetcher, interval),
		tea.WithAltScreen(),
	)

	// Ensure proper cleanup on panic or interrupt
	defer func() {
		if r := recover(); r != nil {
			p.Kill()
		}
	}()

	_, err := p.Run()
	return err
}
