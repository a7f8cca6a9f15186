package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/cstrsim/internal/sim"
)

// MenuItem is one runnable preset.
type MenuItem struct {
	Model  string
	Preset string
}

// Runner executes a preset and returns its result with the gauge ranges
// to replay it against.
type Runner func(item MenuItem) (*sim.Result, map[string]Range, error)

// Menu lists presets and opens a Replay of the one selected.
type Menu struct {
	items  []MenuItem
	cursor int
	run    Runner
	styles Styles
	replay *Replay
	err    error
}

func NewMenu(items []MenuItem, run Runner) Menu {
	return Menu{items: items, run: run, styles: NewStyles(Themes[0])}
}

func (m Menu) Init() tea.Cmd { return nil }

func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.replay != nil {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
			m.replay = nil
			return m, nil
		}
		next, cmd := m.replay.Update(msg)
		r := next.(Replay)
		m.replay = &r
		return m, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.items) == 0 {
			return m, nil
		}
		res, limits, err := m.run(m.items[m.cursor])
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		r := NewReplay(res, limits)
		m.replay = &r
		return m, r.Init()
	}
	return m, nil
}

// Replaying reports whether a replay is on screen.
func (m Menu) Replaying() bool { return m.replay != nil }

func (m Menu) View() string {
	if m.replay != nil {
		return m.replay.View() + "\n" + m.styles.Help.Render("Esc: back to presets")
	}

	var s strings.Builder
	s.WriteString(m.styles.Header.Render("CSTRSIM PRESETS") + "\n")
	for i, it := range m.items {
		line := fmt.Sprintf("%-10s %s", it.Model, it.Preset)
		if i == m.cursor {
			s.WriteString(m.styles.Active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + m.styles.Value.Render(line) + "\n")
		}
	}
	if m.err != nil {
		s.WriteString("\n" + m.styles.Bad.Render(m.err.Error()) + "\n")
	}
	s.WriteString(m.styles.Help.Render("↑↓: select  Enter: run  Q: quit"))
	return s.String()
}
