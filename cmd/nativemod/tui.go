package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/evolvkit/native-runtime/loader"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	moduleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// runModulesTUI opens the interactive module browser over an already
// populated loader.
func runModulesTUI(l *loader.Loader) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	m := newBrowserModel(l)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type browserModel struct {
	loader   *loader.Loader
	filter   textinput.Model
	infos    []loader.Info
	selected int
	detail   bool
}

func newBrowserModel(l *loader.Loader) *browserModel {
	filter := textinput.New()
	filter.Placeholder = "filter modules"
	filter.Prompt = "/ "
	return &browserModel{
		loader: l,
		filter: filter,
		infos:  l.Modules(),
	}
}

func (m *browserModel) Init() tea.Cmd {
	return textinput.Blink
}

// visible applies the filter to the module table.
func (m *browserModel) visible() []loader.Info {
	query := strings.ToLower(m.filter.Value())
	if query == "" {
		return m.infos
	}
	var out []loader.Info
	for _, info := range m.infos {
		if strings.Contains(strings.ToLower(info.Name), query) {
			out = append(out, info)
		}
	}
	return out
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.filter.Focused() {
				break
			}
			if m.detail {
				m.detail = false
				return m, nil
			}
			return m, tea.Quit
		case "esc":
			if m.filter.Focused() {
				m.filter.Blur()
				return m, nil
			}
			if m.detail {
				m.detail = false
			}
			return m, nil
		case "/":
			if !m.filter.Focused() {
				m.filter.Focus()
				return m, textinput.Blink
			}
		case "up", "k":
			if !m.filter.Focused() && m.selected > 0 {
				m.selected--
				return m, nil
			}
		case "down", "j":
			if !m.filter.Focused() && m.selected < len(m.visible())-1 {
				m.selected++
				return m, nil
			}
		case "enter":
			if m.filter.Focused() {
				m.filter.Blur()
				return m, nil
			}
			m.detail = !m.detail
			return m, nil
		case "r":
			if !m.filter.Focused() {
				m.infos = m.loader.Modules()
				return m, nil
			}
		}
	}

	if m.filter.Focused() {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.selected = 0
		return m, cmd
	}
	return m, nil
}

func (m *browserModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("native modules"))
	b.WriteString("\n\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	visible := m.visible()
	if m.selected >= len(visible) {
		m.selected = 0
	}

	if len(visible) == 0 {
		b.WriteString(errorStyle.Render("no modules match"))
		b.WriteString("\n")
	}
	for i, info := range visible {
		name := fmt.Sprintf("%-20s", info.Name)
		status := fmt.Sprintf(" %-10s refs:%d gen:%d", info.State, info.RefCount, info.Generation)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + name + status))
		} else {
			b.WriteString("  " + moduleStyle.Render(name) + stateStyle.Render(status))
		}
		b.WriteString("\n")
	}

	if m.detail && len(visible) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(visible[m.selected]))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("up/down select · enter details · / filter · r refresh · q quit"))
	return b.String()
}

func (m *browserModel) renderDetail(info loader.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "path: %s\n", info.Path)
	fmt.Fprintf(&b, "loaded: %s  calls: %d\n",
		info.LoadedAt.Format("15:04:05"), info.CallCount)
	if len(info.Dependencies) > 0 {
		fmt.Fprintf(&b, "depends on: %s\n", strings.Join(info.Dependencies, ", "))
	}
	if info.Swappable {
		b.WriteString("hot swappable\n")
	}

	if mod, ok := m.loader.Module(info.Name); ok {
		b.WriteString("exports:\n")
		for _, e := range mod.Exports() {
			fmt.Fprintf(&b, "  %s %s (%d bytes)\n",
				stateStyle.Render(e.Kind.String()),
				moduleStyle.Render(e.Name), e.Size)
		}
	}
	return b.String()
}
