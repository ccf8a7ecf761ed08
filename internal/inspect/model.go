package inspect

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"bman/internal/pathmodel"
)

const (
	listWidthFraction = 0.35
	headerHeight      = 3
	footerHeight      = 2
)

type refreshMsg struct{}

// Model is the top-level Bubble Tea model for the doc-pack inspector: a
// list of known artifacts on the left, the selected one's rendered content
// on the right, refreshed automatically as the watcher reports changes.
// Grounded on the teacher's PatternsTab (cmd/nerd/ui/autopoiesis_page.go)
// for the list+glamour-viewport pairing.
type Model struct {
	paths    pathmodel.Paths
	styles   Styles
	list     list.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	watcher  *DocPackWatcher

	width, height int
	err           error
}

// NewModel loads the doc pack's artifacts and builds the inspector model.
// watcher may be nil when live refresh isn't wanted (e.g. a one-shot dump).
func NewModel(paths pathmodel.Paths, watcher *DocPackWatcher) Model {
	styles := DefaultStyles()

	l := list.New(toItems(Load(paths)), list.NewDefaultDelegate(), 0, 0)
	l.Title = "bman doc pack"
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))

	return Model{
		paths:    paths,
		styles:   styles,
		list:     l,
		viewport: viewport.New(80, 20),
		renderer: renderer,
		watcher:  watcher,
	}
}

func (m Model) Init() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return waitForChange(m.watcher)
}

func waitForChange(w *DocPackWatcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed
		return refreshMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case refreshMsg:
		m.reload()
		return m, waitForChange(m.watcher)
	}

	var cmd, vpCmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.refreshDetail()
	return m, tea.Batch(cmd, vpCmd)
}

func (m *Model) reload() {
	selected := ""
	if item, ok := m.list.SelectedItem().(artifactItem); ok {
		selected = item.artifact.ID
	}
	items := toItems(Load(m.paths))
	m.list.SetItems(items)
	for idx, it := range items {
		if ai, ok := it.(artifactItem); ok && ai.artifact.ID == selected {
			m.list.Select(idx)
		}
	}
	m.refreshDetail()
}

func (m *Model) refreshDetail() {
	item, ok := m.list.SelectedItem().(artifactItem)
	if !ok {
		m.viewport.SetContent("")
		return
	}
	a := item.artifact
	if a.Err != nil {
		m.viewport.SetContent(m.styles.Error.Render(a.Err.Error()))
		return
	}
	if !a.Exists {
		m.viewport.SetContent(m.styles.Muted.Render("not produced yet: " + a.Path))
		return
	}
	content := a.Rendered
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			content = rendered
		}
	}
	m.viewport.SetContent(content)
}

func (m *Model) SetSize(w, h int) {
	m.width, m.height = w, h
	listWidth := int(float64(w) * listWidthFraction)
	detailWidth := w - listWidth
	bodyHeight := h - headerHeight - footerHeight

	m.list.SetWidth(listWidth)
	m.list.SetHeight(bodyHeight)
	m.viewport.Width = detailWidth
	m.viewport.Height = bodyHeight

	if w > 20 {
		m.renderer, _ = glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(detailWidth-4))
	}
	m.refreshDetail()
}

func (m Model) View() string {
	header := m.styles.Header.Render(fmt.Sprintf(" bman inspect — %s ", m.paths.Root()))
	footer := m.styles.Footer.Render("↑/↓ select · / filter · q quit")

	left := m.styles.ListPane.Render(m.list.View())
	right := m.styles.DetailPane.Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	sb.WriteString(footer)
	return m.styles.App.Render(sb.String())
}
