// Package inspect is a thin, read-only Bubble Tea browser over a doc
// pack's staged/published artifacts. It has no effect on the core
// enrichment loop: nothing under internal/applyloop or cmd/bman's other
// subcommands imports this package.
package inspect

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the subset of the teacher's light/dark palette this browser
// actually uses.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

var (
	lightBackground = lipgloss.Color("#f4f5f6")
	lightForeground = lipgloss.Color("#101F38")
	lightAccent     = lipgloss.Color("#8BC34A")
	lightMuted      = lipgloss.Color("#d6dae0")
	lightBorder     = lipgloss.Color("#dce0e5")

	darkBackground = lipgloss.Color("#141d2b")
	darkForeground = lipgloss.Color("#f2f2f2")
	darkAccent     = lipgloss.Color("#8BC34A")
	darkMuted      = lipgloss.Color("#2a3850")
	darkBorder     = lipgloss.Color("#2a3850")

	destructive = lipgloss.Color("#e53935")
	warning     = lipgloss.Color("#FFC107")
)

func lightTheme() Theme {
	return Theme{Background: lightBackground, Foreground: lightForeground, Primary: lightForeground, Accent: lightAccent, Muted: lightMuted, Border: lightBorder}
}

func darkTheme() Theme {
	return Theme{Background: darkBackground, Foreground: darkForeground, Primary: darkAccent, Accent: darkAccent, Muted: darkMuted, Border: darkBorder, IsDark: true}
}

// DetectTheme mirrors the teacher's COLORFGBG/dark-mode-env heuristic,
// renamed to this tool's own override variable.
func DetectTheme() Theme {
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return darkTheme()
				}
			}
		}
	}
	if os.Getenv("BMAN_INSPECT_DARK_MODE") == "1" {
		return darkTheme()
	}
	return lightTheme()
}

// Styles holds every styled component the browser renders.
type Styles struct {
	Theme Theme

	App      lipgloss.Style
	Header   lipgloss.Style
	Footer   lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Divider  lipgloss.Style
	ListPane lipgloss.Style
	DetailPane lipgloss.Style
}

// NewStyles builds Styles for theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,
		App:   lipgloss.NewStyle().Background(theme.Background).Foreground(theme.Foreground),
		Header: lipgloss.NewStyle().Background(theme.Primary).Foreground(lipgloss.Color("#ffffff")).Padding(0, 2).Bold(true),
		Footer: lipgloss.NewStyle().Foreground(theme.Muted).Padding(0, 2),
		Title:  lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).MarginBottom(1),
		Subtitle: lipgloss.NewStyle().Foreground(theme.Muted).Italic(true),
		Body:  lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted: lipgloss.NewStyle().Foreground(theme.Muted),
		Bold:  lipgloss.NewStyle().Foreground(theme.Foreground).Bold(true),
		Success: lipgloss.NewStyle().Foreground(lightAccent).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(destructive).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(warning).Bold(true),
		Divider: lipgloss.NewStyle().Foreground(theme.Border),
		ListPane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		DetailPane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}

// DefaultStyles auto-detects the terminal's theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}
