// Package dashboard holds the per-environment panels and the redraw trigger
// shared by the reporter and the terminal surface.
package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard owns one Panel per environment, in configuration order.
type Dashboard struct {
	panels []*Panel
	byName map[string]*Panel
	redraw chan struct{}
}

// New creates a dashboard with a panel for each name. Duplicate names share
// the first panel.
func New(names []string) *Dashboard {
	d := &Dashboard{
		byName: make(map[string]*Panel, len(names)),
		redraw: make(chan struct{}, 1),
	}
	for _, name := range names {
		if _, ok := d.byName[name]; ok {
			continue
		}
		p := newPanel(name, d.Redraw)
		d.panels = append(d.panels, p)
		d.byName[name] = p
	}
	return d
}

// Find returns the panel for an environment name.
func (d *Dashboard) Find(name string) (*Panel, bool) {
	p, ok := d.byName[name]
	return p, ok
}

// Panels returns the panels in display order.
func (d *Dashboard) Panels() []*Panel {
	return append([]*Panel(nil), d.panels...)
}

// Redraw requests a repaint. Requests made before the surface picks up the
// previous one are merged into it.
func (d *Dashboard) Redraw() {
	select {
	case d.redraw <- struct{}{}:
	default:
	}
}

// Redraws delivers pending repaint requests.
func (d *Dashboard) Redraws() <-chan struct{} {
	return d.redraw
}

// View renders the panels side by side inside width x height.
func (d *Dashboard) View(width, height int) string {
	if len(d.panels) == 0 || width <= 0 || height <= 0 {
		return ""
	}
	w := width / len(d.panels)
	views := make([]string, 0, len(d.panels))
	for _, p := range d.panels {
		views = append(views, p.View(w, height))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// View renders the panel as a bordered box of the given outer size.
func (p *Panel) View(width, height int) string {
	running, completed, color := p.Snapshot()

	inner := max(width-2, 1)
	rows := max(height-2, 1)

	// The title style pads one column on each side inside inner
	title := titleStyle(color).Width(inner).Render(truncate(p.name, max(inner-2, 1)))
	lines := []string{title, StyleSection.Render("Running")}

	// Completed header plus at least one row stay visible
	budget := max(rows-len(lines)-2, 0)
	runRows := min(len(running), budget)
	for _, e := range tail(running, runRows) {
		lines = append(lines, StyleRunning.Render(truncate(e.Label, inner)))
	}

	lines = append(lines, StyleSection.Render("Completed"))
	for _, e := range tail(completed, max(rows-len(lines), 0)) {
		lines = append(lines, truncate(e.Label, inner))
	}

	return StylePanelBorder.
		Width(inner).
		Height(rows).
		Render(strings.Join(lines, "\n"))
}

// tail returns the last n entries so the newest stay in view.
func tail(list []Entry, n int) []Entry {
	if n <= 0 {
		return nil
	}
	if len(list) <= n {
		return list
	}
	return list[len(list)-n:]
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
