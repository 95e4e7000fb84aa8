package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kass/go-store-map/pkg/favorites"
	"github.com/kass/go-store-map/pkg/mapview"
	"github.com/kass/go-store-map/pkg/models"
)

const (
	mapWidth   = 60
	mapHeight  = 20
	cellWidth  = 8
	cellHeight = 16
	panStep    = 0.25
	doTimeout  = 2 * time.Second
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#282A36")).
			Background(lipgloss.Color("#FFB86C"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(0, 1)
)

type focus int

const (
	focusMap focus = iota
	focusFavorites
)

// resolvedMsg carries the number of stores resolved so far
type resolvedMsg int

type doneMsg struct{}

type refreshMsg struct {
	markers []mapview.Marker
	pins    []mapview.PinState
	info    mapview.InfoWindowState
	bounds  models.ViewportBounds
}

type errMsg struct{ err error }

type statusMsg string

type model struct {
	ctx    context.Context
	view   *mapview.View
	host   *mapview.HeadlessHost
	favs   *favorites.Set
	center models.Location

	spinner  spinner.Model
	progress progress.Model

	total    int
	resolved int
	done     bool

	markers []mapview.Marker
	pins    []mapview.PinState
	info    mapview.InfoWindowState
	bounds  models.ViewportBounds

	focus    focus
	selected int
	favSel   int
	status   string
	err      error
}

func newModel(ctx context.Context, view *mapview.View, host *mapview.HeadlessHost, favs *favorites.Set, center models.Location, total int) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		ctx:      ctx,
		view:     view,
		host:     host,
		favs:     favs,
		center:   center,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(mapWidth)),
		total:    total,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitResolved(), m.refresh())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case resolvedMsg:
		m.resolved = int(msg)
		return m, tea.Batch(m.progress.SetPercent(m.percent()), m.refresh())

	case doneMsg:
		m.done = true
		if err := m.view.Err(); err != nil {
			m.err = err
		}
		return m, tea.Batch(m.progress.SetPercent(1), m.refresh())

	case refreshMsg:
		m.markers, m.pins, m.info, m.bounds = msg.markers, msg.pins, msg.info, msg.bounds
		m.selected = clampIndex(m.selected, len(m.markers))
		m.favSel = clampIndex(m.favSel, m.favs.Len())
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "f":
		if m.focus == focusMap {
			m.focus = focusFavorites
		} else {
			m.focus = focusMap
		}
		return m, nil
	}

	if m.focus == focusFavorites {
		return m.handleFavoritesKey(msg)
	}

	switch msg.String() {
	case "up", "k":
		return m, m.pan(1, 0)
	case "down", "j":
		return m, m.pan(-1, 0)
	case "left", "h":
		return m, m.pan(0, -1)
	case "right", "l":
		return m, m.pan(0, 1)
	case "+", "=":
		m.host.ZoomBy(1)
		return m, m.refresh()
	case "-", "_":
		m.host.ZoomBy(-1)
		return m, m.refresh()
	case "r":
		m.host.SetCenter(m.center)
		return m, m.refresh()
	case "tab":
		if len(m.markers) > 0 {
			m.selected = (m.selected + 1) % len(m.markers)
		}
		return m, nil
	case "shift+tab":
		if len(m.markers) > 0 {
			m.selected = (m.selected - 1 + len(m.markers)) % len(m.markers)
		}
		return m, nil
	case "enter", " ":
		if m.selected < len(m.pins) {
			before := m.favs.Len()
			m.host.Click(m.pins[m.selected].ID)
			m.status = ""
			return m, tea.Sequence(m.refresh(), m.reportClick(before))
		}
	}
	return m, nil
}

func (m model) handleFavoritesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.favSel = clampIndex(m.favSel-1, m.favs.Len())
	case "down", "j":
		m.favSel = clampIndex(m.favSel+1, m.favs.Len())
	case "d", "delete", "backspace":
		if m.favs.Len() == 0 {
			return m, nil
		}
		if err := m.favs.Remove(m.ctx, m.favSel); err != nil {
			m.err = err
			return m, nil
		}
		m.favSel = clampIndex(m.favSel, m.favs.Len())
		m.status = "Favorite removed"
	case "c":
		if err := m.favs.Clear(m.ctx); err != nil {
			m.err = err
			return m, nil
		}
		m.favSel = 0
		m.status = "Favorites cleared"
	}
	return m, nil
}

// pan moves the center by a quarter of the visible span
func (m model) pan(dLat, dLng float64) tea.Cmd {
	b := m.host.Bounds()
	latSpan := b.NorthEastLat - b.SouthWestLat
	lngSpan := b.NorthEastLng - b.SouthWestLng
	if b.CrossesAntimeridian() {
		lngSpan += 360
	}

	c := m.host.Center()
	c.Lat = math.Max(-85, math.Min(85, c.Lat+dLat*latSpan*panStep))
	c.Lng += dLng * lngSpan * panStep
	if c.Lng > 180 {
		c.Lng -= 360
	} else if c.Lng < -180 {
		c.Lng += 360
	}
	m.host.SetCenter(c)
	return m.refresh()
}

// refresh snapshots the map after every event queued so far has run on the
// view loop
func (m model) refresh() tea.Cmd {
	view, host := m.view, m.host
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, doTimeout)
		defer cancel()

		select {
		case <-view.Ready():
		case <-ctx.Done():
			return nil
		}
		if view.Err() != nil {
			return errMsg{view.Err()}
		}

		markers, err := view.Markers(ctx)
		if err != nil {
			return nil
		}
		info, _ := host.InfoWindowState()
		return refreshMsg{
			markers: markers,
			pins:    host.Pins(),
			info:    info,
			bounds:  host.Bounds(),
		}
	}
}

// reportClick runs after the refresh that follows a click, so the click
// handler has already updated the favorites
func (m model) reportClick(before int) tea.Cmd {
	favs := m.favs
	return func() tea.Msg {
		if favs.Len() > before {
			list := favs.List()
			return statusMsg(fmt.Sprintf("Added %s to favorites", list[len(list)-1].Title))
		}
		return statusMsg("Already a favorite")
	}
}

func (m model) waitResolved() tea.Cmd {
	view := m.view
	return func() tea.Msg {
		<-view.Resolved()
		return doneMsg{}
	}
}

func (m model) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.resolved) / float64(m.total)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Store Map"))
	b.WriteString("  ")
	c := m.host.Center()
	b.WriteString(dimStyle.Render(fmt.Sprintf("center %.4f, %.4f  zoom %d", c.Lat, c.Lng, m.host.Zoom())))
	b.WriteString("\n\n")

	if m.done {
		b.WriteString(successStyle.Render(fmt.Sprintf("✓ %d of %d stores on the map", m.resolved, m.total)))
	} else {
		b.WriteString(m.spinner.View() + fmt.Sprintf(" Geocoding stores... %d of %d\n", m.resolved, m.total))
		b.WriteString(m.progress.View())
	}
	b.WriteString("\n\n")

	side := lipgloss.JoinVertical(lipgloss.Left, m.renderInfo(), m.renderFavorites())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Render(m.renderGrid()), " ", side))
	b.WriteString("\n")
	b.WriteString(m.renderMarkerList())

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()))
	} else if m.status != "" {
		b.WriteString("\n" + infoStyle.Render(m.status))
	}

	b.WriteString("\n\n")
	if m.focus == focusMap {
		b.WriteString(dimStyle.Render("arrows pan • +/- zoom • r recenter • tab select • enter click • f favorites • q quit"))
	} else {
		b.WriteString(dimStyle.Render("up/down select • d remove • c clear • f back to map • q quit"))
	}
	return b.String()
}

// renderGrid plots the mounted pins on a character grid, linear in
// latitude and longitude across the viewport
func (m model) renderGrid() string {
	grid := make([][]rune, mapHeight)
	for i := range grid {
		grid[i] = []rune(strings.Repeat("·", mapWidth))
	}

	b := m.bounds
	latSpan := b.NorthEastLat - b.SouthWestLat
	lngSpan := b.NorthEastLng - b.SouthWestLng
	if b.CrossesAntimeridian() {
		lngSpan += 360
	}
	if latSpan <= 0 || lngSpan <= 0 {
		return gridString(grid, -1, -1)
	}

	selRow, selCol := -1, -1
	for i, mk := range m.markers {
		pos := mk.Pin.Position()
		dLng := pos.Lng - b.SouthWestLng
		if dLng < 0 {
			dLng += 360
		}
		col := int(dLng / lngSpan * mapWidth)
		row := int((b.NorthEastLat - pos.Lat) / latSpan * mapHeight)
		if row < 0 || row >= mapHeight || col < 0 || col >= mapWidth {
			continue
		}

		glyph := '●'
		if m.favs.Contains(mk.Record.Key) {
			glyph = '★'
		}
		grid[row][col] = glyph
		if i == m.selected {
			selRow, selCol = row, col
		}
	}
	return gridString(grid, selRow, selCol)
}

func gridString(grid [][]rune, selRow, selCol int) string {
	var b strings.Builder
	for r, row := range grid {
		if r == selRow {
			b.WriteString(string(row[:selCol]))
			b.WriteString(selectedStyle.Render(string(row[selCol])))
			b.WriteString(string(row[selCol+1:]))
		} else {
			b.WriteString(string(row))
		}
		if r < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m model) renderInfo() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Info window"))
	b.WriteString("\n")
	if !m.info.Open {
		b.WriteString(dimStyle.Render("closed"))
	} else {
		b.WriteString(m.info.Content)
	}
	return boxStyle.Width(36).Render(b.String())
}

func (m model) renderFavorites() string {
	var b strings.Builder
	title := "Favorites"
	if m.focus == focusFavorites {
		title += " ◂"
	}
	b.WriteString(subtitleStyle.Render(title))
	b.WriteString("\n")

	list := m.favs.List()
	if len(list) == 0 {
		b.WriteString(dimStyle.Render("none yet"))
	}
	for i, rec := range list {
		line := fmt.Sprintf("%d. %s", i+1, rec.Title)
		if m.focus == focusFavorites && i == m.favSel {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		if i < len(list)-1 {
			b.WriteByte('\n')
		}
	}
	return boxStyle.Width(36).Render(b.String())
}

func (m model) renderMarkerList() string {
	if len(m.markers) == 0 {
		return dimStyle.Render("No stores in view")
	}

	var b strings.Builder
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%d stores in view", len(m.markers))))
	b.WriteString("\n")

	// a window of lines around the selection
	const visible = 5
	start := max(0, min(m.selected-visible/2, len(m.markers)-visible))
	end := min(len(m.markers), start+visible)
	for i := start; i < end; i++ {
		rec := m.markers[i].Record
		line := fmt.Sprintf("%s  %s", rec.Title, dimStyle.Render(rec.Address))
		if i == m.selected {
			line = selectedStyle.Render(rec.Title) + "  " + dimStyle.Render(rec.Address)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
