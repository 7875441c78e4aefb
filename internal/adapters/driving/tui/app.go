package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/webstash/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/webstash/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/services"
)

// reservedLines is the space taken by the header, status line and help.
const reservedLines = 7

// App is the manager page following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports   *Ports
	ctx     context.Context
	session *services.ManagerSession

	styles  *styles.Styles
	keys    *keymap.KeyMap
	help    help.Model
	spinner spinner.Model

	// view is the snapshot last taken from the session.
	view services.ManagerView

	// order is every document in display order; the cursor indexes it.
	order  []domain.Document
	cursor int
	offset int

	confirming bool
	status     string
	err        error

	width  int
	height int

	exportDir string
	now       func() time.Time
	changes   chan struct{}
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the manager. Exports are written to exportDir, or the
// working directory if it is empty.
func NewApp(ports *Ports, exportDir string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &App{
		ports:     ports,
		ctx:       context.Background(),
		session:   services.NewManagerSession(ports.Library, ports.Commands, ports.Transfer),
		styles:    styles.DefaultStyles(),
		keys:      keymap.DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		exportDir: exportDir,
		now:       time.Now,
		changes:   make(chan struct{}, 1),
		width:     80,
		height:    24,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Run starts the manager and blocks until the user quits.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.SetWindowTitle("webstash"),
		a.spinner.Tick,
		a.refreshCmd(),
	}
	if a.ports.Watcher != nil {
		cmds = append(cmds, a.watchCmd(), a.waitForChange())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.adjustScroll()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case loadedMsg:
		a.err = msg.err
		a.sync()
		return a, nil

	case deletedMsg:
		a.err = msg.err
		if msg.err == nil {
			a.status = fmt.Sprintf("Deleted %d document(s)", msg.count)
		}
		a.sync()
		return a, nil

	case exportedMsg:
		a.err = msg.err
		if msg.err == nil {
			a.status = fmt.Sprintf("Exported %d document(s) to %s", msg.count, msg.path)
		}
		return a, nil

	case layoutMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		return a, a.refreshCmd()

	case storeChangedMsg:
		a.sync()
		return a, a.waitForChange()

	case watchStoppedMsg:
		if msg.err != nil {
			a.err = fmt.Errorf("watching library: %w", msg.err)
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.confirming {
		switch {
		case key.Matches(msg, a.keys.Confirm):
			a.confirming = false
			a.status = ""
			return a, a.deleteCmd()
		case key.Matches(msg, a.keys.Cancel), msg.Type == tea.KeyCtrlC:
			a.confirming = false
			a.status = "Delete cancelled"
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
			a.adjustScroll()
		}
	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.order)-1 {
			a.cursor++
			a.adjustScroll()
		}
	case key.Matches(msg, a.keys.Toggle):
		if doc := a.current(); doc != nil {
			a.toggle(doc.ID)
		}
	case key.Matches(msg, a.keys.SelectAll):
		if a.session.Flags().CheckAll {
			a.session.Clear()
		} else {
			a.session.SelectAll()
		}
		a.sync()
	case key.Matches(msg, a.keys.Delete):
		if len(a.session.Selected()) > 0 {
			a.confirming = true
			a.err = nil
		}
	case key.Matches(msg, a.keys.Export):
		if len(a.session.Selected()) > 0 {
			a.err = nil
			return a, a.exportCmd()
		}
	case key.Matches(msg, a.keys.Layout):
		return a, a.layoutCmd()
	case key.Matches(msg, a.keys.Refresh):
		a.status = ""
		return a, a.refreshCmd()
	}
	return a, nil
}

// toggle flips the selection of one document.
func (a *App) toggle(id string) {
	selected := a.session.Selected()
	next := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == id {
			found = true
			continue
		}
		next = append(next, s)
	}
	if !found {
		next = append(next, id)
	}
	a.session.SetSelection(next)
	a.sync()
}

// sync takes a new snapshot and keeps the cursor on a document.
func (a *App) sync() {
	a.view = a.session.View()

	if a.view.DisplayType == domain.ListDisplayDomain {
		a.order = nil
		for i := range a.view.Groups {
			a.order = append(a.order, a.view.Groups[i].Children...)
		}
	} else {
		a.order = a.view.Documents
	}

	if a.cursor >= len(a.order) {
		a.cursor = len(a.order) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
	a.adjustScroll()
}

func (a *App) current() *domain.Document {
	if a.cursor < 0 || a.cursor >= len(a.order) {
		return nil
	}
	return &a.order[a.cursor]
}

func (a *App) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: a.session.Refresh(a.ctx)}
	}
}

func (a *App) deleteCmd() tea.Cmd {
	return func() tea.Msg {
		n, err := a.session.DeleteSelected(a.ctx)
		return deletedMsg{count: n, err: err}
	}
}

func (a *App) exportCmd() tea.Cmd {
	return func() tea.Msg {
		if a.ports.Transfer == nil {
			return exportedMsg{err: errors.New("export is not available")}
		}
		count := len(a.session.Selected())
		data, err := a.session.ExportSelected(a.ctx)
		if err != nil {
			return exportedMsg{err: err}
		}
		name := "webstash-export-" + a.now().Format("20060102-150405") + ".json"
		path := filepath.Join(a.exportDir, name)
		if err := os.WriteFile(path, data, 0600); err != nil {
			return exportedMsg{err: fmt.Errorf("writing %s: %w", path, err)}
		}
		return exportedMsg{path: path, count: count}
	}
}

// layoutCmd switches between the flat and the grouped list. The choice is
// stored in the global config, so other clients follow it.
func (a *App) layoutCmd() tea.Cmd {
	next := domain.ListDisplayDomain
	if a.view.DisplayType == domain.ListDisplayDomain {
		next = domain.ListDisplayDefault
	}
	return func() tea.Msg {
		_, err := a.ports.Commands.UpdateConfig(a.ctx, domain.ConfigPatch{ListDisplayType: &next})
		return layoutMsg{err: err}
	}
}

// watchCmd blocks for the life of the program, refreshing the session on
// every library change.
func (a *App) watchCmd() tea.Cmd {
	return func() tea.Msg {
		err := a.session.Watch(a.ctx, a.ports.Watcher, func(error) {
			select {
			case a.changes <- struct{}{}:
			default:
			}
		})
		return watchStoppedMsg{err: err}
	}
}

func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.changes:
			return storeChangedMsg{}
		case <-a.ctx.Done():
			return nil
		}
	}
}

// adjustScroll keeps the cursor inside the visible window.
func (a *App) adjustScroll() {
	visible := a.visibleRows()
	if a.cursor < a.offset {
		a.offset = a.cursor
	} else if a.cursor >= a.offset+visible {
		a.offset = a.cursor - visible + 1
	}
}

func (a *App) visibleRows() int {
	if rows := a.height - reservedLines; rows > 0 {
		return rows
	}
	return 1
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n\n")

	if len(a.order) == 0 {
		if a.session.Loading() {
			b.WriteString(a.styles.Muted.Render("Loading..."))
		} else {
			b.WriteString(a.styles.Muted.Render("No documents saved yet."))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(a.renderList())
	}

	b.WriteString("\n")
	b.WriteString(a.renderStatus())
	b.WriteString("\n")

	if a.confirming {
		b.WriteString(a.help.ShortHelpView(a.keys.ConfirmHelp()))
	} else {
		b.WriteString(a.help.View(a.keys))
	}
	return b.String()
}

func (a *App) renderHeader() string {
	title := a.styles.Title.Render("webstash")
	summary := fmt.Sprintf("%d documents · %d selected", len(a.order), len(a.view.Selected))
	header := title + "  " + a.styles.Muted.Render(summary)
	if a.session.Loading() {
		header += " " + a.spinner.View()
	}
	return header + "\n" + a.styles.Muted.Render(checkbox(a.view.Flags)+" select all")
}

func (a *App) renderList() string {
	selected := make(map[string]bool, len(a.view.Selected))
	for _, id := range a.view.Selected {
		selected[id] = true
	}

	var lines []string
	index := 0
	row := func(doc *domain.Document, label string) {
		if index >= a.offset && index < a.offset+a.visibleRows() {
			lines = append(lines, a.renderRow(doc, label, index == a.cursor, selected[doc.ID]))
		}
		index++
	}

	if a.view.DisplayType == domain.ListDisplayDomain {
		for i := range a.view.Groups {
			g := &a.view.Groups[i]
			if index+len(g.Children) > a.offset && index < a.offset+a.visibleRows() {
				lines = append(lines, a.styles.Domain.Render(g.Domain)+
					a.styles.Muted.Render(fmt.Sprintf("  %d · %.2f MB", len(g.Children), g.StyleSize)))
			}
			for j := range g.Children {
				row(&g.Children[j], g.Children[j].Path())
			}
		}
	} else {
		for i := range a.view.Documents {
			row(&a.view.Documents[i], a.view.Documents[i].Domain)
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

func (a *App) renderRow(doc *domain.Document, label string, cursor, checked bool) string {
	box := "[ ]"
	if checked {
		box = a.styles.Checked.Render("[x]")
	}

	title := doc.Title
	if title == "" {
		title = doc.Href
	}
	width := a.width - 30
	if width < 10 {
		width = 10
	}
	if lipgloss.Width(title) > width {
		r := []rune(title)
		if len(r) > width-1 {
			r = r[:width-1]
		}
		title = string(r) + "…"
	}

	meta := a.styles.Muted.Render(fmt.Sprintf("%s  %.2f MB", label, doc.ContentSize))
	if cursor {
		return "> " + box + " " + a.styles.Cursor.Render(title) + "  " + meta
	}
	return "  " + box + " " + a.styles.Normal.Render(title) + "  " + meta
}

func (a *App) renderStatus() string {
	switch {
	case a.confirming:
		return a.styles.Warning.Render(fmt.Sprintf("Delete %d document(s)?", len(a.view.Selected)))
	case a.err != nil:
		return a.styles.Error.Render("Error: " + a.err.Error())
	case a.status != "":
		return a.styles.Success.Render(a.status)
	}
	return ""
}

// checkbox renders the select-all state.
func checkbox(flags domain.SelectionFlags) string {
	switch {
	case flags.CheckAll:
		return "[x]"
	case flags.Indeterminate:
		return "[-]"
	}
	return "[ ]"
}
