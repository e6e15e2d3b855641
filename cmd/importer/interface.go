package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prior-it/geodata/config"
	"github.com/prior-it/geodata/importer"
)

var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#139DFF")).
			Align(lipgloss.Center)
	StyleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	StyleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FCD34D"))
	StyleSucces   = lipgloss.NewStyle().Foreground(lipgloss.Color("#1EA97C"))
	StyleDefault  = lipgloss.NewStyle().Foreground(lipgloss.NoColor{})
	StyleEvent    = lipgloss.NewStyle().Foreground(lipgloss.Color("#525252"))
	StyleViewport = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true)
)

var keys = keyMap{
	// Up is defined by the viewport, we're just putting it here for the help menu
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	// Down is defined by the viewport, we're just putting it here for the help menu
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down    "),
	),
	ToTop: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "scroll to top"),
	),
	ToBottom: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "scroll to bottom    "),
	),
	Reimport: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "import again (replaces records)"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help    "),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear output    "),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type ImporterUI struct {
	initialised  bool
	quitting     bool
	followBottom bool
	running      bool
	failed       bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	cfg          *config.Config
	runner       *runner
	events       *bus
	list         *listener
	rows         int
	current      importer.Progress
	report       *importer.Report
	err          error
	spinner      spinner.Model
	progress     progress.Model
	keys         keyMap
	help         help.Model
	viewport     viewport.Model
	lines        []string
}

func NewUI(ctx context.Context, cfg *config.Config, r *runner, events *bus) *ImporterUI {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = StyleTitle

	h := help.New()
	// This, as well as the spaces in the help descriptions above, are workarounds for a bug with
	// column spacing in the current version of bubbles.
	h.Styles.FullSeparator = lipgloss.NewStyle().Width(0)

	ctx, cancel := context.WithCancel(ctx)
	return &ImporterUI{
		followBottom: true,
		ctx:          ctx,
		cancel:       cancel,
		cfg:          cfg,
		runner:       r,
		events:       events,
		list:         events.listen(),
		spinner:      s,
		progress:     progress.New(progress.WithDefaultGradient()),
		keys:         keys,
		help:         h,
		lines:        welcomeMessage(),
	}
}

func welcomeMessage() []string {
	text := []string{
		"Press Q / CTRL+C to quit the importer, a running import will be cancelled.",
		"Press R to import the file again once the current import finished.",
		"Press ? to view all commands.",
	}
	formatted := make([]string, len(text))
	for i, t := range text {
		formatted[i] = StyleTitle.Render("  > " + t)
	}
	// Append empty newline
	formatted[len(formatted)-1] += "\n"
	return formatted
}

// Wait blocks until the import session stopped and the store has been released.
func (ui *ImporterUI) Wait() {
	ui.cancel()
	ui.wg.Wait()
}

// Failed reports whether the last import or the session itself ended with an error.
func (ui *ImporterUI) Failed() bool {
	return ui.failed
}

func waitForEvent(l *listener) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-l.C:
			return ev
		case <-l.gone:
			return nil
		}
	}
}

// StartSession opens the store and runs the first import in the background.
// In watch mode the session keeps importing whenever the file changes.
func (ui *ImporterUI) StartSession() {
	ui.running = true
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		err := ui.session()
		ui.events.publish(event{kind: evStopped, err: err})
	}()
}

func (ui *ImporterUI) session() error {
	if err := ui.runner.open(ui.ctx); err != nil {
		return err
	}
	defer ui.runner.close(context.WithoutCancel(ui.ctx))

	_, _ = ui.runner.run(ui.ctx, ui.cfg.Import.Truncate)
	if watchFile {
		return ui.runner.watch(ui.ctx)
	}
	// Keep the store open for re-imports until the user quits
	<-ui.ctx.Done()
	return nil
}

func (ui *ImporterUI) reimport() {
	if ui.running {
		return
	}
	ui.running = true
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		_, _ = ui.runner.run(ui.ctx, true)
	}()
}

func (ui *ImporterUI) appendLine(line string) {
	ui.lines = append(ui.lines, line)
	ui.updateViewportContent()
}

func (ui *ImporterUI) updateViewportContent() {
	str := lipgloss.NewStyle().Width(ui.viewport.Width).Render(strings.Join(ui.lines, "\n") + "\n\n")
	ui.viewport.SetContent(str)
	if ui.followBottom {
		ui.viewport.GotoBottom()
	}
}

//nolint:cyclop
func (ui *ImporterUI) handleEvent(ev event) {
	if debug && ev.kind != evLog {
		ui.appendLine(StyleEvent.Render(fmt.Sprintf("[event] %v", ev.String())))
	}

	switch ev.kind {
	case evImportStarted:
		ui.running = true
		ui.rows = ev.rows
		ui.current = importer.Progress{}
		ui.report = nil
		ui.appendLine(StyleDefault.Render(fmt.Sprintf("[import] importing %q (%d rows)", ev.payload, ev.rows)))
	case evProgress:
		ui.current = ev.progress
	case evImportDone:
		ui.running = false
		ui.report = ev.report
		ui.failed = ev.err != nil
		if ev.err != nil {
			ui.appendLine(StyleError.Render(fmt.Sprintf("[error] import failed: %v", ev.err)))
		}
		if ev.report != nil {
			ui.current = importer.Progress{
				RunID:     ev.report.RunID,
				Processed: ev.report.Processed,
				Stored:    ev.report.Stored,
				Failed:    ev.report.Failed,
			}
			for _, rowErr := range ev.report.Errors {
				ui.appendLine(StyleWarn.Render("[row] " + rowErr.Error()))
			}
			ui.appendLine(StyleSucces.Render(fmt.Sprintf(
				"[import] done: %d stored, %d failed, %d records in the store",
				ev.report.Stored,
				ev.report.Failed,
				ev.report.Total,
			)))
		}
	case evWatching:
		ui.appendLine(StyleTitle.Render(fmt.Sprintf("Watching %q for changes", ev.payload)))
	case evLog:
		ui.appendLine(StyleEvent.Render(ev.payload))
	case evStopped:
		ui.running = false
		if ev.err != nil {
			ui.err = ev.err
			ui.failed = true
		}
	case evFileChanged:
	}
}

func (ui *ImporterUI) Init() tea.Cmd {
	return tea.Batch(ui.spinner.Tick, waitForEvent(ui.list))
}

//nolint:cyclop
func (ui *ImporterUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)
	if ui.quitting {
		return ui, tea.Quit
	}

	switch msg := msg.(type) {
	case event:
		ui.handleEvent(msg)
		cmds = append(cmds, waitForEvent(ui.list))

	case tea.KeyMsg:
		// Key presses
		switch {
		case key.Matches(msg, ui.keys.Quit):
			ui.cancel()
			ui.quitting = true
			return ui, tea.Quit
		case key.Matches(msg, ui.keys.Clear):
			ui.lines = welcomeMessage()
			ui.updateViewportContent()
		case key.Matches(msg, ui.keys.Help):
			ui.help.ShowAll = !ui.help.ShowAll
		case key.Matches(msg, ui.keys.Up):
			ui.followBottom = ui.viewport.AtBottom()
		case key.Matches(msg, ui.keys.Down):
			ui.followBottom = ui.viewport.AtBottom()
		case key.Matches(msg, ui.keys.ToTop):
			ui.followBottom = false
			ui.viewport.GotoTop()
		case key.Matches(msg, ui.keys.ToBottom):
			ui.followBottom = true
			ui.viewport.GotoBottom()
		case key.Matches(msg, ui.keys.Reimport):
			ui.reimport()
		}

	case tea.WindowSizeMsg:
		ui.help.Width = msg.Width
		ui.progress.Width = max(msg.Width-4, 10)
		headerHeight := lipgloss.Height(ui.HeaderView())
		footerHeight := lipgloss.Height(ui.FooterView())
		verticalMargin := headerHeight + footerHeight - 1
		if !ui.initialised {
			ui.viewport = viewport.New(msg.Width, msg.Height-verticalMargin)
			ui.viewport.YPosition = headerHeight
			ui.viewport.Style = StyleViewport
			ui.updateViewportContent()
			ui.initialised = true
			ui.StartSession()
		} else {
			ui.viewport.Width = msg.Width
			ui.viewport.Height = msg.Height - verticalMargin
		}
	}

	ui.spinner, cmd = ui.spinner.Update(msg)
	cmds = append(cmds, cmd)

	ui.viewport, cmd = ui.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return ui, tea.Batch(cmds...)
}

func (ui *ImporterUI) View() string {
	if ui.quitting {
		return "\nBye!\n"
	}
	if !ui.initialised {
		return fmt.Sprintf("\n%vInitialising…\n", ui.spinner.View())
	}

	return ui.HeaderView() + ui.viewport.View() + ui.FooterView()
}

func (ui *ImporterUI) percent() float64 {
	if ui.rows == 0 {
		if ui.report != nil {
			return 1
		}
		return 0
	}
	return min(float64(ui.current.Processed)/float64(ui.rows), 1)
}

// The view above the main output view
func (ui *ImporterUI) HeaderView() string {
	title := "Geodata Importer"
	if ui.running {
		title = fmt.Sprintf("%v %v %v", ui.spinner.View(), title, ui.spinner.View())
	}
	header := StyleTitle.Width(ui.viewport.Width).Render(title) + "\n"
	header += StyleDefault.Render(fmt.Sprintf(" File: %v", ui.cfg.Import.File)) + "\n"
	header += " " + ui.progress.ViewAs(ui.percent()) + "\n"

	stats := fmt.Sprintf(
		" Processed %d/%d  Stored %d  Failed %d",
		ui.current.Processed,
		ui.rows,
		ui.current.Stored,
		ui.current.Failed,
	)
	if ui.current.Failed > 0 {
		header += StyleWarn.Render(stats)
	} else {
		header += StyleDefault.Render(stats)
	}
	return header + "\n"
}

// The view underneath the main output view
func (ui *ImporterUI) FooterView() string {
	helpView := ui.help.View(ui.keys)

	// Center the help view
	helpView = lipgloss.NewStyle().
		Width(ui.viewport.Width).
		AlignHorizontal(lipgloss.Center).
		Render(helpView)

	var errView string
	if ui.err != nil {
		errView = "\n" + StyleError.
			Width(ui.viewport.Width).
			AlignHorizontal(lipgloss.Center).
			Render(fmt.Sprintf("[ERROR] %v", ui.err.Error()))
	}
	return "\n" + helpView + errView
}

// KeyMap is basically only used to generate the help menu, we don't allow rebinding keys atm
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	ToTop    key.Binding
	ToBottom key.Binding
	Reimport key.Binding
	Help     key.Binding
	Clear    key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view. It's part
// of the key.Map interface.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Reimport, k.Help}
}

// FullHelp returns keybindings for the expanded help view. It's part of the
// key.Map interface.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.ToTop, k.ToBottom},
		{k.Reimport, k.Help},
		{k.Clear, k.Quit},
	}
}
