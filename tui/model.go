package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	rw "github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
	"github.com/veldt-ai/veldt"
	"github.com/veldt-ai/veldt/markdown"
)

var _ tea.Model = Model{}

// progressRow is one line of agent progress in the viewport.
type progressRow struct {
	kind string // veldt event kind, or "error"
	text string
}

// Model is the Bubble Tea model for the veldt TUI.
type Model struct {
	// Input is the question input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	run    AskFunc
	theme  veldt.Theme
	styles Styles
	spin   spinner.Model

	question string
	rows     []progressRow
	final    *veldt.Event

	running bool
	cancel  context.CancelFunc
	msgCh   chan tea.Msg
	doneCh  chan error
	err     error
	ready   bool
}

// New creates a TUI Model with the given ask function and theme.
func New(run AskFunc, theme veldt.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		Input:  ti,
		run:    run,
		theme:  theme,
		styles: NewStyles(theme),
		spin:   sp,
	}
}

// Running returns whether an ask is in flight.
func (m Model) Running() bool { return m.running }

// Err returns the last transport error, if any.
func (m Model) Err() error { return m.err }

// Answer returns the final answer text, or "" before one arrives.
func (m Model) Answer() string {
	if m.final == nil {
		return ""
	}
	return m.final.Answer
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case StreamEventMsg:
		m = m.processEvent(msg.Event)
		m.syncViewport()
		return m, m.listen()

	case StreamErrorMsg:
		m.rows = append(m.rows, progressRow{kind: "error", text: msg.Err.Error()})
		m.syncViewport()
		return m, m.listen()

	case AskDoneMsg:
		m.running = false
		m.cancel = nil
		m.msgCh = nil
		m.doneCh = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		m.syncViewport()
		return m, m.Input.Focus()
	}

	// Pass remaining messages to sub-components. The viewport always
	// receives messages for scrolling.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) listen() tea.Cmd {
	if m.msgCh == nil {
		return nil
	}
	return listenForMsg(m.msgCh, m.doneCh)
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusH := 1
	gapH := 2
	vpHeight := msg.Height - inputH - statusH - gapH
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.syncViewport()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		query := strings.TrimSpace(m.Input.Value())
		if query == "" {
			return m, nil
		}
		return m.submit(query)
	}

	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		// Non-character keys also scroll the viewport.
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submit(query string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.question = query
	m.rows = nil
	m.final = nil

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.msgCh = make(chan tea.Msg, 256)
	m.doneCh = make(chan error, 1)
	m.running = true
	m.Input.Blur()
	m.syncViewport()

	return m, tea.Batch(
		startAsk(m.run, ctx, query, m.msgCh, m.doneCh),
		m.listen(),
		m.spin.Tick,
	)
}

// processEvent turns one decoded stream event into display state.
func (m Model) processEvent(ev veldt.Event) Model {
	switch ev.Type {
	case veldt.KindAgentStart:
		m.rows = append(m.rows, progressRow{kind: ev.Type, text: ev.Agent + " started"})
	case veldt.KindAgentComplete:
		text := ev.Agent + " done"
		if ev.Elapsed > 0 {
			text = fmt.Sprintf("%s done (%.1fs)", ev.Agent, ev.Elapsed)
		}
		m.rows = append(m.rows, progressRow{kind: ev.Type, text: text})
	case veldt.KindCacheHit:
		m.rows = append(m.rows, progressRow{kind: ev.Type, text: "answer served from cache"})
	case veldt.KindFinal:
		m.final = &ev
	default:
		m.rows = append(m.rows, progressRow{kind: ev.Type, text: ev.Type})
	}
	return m
}

func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
}

func (m Model) renderContent() string {
	if m.question == "" {
		return ""
	}
	width := m.Viewport.Width

	var b strings.Builder
	b.WriteString(m.styles.Question.Render("? " + m.question))
	b.WriteString("\n")

	for _, row := range m.rows {
		b.WriteString(m.renderRow(row, width))
		b.WriteString("\n")
	}

	if m.final != nil {
		b.WriteString("\n")
		b.WriteString(markdown.Render(m.final.Answer, width, m.theme))
		b.WriteString("\n")
		b.WriteString(m.renderSources(m.final.Documents, width))
		if m.final.Confidence > 0 {
			b.WriteString(m.styles.Success.Render(fmt.Sprintf("confidence %.2f", m.final.Confidence)))
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderRow truncates the plain text first; width math on styled strings
// would count the escape sequences.
func (m Model) renderRow(row progressRow, width int) string {
	switch row.kind {
	case veldt.KindAgentStart:
		return m.styles.Agent.Render(truncate("▸ "+row.text, width))
	case veldt.KindAgentComplete:
		return m.styles.Success.Render(truncate("✓ "+row.text, width))
	case veldt.KindCacheHit:
		return m.styles.Muted.Render(truncate("⚡ "+row.text, width))
	case "error":
		return m.styles.Error.Render(truncate("✗ "+row.text, width))
	default:
		return m.styles.Muted.Render(truncate("· "+row.text, width))
	}
}

// renderSources lists citation documents under the answer.
func (m Model) renderSources(docs []veldt.Document, width int) string {
	if len(docs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Muted.Render("sources"))
	b.WriteString("\n")
	for i, d := range docs {
		entry := fmt.Sprintf("  %d. %s", i+1, d.Title)
		if d.URL != "" {
			entry += " (" + d.URL + ")"
		}
		if d.Score > 0 {
			score := fmt.Sprintf("%0.2f", d.Score)
			if pad := width - uniseg.StringWidth(entry) - len(score) - 2; pad > 0 {
				entry += strings.Repeat(" ", pad)
			} else {
				entry += " "
			}
			entry += score
		}
		b.WriteString(truncate(entry, width))
		b.WriteString("\n")
	}
	return b.String()
}

// truncate cuts a line to the terminal width, accounting for wide runes.
func truncate(s string, width int) string {
	if width <= 0 || uniseg.StringWidth(s) <= width {
		return s
	}
	return rw.Truncate(s, width-1, "…")
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.running {
		return m.spin.View() + m.styles.Muted.Render("thinking... (Ctrl+C to cancel)")
	}
	return m.styles.Muted.Render("Enter to ask, Ctrl+C to quit")
}
