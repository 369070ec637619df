package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/converse-go/internal/client"
	"github.com/raphaelgruber/converse-go/internal/models"
)

// Theme holds the color scheme for the observer view.
type Theme struct {
	User      lipgloss.Color
	Assistant lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	User:      lipgloss.Color("#5FAFD7"), // light blue
	Assistant: lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// snapshotMsg carries a fresh conversation snapshot from the server.
type snapshotMsg client.Snapshot

// observeDoneMsg signals that the observe stream ended.
type observeDoneMsg struct {
	err error
}

// observeModel is the bubbletea model for the live conversation view.
type observeModel struct {
	snapshot  client.Snapshot
	connected bool
	spinner   spinner.Model
	theme     Theme
	quitting  bool
	err       error
}

func newObserveModel() observeModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return observeModel{
		spinner: sp,
		theme:   defaultTheme,
	}
}

// Init returns the initial command (start the spinner).
func (m observeModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and returns the updated model.
func (m observeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case snapshotMsg:
		m.snapshot = client.Snapshot(msg)
		m.connected = true
		return m, nil

	case observeDoneMsg:
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the conversation.
func (m observeModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m observeModel) renderContent() string {
	if !m.connected {
		return fmt.Sprintf("%s connecting...\n", m.spinner.View())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation %q\n\n", m.snapshot.Identity)

	if len(m.snapshot.Messages) == 0 {
		b.WriteString(m.theme.hintStyle().Render("No messages yet.") + "\n")
	}
	for _, msg := range m.snapshot.Messages {
		b.WriteString(m.renderMessage(msg))
	}

	b.WriteString("\n" + m.theme.hintStyle().Render("Press q to quit") + "\n")
	return b.String()
}

func (m observeModel) renderMessage(msg models.DisplayMessage) string {
	var label string
	switch msg.Role {
	case models.RoleUser:
		label = m.theme.userStyle().Render("you")
	case models.RoleAssistant:
		label = m.theme.assistantStyle().Render("assistant")
	default:
		label = string(msg.Role)
	}

	text := msg.DisplayText
	switch msg.Status {
	case models.StatusPending:
		text = m.spinner.View()
	case models.StatusStreaming:
		text += " " + m.spinner.View()
	case models.StatusError:
		text = m.theme.errorStyle().Render("✗ " + text)
	}

	out := fmt.Sprintf("%s  %s\n", label, text)
	if refs := contextRefs(msg.Context); refs != "" {
		out += m.theme.hintStyle().Render("  context: "+refs) + "\n"
	}
	return out + "\n"
}

// runObserveTUI runs the interactive observer until the user quits or the
// connection drops.
func runObserveTUI(ctx context.Context, c *client.Client) error {
	p := tea.NewProgram(newObserveModel())

	observeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		err := c.Observe(observeCtx, func(s client.Snapshot) error {
			p.Send(snapshotMsg(s))
			return nil
		})
		p.Send(observeDoneMsg{err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("observer UI error: %w", err)
	}

	if m, ok := finalModel.(observeModel); ok {
		// User quit: connection teardown errors are expected, not reported
		if m.quitting {
			return nil
		}
		if m.err != nil && ctx.Err() == nil {
			return m.err
		}
	}
	return nil
}
