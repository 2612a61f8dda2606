package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"advisor/internal/domain"
	"advisor/internal/service"
)

// AdvisorPort is the TUI-facing subset of the advisory service.
type AdvisorPort interface {
	Ask(ctx context.Context, state *domain.SessionState, utterance string) service.Reply
	ClearHistory(state *domain.SessionState)
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service   AdvisorPort
	state     *domain.SessionState
	input     textinput.Model
	viewport  viewport.Model
	summary   string
	status    string
	showPlans bool
	ready     bool
}

// New creates a new chat model instance.
func New(svc AdvisorPort, state *domain.SessionState, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question or request a weekly plan"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  svc,
		state:    state,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready. Enter sends, tab shows plans, ctrl+l clears.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around transcript and input boxes
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + ih + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			utterance := strings.TrimSpace(m.input.Value())
			if utterance != "" {
				reply := m.service.Ask(context.Background(), m.state, utterance)
				switch {
				case reply.Err != nil:
					m.status = "Error: " + reply.Err.Error()
				case reply.Intent == domain.IntentScheduling:
					m.status = "Plan saved for week " + reply.Week
				default:
					m.status = "Answered."
				}
				m.input.SetValue("")
				m.showPlans = false
				m.refresh()
				m.viewport.GotoBottom()
				return m, nil
			}
		case "tab":
			m.showPlans = !m.showPlans
			m.refresh()
			return m, nil
		case "ctrl+l":
			m.service.ClearHistory(m.state)
			m.status = "Conversation cleared."
			m.refresh()
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Student Advisor")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	if m.showPlans {
		m.viewport.SetContent(m.renderPlans())
		return
	}
	m.viewport.SetContent(m.renderTranscript())
}

func (m Model) renderTranscript() string {
	if len(m.state.History) == 0 {
		return "No messages yet. Ask about your study material, or request a weekly plan."
	}
	var sb strings.Builder
	for _, turn := range m.state.History {
		switch turn.Role {
		case domain.RoleUser:
			sb.WriteString(userStyle.Render("You: "))
		case domain.RoleAssistant:
			sb.WriteString(assistantStyle.Render("Advisor: "))
		}
		sb.WriteString(turn.Content)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderPlans() string {
	plans := m.state.PlanList()
	if len(plans) == 0 {
		return "No weekly plans yet. Try \"weekly plan for algebra\"."
	}
	var sb strings.Builder
	for i, plan := range plans {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(userStyle.Render(fmt.Sprintf("Week %s", plan.Week)))
		sb.WriteString("\n")
		sb.WriteString(plan.Text)
	}
	return sb.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
