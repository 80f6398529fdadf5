package cli

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Console panel indices.
const (
	panelBoard = iota
	panelQuestions
	panelAlerts
	panelCount
)

type consoleModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	statusCounts map[string]int
	rows         []taskRow
	questions    []questionRow
	alerts       []alertRow

	// State.
	loading bool
	err     error
}

type taskRow struct {
	id       string
	title    string
	status   string
	reason   string
	progress int
}

type questionRow struct {
	taskID   string
	question string
}

type alertRow struct {
	severity string
	message  string
	time     string
}

// consoleDataMsg carries loaded data back to the model.
type consoleDataMsg struct {
	statusCounts map[string]int
	rows         []taskRow
	questions    []questionRow
	alerts       []alertRow
	err          error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusInProgress  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusDone        = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusHumanReview = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusAIReview    = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusBacklog     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newConsoleModel() consoleModel {
	return consoleModel{
		activePanel:  panelBoard,
		loading:      true,
		statusCounts: make(map[string]int),
	}
}

func (m consoleModel) Init() tea.Cmd {
	return loadConsoleData
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadConsoleData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case consoleDataMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusCounts = msg.statusCounts
		m.rows = msg.rows
		m.questions = msg.questions
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m consoleModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" TaskDeck Console ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	boardPanel := m.renderBoardPanel()
	questionsPanel := m.renderQuestionsPanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		boardPanel = m.applyPanelStyle(panelBoard, boardPanel, colWidth-4)
		questionsPanel = m.applyPanelStyle(panelQuestions, questionsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, boardPanel, questionsPanel, alertsPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		boardPanel = m.applyPanelStyle(panelBoard, boardPanel, panelWidth)
		questionsPanel = m.applyPanelStyle(panelQuestions, questionsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, boardPanel, questionsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m consoleModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m consoleModel) renderBoardPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Board"))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	// Counts in lifecycle order.
	order := []string{"in_progress", "ai_review", "human_review", "backlog", "done"}
	for _, status := range order {
		count, ok := m.statusCounts[status]
		if !ok || count == 0 {
			continue
		}
		label := fmt.Sprintf("  %-14s %d", status, count)
		b.WriteString(styleForStatus(status).Render(label))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	for _, r := range m.rows {
		line := fmt.Sprintf("  %-10s %3d%%  %s", r.id, r.progress, r.title)
		if r.reason != "" {
			line += fmt.Sprintf(" (%s)", r.reason)
		}
		b.WriteString(styleForStatus(r.status).Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

func (m consoleModel) renderQuestionsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Questions"))
	b.WriteString("\n")

	if len(m.questions) == 0 {
		b.WriteString("  No pending questions.")
		return b.String()
	}

	for _, q := range m.questions {
		b.WriteString(fmt.Sprintf("  %s\n    %s\n", q.taskID, q.question))
	}

	b.WriteString("\n  Answer with: tdk question answer <task> ...")

	return b.String()
}

func (m consoleModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForStatus(status string) lipgloss.Style {
	switch status {
	case "in_progress":
		return statusInProgress
	case "done":
		return statusDone
	case "human_review":
		return statusHumanReview
	case "ai_review":
		return statusAIReview
	case "backlog":
		return statusBacklog
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	default:
		return lipgloss.NewStyle()
	}
}

func loadConsoleData() tea.Msg {
	result := consoleDataMsg{
		statusCounts: make(map[string]int),
	}

	if Lifecycle != nil {
		tasks := Lifecycle.ListTasks("")
		for _, t := range tasks {
			result.statusCounts[string(t.Status)]++
			result.rows = append(result.rows, taskRow{
				id:       t.ID,
				title:    t.Title,
				status:   string(t.Status),
				reason:   string(t.ReviewReason),
				progress: t.ExecutionProgress.OverallProgress,
			})

			if Channel != nil {
				question, err := Channel.GetPendingQuestion(t)
				if err != nil {
					result.err = fmt.Errorf("loading questions: %w", err)
					return result
				}
				if question != nil {
					result.questions = append(result.questions, questionRow{
						taskID:   t.ID,
						question: question.Question,
					})
				}
			}
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertRow, 0, len(alerts))

		// Sort alerts by severity: high first.
		sort.Slice(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertRow{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive TUI console for the task board",
	Long: `Launch an interactive terminal console showing the task board,
pending agent questions, and active alerts in a live view.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}
		if Watcher != nil {
			if err := Watcher.Start(); err != nil {
				return fmt.Errorf("starting plan watcher: %w", err)
			}
			defer Watcher.Stop()
		}
		p := tea.NewProgram(newConsoleModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
