package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestConsoleModel_Init(t *testing.T) {
	m := newConsoleModel()

	if m.activePanel != panelBoard {
		t.Errorf("expected activePanel = %d, got %d", panelBoard, m.activePanel)
	}
	if !m.loading {
		t.Error("expected loading = true on init")
	}
	if m.statusCounts == nil {
		t.Error("expected statusCounts to be initialized")
	}

	cmd := m.Init()
	if cmd == nil {
		t.Error("expected Init to return a non-nil command")
	}
}

func TestConsoleModel_KeyQ(t *testing.T) {
	m := newConsoleModel()
	m.loading = false

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected tea.Quit command from q key")
	}
	msg := cmd()
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", msg)
	}
}

func TestConsoleModel_KeyTab(t *testing.T) {
	m := newConsoleModel()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if cmd != nil {
		t.Error("expected no command from tab key")
	}
	cm := updated.(consoleModel)
	if cm.activePanel != panelQuestions {
		t.Errorf("expected panel %d after first tab, got %d", panelQuestions, cm.activePanel)
	}

	updated, _ = cm.Update(tea.KeyMsg{Type: tea.KeyTab})
	cm = updated.(consoleModel)
	if cm.activePanel != panelAlerts {
		t.Errorf("expected panel %d after second tab, got %d", panelAlerts, cm.activePanel)
	}

	// Tab wraps around.
	updated, _ = cm.Update(tea.KeyMsg{Type: tea.KeyTab})
	cm = updated.(consoleModel)
	if cm.activePanel != panelBoard {
		t.Errorf("expected panel %d after wrap, got %d", panelBoard, cm.activePanel)
	}
}

func TestConsoleModel_KeyShiftTab(t *testing.T) {
	m := newConsoleModel()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	cm := updated.(consoleModel)
	if cm.activePanel != panelAlerts {
		t.Errorf("expected panel %d after shift+tab from 0, got %d", panelAlerts, cm.activePanel)
	}
}

func TestConsoleModel_KeyR(t *testing.T) {
	m := newConsoleModel()
	m.loading = false

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	cm := updated.(consoleModel)
	if !cm.loading {
		t.Error("expected loading = true after pressing r")
	}
	if cmd == nil {
		t.Error("expected a command (loadConsoleData) from r key")
	}
}

func TestConsoleModel_DataLoaded(t *testing.T) {
	m := newConsoleModel()

	msg := consoleDataMsg{
		statusCounts: map[string]int{
			"in_progress": 2,
			"backlog":     3,
		},
		rows: []taskRow{
			{id: "TASK-001", title: "Auth flow", status: "in_progress", progress: 40},
		},
		questions: []questionRow{
			{taskID: "TASK-001", question: "Where should refresh tokens live?"},
		},
		alerts: []alertRow{
			{severity: "high", message: "agent stuck", time: "2026-03-14 12:00 UTC"},
		},
	}

	updated, cmd := m.Update(msg)
	if cmd != nil {
		t.Error("expected no command after consoleDataMsg")
	}

	cm := updated.(consoleModel)
	if cm.loading {
		t.Error("expected loading = false after data loaded")
	}
	if cm.err != nil {
		t.Errorf("expected no error, got: %v", cm.err)
	}
	if cm.statusCounts["in_progress"] != 2 {
		t.Errorf("expected in_progress = 2, got %d", cm.statusCounts["in_progress"])
	}
	if len(cm.questions) != 1 {
		t.Errorf("expected 1 question, got %d", len(cm.questions))
	}
	if len(cm.alerts) != 1 {
		t.Errorf("expected 1 alert, got %d", len(cm.alerts))
	}
}

func TestConsoleModel_DataLoadedError(t *testing.T) {
	m := newConsoleModel()

	updated, _ := m.Update(consoleDataMsg{err: errors.New("registry unavailable")})
	cm := updated.(consoleModel)
	if cm.loading {
		t.Error("expected loading = false after error")
	}
	if cm.err == nil || cm.err.Error() != "registry unavailable" {
		t.Errorf("unexpected error: %v", cm.err)
	}
}

func TestConsoleModel_View(t *testing.T) {
	m := newConsoleModel()
	m.loading = false
	m.width = 80
	m.height = 24
	m.statusCounts = map[string]int{"backlog": 1}
	m.rows = []taskRow{{id: "TASK-002", title: "Fix login", status: "backlog"}}

	view := m.View()
	if !strings.Contains(view, "TaskDeck Console") {
		t.Error("expected view to contain the title")
	}
	if !strings.Contains(view, "TASK-002") {
		t.Error("expected view to list the task")
	}
}

func TestLoadConsoleData(t *testing.T) {
	_, projectDir := setupServices(t)
	seedQuestion(t, projectDir, "001-auth-flow")

	msg := loadConsoleData()
	data, ok := msg.(consoleDataMsg)
	if !ok {
		t.Fatalf("expected consoleDataMsg, got %T", msg)
	}
	if data.err != nil {
		t.Fatalf("unexpected error: %v", data.err)
	}
	if data.statusCounts["in_progress"] != 1 || data.statusCounts["backlog"] != 1 {
		t.Errorf("unexpected counts: %v", data.statusCounts)
	}
	if len(data.questions) != 1 || data.questions[0].taskID != "TASK-001" {
		t.Errorf("unexpected questions: %v", data.questions)
	}
}
