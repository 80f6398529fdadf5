package models

// QASignoffStatus is the tri-state marker the QA agent maintains on the
// plan: proceeding normally, blocked on a clarifying question, or just
// handed an answer and about to resume.
type QASignoffStatus string

const (
	QANormal          QASignoffStatus = "normal"
	QAQuestionPending QASignoffStatus = "question_pending"
	QAResuming        QASignoffStatus = "resuming"
)

// QASignoff is the plan-level QA state block. The agent owns every field
// except Status and AnswerReceivedAt, which the operator side flips when
// an answer is submitted.
type QASignoff struct {
	Status           QASignoffStatus `json:"status"`
	QASession        int             `json:"qa_session,omitempty"`
	Timestamp        string          `json:"timestamp,omitempty"`
	AnswerReceivedAt string          `json:"answer_received_at,omitempty"`
}

// PlanSubtask is a subtask as the agent writes it into the plan file.
type PlanSubtask struct {
	ID           string        `json:"id"`
	Description  string        `json:"description"`
	Status       SubtaskStatus `json:"status"`
	Files        []string      `json:"files,omitempty"`
	Verification string        `json:"verification,omitempty"`
}

// PlanPhase groups subtasks; phases execute in document order.
type PlanPhase struct {
	Name     string        `json:"name,omitempty"`
	Subtasks []PlanSubtask `json:"subtasks"`
}

// ImplementationPlan is the agent-authored implementation_plan.json.
// The plan is read-only from the operator side except for the QA signoff
// block during the clarification handshake.
type ImplementationPlan struct {
	FeatureName string      `json:"feature,omitempty"`
	Phases      []PlanPhase `json:"phases"`
	QASignoff   *QASignoff  `json:"qa_signoff,omitempty"`
}

// Flatten returns every subtask of every phase in document order,
// converted to the operator-side Subtask shape. No separate human title
// exists in the plan yet, so the description doubles as the title.
func (p ImplementationPlan) Flatten() []Subtask {
	var subtasks []Subtask
	for _, phase := range p.Phases {
		for _, st := range phase.Subtasks {
			subtasks = append(subtasks, Subtask{
				ID:           st.ID,
				Title:        st.Description,
				Description:  st.Description,
				Status:       st.Status,
				Files:        st.Files,
				Verification: st.Verification,
			})
		}
	}
	return subtasks
}
