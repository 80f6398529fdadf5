package models

import "time"

// QAQuestion is a single pending clarification raised by the QA agent.
// There is no separate question ID; Timestamp is the question file's
// last-modified time and serves as identity and staleness signal.
type QAQuestion struct {
	Context   string    `json:"context"`
	Question  string    `json:"question"`
	Reason    string    `json:"reason"`
	Options   []string  `json:"options"`
	Timestamp time.Time `json:"timestamp"`
}
