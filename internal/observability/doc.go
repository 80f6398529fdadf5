// Package observability provides the append-only event log, stuck-task
// detection, and outbound notifications for TaskDeck.
package observability
