package core

import (
	"strings"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// questionSection tags which buffer the scanner is filling.
type questionSection int

const (
	sectionNone questionSection = iota
	sectionContext
	sectionQuestion
	sectionReason
	sectionOptions
)

// ParseQuestion parses a QA question file into its structured form.
//
// The format is section-based markdown: recognized headers start a new
// section, unrecognized lines accumulate into the current one, and the
// top-level title plus "---" separators are discarded.
//
//	# QA Clarifying Question
//
//	## Context
//	...
//	## Question
//	...
//	## Why I'm Asking
//	...
//	## Options
//	1. Option one
//	2. Option two
func ParseQuestion(content string) models.QAQuestion {
	var q models.QAQuestion

	current := sectionNone
	var buf []string

	flush := func() {
		switch current {
		case sectionContext:
			q.Context = joinSection(buf)
		case sectionQuestion:
			q.Question = joinSection(buf)
		case sectionReason:
			q.Reason = joinSection(buf)
		case sectionOptions:
			q.Options = parseOptions(buf)
		}
		buf = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "## Context"):
			flush()
			current = sectionContext
		case strings.HasPrefix(trimmed, "## Question"):
			flush()
			current = sectionQuestion
		case strings.HasPrefix(trimmed, "## Why"), strings.HasPrefix(trimmed, "## Reason"):
			flush()
			current = sectionReason
		case strings.HasPrefix(trimmed, "## Options"):
			flush()
			current = sectionOptions
		case strings.HasPrefix(trimmed, "# "):
			// Top-level title.
		case strings.HasPrefix(trimmed, "---"):
			// Separator.
		case current != sectionNone:
			buf = append(buf, line)
		}
	}
	flush()

	return q
}

func joinSection(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// parseOptions converts an Options section into plain option strings.
// Only lines that begin with a digit or "-" count; their leading
// enumerator is stripped character by character so "1. ", "2) " and "- "
// prefixes all work. Lines that strip down to nothing are dropped.
func parseOptions(lines []string) []string {
	var options []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := line[0]
		if !(first >= '0' && first <= '9') && first != '-' {
			continue
		}
		for len(line) > 0 && strings.ContainsRune("0123456789.-) ", rune(line[0])) {
			line = line[1:]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			options = append(options, line)
		}
	}
	return options
}
