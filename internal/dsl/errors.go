package dsl

import "fmt"

// ParseIssue is one line-anchored parsing complaint.
type ParseIssue struct {
	Line    int
	Text    string
	Message string
}

// ParsingError aggregates every ParseIssue found in one pass over a
// script, mirroring pysos's ParsingError.append accumulation: parsing
// keeps going after a bad line so a single run reports everything wrong
// with a script, not just the first mistake.
type ParsingError struct {
	Source string
	Issues []ParseIssue
}

func (e *ParsingError) append(line int, text, msg string) {
	e.Issues = append(e.Issues, ParseIssue{Line: line, Text: text, Message: msg})
}

func (e *ParsingError) Error() string {
	msg := fmt.Sprintf("dsl: %s contains parsing errors", e.Source)
	for _, issue := range e.Issues {
		msg += fmt.Sprintf("\n\t[line %2d]: %s\n\t%s", issue.Line, issue.Text, issue.Message)
	}
	return msg
}

// HasErrors reports whether any issue was recorded.
func (e *ParsingError) HasErrors() bool { return len(e.Issues) > 0 }
