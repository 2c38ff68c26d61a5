package dsl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pgcudahy/sos/internal/eval"
)

var (
	sectionHeaderRe = regexp.MustCompile(`^\[([\d\w_,*\s]+)(?::\s*([^\]]*))?\]`)
	sectionOptionRe = regexp.MustCompile(`^\s*(input_alias|output_alias|nonconcurrent|skip|blocking|sigil|target)(?:\s*=\s*(.+))?\s*$`)
	formatLineRe    = regexp.MustCompile(`^#fileformat\s*=\s*(.*?)\s*$`)
	formatVersionRe = regexp.MustCompile(`^([a-zA-Z]+)([\d.]+)$`)
	directiveRe     = regexp.MustCompile(`^(input|output|depends)\s*:\s*(.*)$`)
	assignmentRe    = regexp.MustCompile(`^([\w_][\d\w_]*)\s*=\s*(.*)$`)
)

const parametersSectionName = "parameters"

// ParseResult holds everything one pass over a script produces.
type ParseResult struct {
	Sections      []*Section
	FormatVersion string
}

// Parser turns raw script text into an ordered slice of Sections,
// following the line-classification order of the original line-oriented
// parser: comments, blank lines, continuations, section headers,
// assignments, directives, and finally free-form statements.
type Parser struct {
	evaluator eval.Evaluator
}

// NewParser builds a Parser that uses evaluator to judge expression
// completeness for multi-line assignments, directives and step actions.
func NewParser(evaluator eval.Evaluator) *Parser {
	return &Parser{evaluator: evaluator}
}

// Parse parses content (source is used only for error messages) and
// returns every issue found in a single *ParsingError rather than
// stopping at the first one.
func (p *Parser) Parse(content, source string) (*ParseResult, error) {
	lines := splitLines(content)

	var sections []*Section
	formatVersion := "1.0"
	commentBlock := 1
	var cursect *Section
	parsingErr := &ParsingError{Source: source}
	stck := NewExprStack(p.evaluator)
	lineno := 0

	for _, line := range lines {
		lineno++
		noNL := strings.TrimSuffix(line, "\n")

		if strings.HasPrefix(line, "#") {
			if cursect == nil {
				if commentBlock == 1 {
					if mo := formatLineRe.FindStringSubmatch(noNL); mo != nil {
						formatName := mo[1]
						if !strings.HasPrefix(strings.ToUpper(formatName), "SOS") {
							parsingErr.append(lineno, line, fmt.Sprintf("Unrecognized file format name %s. Expecting SOS.", formatName))
						}
						if fv := formatVersionRe.FindStringSubmatch(formatName); fv != nil {
							formatVersion = fv[2]
						} else {
							parsingErr.append(lineno, line, fmt.Sprintf("Unrecognized file format version in %s.", formatName))
						}
					}
				}
				// comment_block > 1 before any section: workflow
				// description text, not modeled as structured data here.
			} else if cursect.IsParameters {
				cursect.AddComment(line)
			} else if commentBlock == 1 && cursect.Empty() {
				cursect.AddComment(line)
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			if cursect == nil {
				commentBlock++
			} else if cursect.Comment != "" {
				commentBlock++
			}
			continue
		}

		if isIndented(line) && cursect != nil && !cursect.Empty() {
			if strings.TrimSpace(line) != "" {
				cursect.Extend(line)
				stck.Push(line)
			}
			continue
		}

		if !stck.IsValid() {
			stck.Push(line)
			if cursect != nil {
				cursect.Extend(line)
			}
			continue
		}

		if mo := sectionHeaderRe.FindStringSubmatchIndex(line); mo != nil {
			if !stck.IsValid() {
				parsingErr.append(lineno-1, stck.Text(), "Invalid "+stck.CategoryOf().String())
			}
			stck.Clear()

			sectionName := strings.TrimSpace(line[mo[2]:mo[3]])
			var sectionOption *string
			if mo[4] != -1 {
				opt := line[mo[4]:mo[5]]
				sectionOption = &opt
			}

			var names []StepName
			for _, tok := range strings.Split(sectionName, ",") {
				name, err := parseSectionNameToken(tok)
				if err != nil {
					parsingErr.append(lineno, line, "Invalid section name")
					continue
				}
				names = append(names, name)
			}
			options := map[string]string{}
			if sectionOption != nil {
				for _, opt := range strings.Split(*sectionOption, ",") {
					mo := sectionOptionRe.FindStringSubmatch(opt)
					if mo == nil {
						parsingErr.append(lineno, line, "Invalid section option")
						continue
					}
					options[mo[1]] = mo[2]
				}
			}
			isParameters := len(names) > 0 && names[0].Name == parametersSectionName
			sect := NewSection(names, options, isParameters)
			sections = append(sections, sect)
			cursect = sect
			continue
		}

		if mo := assignmentRe.FindStringSubmatch(noNL); mo != nil {
			if cursect == nil {
				cursect = NewGlobalSection()
				sections = append(sections, cursect)
			}
			if !stck.IsValid() {
				parsingErr.append(lineno-1, stck.Text(), "Invalid "+stck.CategoryOf().String())
			}
			stck.Clear()

			varName, varValue := mo[1], mo[2]
			switch {
			case cursect.Empty() || cursect.lastKind == kindAssignment:
				cursect.AddAssignment(varName, varValue)
				stck.Set(varValue, CategoryExpression)
			case cursect.lastKind == kindDirective:
				stmt := fmt.Sprintf("%s = %s\n", varName, varValue)
				cursect.AddStatement(stmt)
				stck.Set(stmt, CategoryStatements)
			default:
				stmt := fmt.Sprintf("%s = %s\n", varName, varValue)
				cursect.Extend(stmt)
				stck.Set(stmt, CategoryStatements)
			}
			continue
		}

		if mo := directiveRe.FindStringSubmatch(noNL); mo != nil {
			if !stck.IsValid() {
				parsingErr.append(lineno-1, stck.Text(), "Invalid "+stck.CategoryOf().String())
			}
			stck.Clear()

			directiveName, directiveValue := mo[1], mo[2]
			if cursect == nil {
				parsingErr.append(lineno, line, fmt.Sprintf("Directive %s is not allowed outside of a step", directiveName))
				continue
			}
			if cursect.IsParameters {
				parsingErr.append(lineno, line, fmt.Sprintf("Directive %s is not allowed in %s section", directiveName, parametersSectionName))
				continue
			}
			if !cursect.Empty() && cursect.lastKind == kindStatement {
				parsingErr.append(lineno, line, fmt.Sprintf("Directive %s should be defined before step action", directiveName))
				continue
			}
			cursect.AddDirective(directiveName, directiveValue)
			stck.Set(directiveValue, CategoryDirective)
			continue
		}

		// Anything else is a free-form step-action statement.
		if cursect == nil || cursect.IsGlobal {
			parsingErr.append(lineno, line, "Only variable assignment is allowed before section definitions.")
			continue
		}
		if cursect.IsParameters {
			parsingErr.append(lineno, line, fmt.Sprintf("Action statement is not allowed in %s section", parametersSectionName))
			continue
		}
		if cursect.Empty() || cursect.lastKind != kindStatement {
			cursect.AddStatement(line)
			stck.Clear()
			stck.Set(line, CategoryStatements)
		} else {
			cursect.Extend(line)
			stck.Push(line)
		}
	}

	if !stck.IsValid() {
		parsingErr.append(lineno-1, stck.Text(), "Invalid "+stck.CategoryOf().String())
	}

	if parsingErr.HasErrors() {
		return nil, parsingErr
	}
	return &ParseResult{Sections: sections, FormatVersion: formatVersion}, nil
}

func isIndented(line string) bool {
	if line == "" {
		return false
	}
	c := line[0]
	return c == ' ' || c == '\t'
}

// splitLines splits content into lines that retain their trailing '\n'
// (except possibly the last, if the content does not end in one), the way
// iterating a Python file object yields lines — statement text is later
// joined back together and handed to the evaluator/executor verbatim, so
// the terminator matters.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	for i, l := range raw {
		if i == len(raw)-1 {
			if l != "" {
				lines = append(lines, l)
			}
			continue
		}
		lines = append(lines, l+"\n")
	}
	return lines
}

// parseSectionNameToken parses one comma-separated piece of a section
// header's name list into a (name, index) pair. A bare integer names the
// implicit "default" workflow at that index; otherwise the token must
// start with a letter or '*', end with an alphanumeric or '*', and may
// carry a trailing "_<digits>" step index.
func parseSectionNameToken(tok string) (StepName, error) {
	trimmed := strings.TrimSpace(tok)
	if trimmed == "" {
		return StepName{}, fmt.Errorf("dsl: empty section name")
	}
	if allDigits(trimmed) {
		idx, err := strconv.Atoi(trimmed)
		if err != nil {
			return StepName{}, err
		}
		return StepName{Name: "default", Index: &idx}, nil
	}
	if i := strings.LastIndexByte(trimmed, '_'); i > 0 {
		suffix := trimmed[i+1:]
		namePart := trimmed[:i]
		if suffix != "" && allDigits(suffix) && isValidNameToken(namePart) {
			idx, err := strconv.Atoi(suffix)
			if err != nil {
				return StepName{}, err
			}
			return StepName{Name: namePart, Index: &idx}, nil
		}
	}
	if isValidNameToken(trimmed) {
		return StepName{Name: trimmed}, nil
	}
	return StepName{}, fmt.Errorf("dsl: invalid section name %q", tok)
}

func isValidNameToken(s string) bool {
	if s == "" {
		return false
	}
	if !(isAlpha(s[0]) || s[0] == '*') {
		return false
	}
	if len(s) == 1 {
		return true
	}
	last := s[len(s)-1]
	if !(isAlnum(last) || last == '*') {
		return false
	}
	for i := 1; i < len(s)-1; i++ {
		c := s[i]
		if !(isAlnum(c) || c == '_' || c == '*') {
			return false
		}
	}
	return true
}

func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlnum(b byte) bool { return isAlpha(b) || isDigit(b) }

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
