// Package budget converts the proposal budget table between its persisted
// markdown form and the fixed three-column rows edited by clients.
//
// Cell text is escaped on encode: a backslash becomes `\\`, a pipe becomes
// `\|` and a line break becomes `\n`. Decode honours those escapes and keeps
// any other backslash pair verbatim, so tables written before escaping was
// introduced still decode the same way.
package budget

import (
	"strings"
)

// Columns are the header labels of the budget table, in cell order.
var Columns = [3]string{"Item", "Descrição", "Valor (R$)"}

// Row is one budget line item. ID is the 1-based position of the row in the
// decoded table and is never persisted.
type Row struct {
	ID          int    `json:"id"`
	Item        string `json:"item"`
	Description string `json:"description"`
	Value       string `json:"value"`
}

// Decode parses a markdown table into rows. Input with fewer than two lines
// (no header and separator) yields an empty slice.
func Decode(markdown string) []Row {
	trimmed := strings.TrimSpace(strings.ReplaceAll(markdown, "\r\n", "\n"))
	if trimmed == "" {
		return []Row{}
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return []Row{}
	}

	rows := make([]Row, 0, len(lines)-2)
	for i, line := range lines[2:] {
		var cells [3]string
		for j, cell := range splitCells(line) {
			if j >= len(cells) {
				break
			}
			cells[j] = unescape(strings.TrimSpace(cell))
		}
		rows = append(rows, Row{
			ID:          i + 1,
			Item:        cells[0],
			Description: cells[1],
			Value:       cells[2],
		})
	}
	return rows
}

// Encode renders rows as a markdown table. No rows yields an empty string.
func Encode(rows []Row) string {
	if len(rows) == 0 {
		return ""
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, "| "+strings.Join(Columns[:], " | ")+" |")
	lines = append(lines, "| --- | --- | --- |")
	for _, row := range rows {
		lines = append(lines, "| "+escape(row.Item)+" | "+escape(row.Description)+" | "+escape(row.Value)+" |")
	}
	return strings.Join(lines, "\n")
}

// splitCells splits a table line on unescaped pipes, dropping the empty
// segments produced by the outer pipes. Escape sequences are left in place.
func splitCells(line string) []string {
	line = strings.TrimSpace(line)

	var (
		cells      []string
		current    strings.Builder
		escaped    bool
		endsOnPipe bool
	)
	for _, r := range line {
		endsOnPipe = false
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			current.WriteRune(r)
			escaped = true
		case r == '|':
			cells = append(cells, current.String())
			current.Reset()
			endsOnPipe = true
		default:
			current.WriteRune(r)
		}
	}
	if !endsOnPipe {
		cells = append(cells, current.String())
	}

	if strings.HasPrefix(line, "|") && len(cells) > 0 {
		cells = cells[1:]
	}
	return cells
}

func escape(cell string) string {
	if !strings.ContainsAny(cell, "\\|\r\n") {
		return cell
	}

	var b strings.Builder
	b.Grow(len(cell) + 4)
	for _, r := range cell {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '|':
			b.WriteString(`\|`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescape(cell string) string {
	if !strings.Contains(cell, `\`) {
		return cell
	}

	var b strings.Builder
	b.Grow(len(cell))
	escaped := false
	for _, r := range cell {
		if !escaped {
			if r == '\\' {
				escaped = true
				continue
			}
			b.WriteRune(r)
			continue
		}
		escaped = false
		switch r {
		case '\\':
			b.WriteRune('\\')
		case '|':
			b.WriteRune('|')
		case 'n':
			b.WriteRune('\n')
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	return b.String()
}
