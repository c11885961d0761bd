package gateway

import (
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Formatter pretty-prints SQL for logs and builds statements with the
// placeholder style of the active vendor (sqlite uses "?", oracle uses
// numbered ":1", ":2", ... bind variables via squirrel's Colon format).
type Formatter struct {
	vendor      string
	builderType sq.StatementBuilderType
}

func NewFormatter(vendor string) *Formatter {
	builder := sq.StatementBuilder
	if vendor == "oracle" {
		builder = builder.PlaceholderFormat(sq.Colon)
	} else {
		builder = builder.PlaceholderFormat(sq.Question)
	}
	return &Formatter{vendor: vendor, builderType: builder}
}

// Select starts a squirrel select builder pre-configured for the active
// vendor's placeholder style.
func (f *Formatter) Select(columns ...string) sq.SelectBuilder {
	return f.builderType.Select(columns...)
}

// Insert starts a squirrel insert builder.
func (f *Formatter) Insert(table string) sq.InsertBuilder {
	return f.builderType.Insert(table)
}

var reBlankLines = regexp.MustCompile(`\n\s*\n`)

// Document renders query for log lines: trailing spaces and tabs are
// stripped from each line and blank lines are dropped; indentation and
// whitespace inside a line are kept as written. It does not
// attempt to reformat SQL grammar, only to make multi-line templated
// statements readable in a structured log field.
func (f *Formatter) Document(query string) string {
	lines := strings.Split(query, "\n")
	trimmed := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			continue
		}
		trimmed = append(trimmed, l)
	}
	return strings.Join(trimmed, "\n")
}

// QuoteIdent quotes an identifier for the active vendor, guarding against
// injection through control names that end up as table name components
// (rapo_rest_<control_name> and friends).
func (f *Formatter) QuoteIdent(ident string) string {
	switch f.vendor {
	case "oracle":
		return fmt.Sprintf("%q", strings.ToUpper(ident))
	default:
		return fmt.Sprintf("%q", ident)
	}
}

// LimitClause returns the trailing row-limiting clause for a plain
// "SELECT ... ORDER BY ..." statement in the active vendor's dialect.
// Oracle has no LIMIT keyword; FETCH FIRST n ROWS ONLY is its ANSI
// SQL:2008 equivalent and is what every other vendor-aware statement in
// this package assumes (Oracle 12c+).
func (f *Formatter) LimitClause(n int) string {
	switch f.vendor {
	case "oracle":
		return fmt.Sprintf("FETCH FIRST %d ROWS ONLY", n)
	default:
		return fmt.Sprintf("LIMIT %d", n)
	}
}
