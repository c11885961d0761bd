package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/rapo-engine/rapo/internal/domain"
)

// ResultColumns is the three literal columns synthesized from
// case_definition/case_config (§4.6): Key is the raw CASE-WHEN aliased as
// rapo_result_key, Value and Type are the same expression with each
// "THEN N"/"ELSE N" numeric case id rewritten to the matching case_value
// and case_type string literal.
type ResultColumns struct {
	Key   string
	Value string
	Type  string
}

// BuildResultColumns synthesizes ResultColumns for a control. When no
// case_definition is configured, all three columns are typed nulls.
func BuildResultColumns(caseDefinition *string, caseConfig []domain.CaseEntry) ResultColumns {
	if caseDefinition == nil || *caseDefinition == "" {
		return ResultColumns{
			Key:   "CAST(NULL AS INTEGER) AS rapo_result_key",
			Value: "CAST(NULL AS VARCHAR(255)) AS rapo_result_value",
			Type:  "CAST(NULL AS VARCHAR(32)) AS rapo_result_type",
		}
	}

	def := *caseDefinition
	return ResultColumns{
		Key:   fmt.Sprintf("(%s) AS rapo_result_key", def),
		Value: fmt.Sprintf("(%s) AS rapo_result_value", substituteCaseLiterals(def, caseConfig, func(c domain.CaseEntry) string {
			return "'" + escapeLiteral(c.CaseValue) + "'"
		})),
		Type: fmt.Sprintf("(%s) AS rapo_result_type", substituteCaseLiterals(def, caseConfig, func(c domain.CaseEntry) string {
			return "'" + escapeLiteral(string(c.CaseType)) + "'"
		})),
	}
}

func escapeLiteral(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// substituteCaseLiterals rewrites every "THEN <case_id>" and "ELSE
// <case_id>" token in def to "THEN <literal>"/"ELSE <literal>" for each
// configured case, leaving unrelated numerals untouched.
func substituteCaseLiterals(def string, cases []domain.CaseEntry, literal func(domain.CaseEntry) string) string {
	out := def
	for _, c := range cases {
		id := strconv.Itoa(c.CaseID)
		lit := literal(c)
		out = replaceWordBoundary(out, `(?i)(THEN|ELSE)(\s+)`+regexp.QuoteMeta(id)+`\b`, "$1$2"+lit)
	}
	return out
}

func replaceWordBoundary(s, pattern, replacement string) string {
	re := regexp.MustCompile(pattern)
	return re.ReplaceAllString(s, replacement)
}
