package parser

import (
	"encoding/json"
	"fmt"

	"github.com/rapo-engine/rapo/internal/domain"
)

// ParseCaseConfig unmarshals a control's case_config JSON array. A nil or
// empty config is not an error: it means no cases are defined.
func ParseCaseConfig(raw *string) ([]domain.CaseEntry, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var cases []domain.CaseEntry
	if err := json.Unmarshal([]byte(*raw), &cases); err != nil {
		return nil, fmt.Errorf("parse case_config: %w", err)
	}
	return cases, nil
}

// ParseErrorDefinition unmarshals error_definition as a JSON array of
// conditions. If the text does not parse as JSON, the caller should treat
// it as a verbatim SQL boolean expression instead (§4.4 ANL).
func ParseErrorDefinition(raw *string) ([]domain.ErrorCondition, bool) {
	if raw == nil || *raw == "" {
		return nil, false
	}
	var conds []domain.ErrorCondition
	if err := json.Unmarshal([]byte(*raw), &conds); err != nil {
		return nil, false
	}
	return conds, true
}

// ParseReconciliationRule unmarshals rule_config for a REC control.
func ParseReconciliationRule(raw *string) (*domain.ReconciliationRule, error) {
	if raw == nil || *raw == "" {
		return &domain.ReconciliationRule{}, nil
	}
	var rule domain.ReconciliationRule
	if err := json.Unmarshal([]byte(*raw), &rule); err != nil {
		return nil, fmt.Errorf("parse rule_config: %w", err)
	}
	return &rule, nil
}
