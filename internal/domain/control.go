// Package domain holds the types persisted by the engine: control
// configuration, run log rows, and the singleton records that arbitrate
// which process owns the scheduler or the web API.
package domain

import (
	"strings"
	"time"
)

// ControlType is one of the four control kinds the executor knows how to run.
type ControlType string

const (
	ControlAnalysis       ControlType = "ANL"
	ControlReconciliation ControlType = "REC"
	ControlComparison     ControlType = "CMP"
	ControlReport         ControlType = "REP"
)

// ControlEngine names the execution backend for a control. Only DB exists
// today; the field exists so the config row shape matches the source.
type ControlEngine string

const ControlEngineDB ControlEngine = "DB"

// PeriodType is the unit period_back/period_number are expressed in.
type PeriodType string

const (
	PeriodDay   PeriodType = "D"
	PeriodWeek  PeriodType = "W"
	PeriodMonth PeriodType = "M"
)

// Flag is the Y/N persisted representation of a boolean switch.
type Flag string

const (
	FlagYes Flag = "Y"
	FlagNo  Flag = "N"
)

func (f Flag) Bool() bool { return f == FlagYes }

func BoolFlag(b bool) Flag {
	if b {
		return FlagYes
	}
	return FlagNo
}

// ControlConfig is the declarative definition of a control, one row of
// rapo_config. Every edit is archived into rapo_config_bak keyed by
// AuditDate before the row is overwritten (see internal/store).
type ControlConfig struct {
	ControlID      int64       `db:"control_id"`
	ControlName    string      `db:"control_name"`
	ControlGroup   string      `db:"control_group"`
	ControlType    ControlType `db:"control_type"`
	ControlSubtype *string     `db:"control_subtype"`
	ControlEngine  ControlEngine `db:"control_engine"`

	SourceName       *string `db:"source_name"`
	SourceDateField  *string `db:"source_date_field"`
	SourceFilter     *string `db:"source_filter"`
	SourceNameA      *string `db:"source_name_a"`
	SourceDateFieldA *string `db:"source_date_field_a"`
	SourceFilterA    *string `db:"source_filter_a"`
	SourceKeyFieldA  *string `db:"source_key_field_a"`
	SourceNameB      *string `db:"source_name_b"`
	SourceDateFieldB *string `db:"source_date_field_b"`
	SourceFilterB    *string `db:"source_filter_b"`
	SourceKeyFieldB  *string `db:"source_key_field_b"`

	RuleConfig      *string `db:"rule_config"`
	ErrorDefinition *string `db:"error_definition"`
	CaseConfig      *string `db:"case_config"`
	CaseDefinition  *string `db:"case_definition"`
	OutputTable     *string `db:"output_table"`
	OutputTableA    *string `db:"output_table_a"`
	OutputTableB    *string `db:"output_table_b"`
	IterationConfig *string `db:"iteration_config"`
	ScheduleConfig  *string `db:"schedule_config"`

	PeriodBack   int        `db:"period_back"`
	PeriodNumber int        `db:"period_number"`
	PeriodType   PeriodType `db:"period_type"`

	Parallelism   *int `db:"parallelism"`
	DaysRetention int  `db:"days_retention"`
	TimeoutSec    int  `db:"timeout"`

	NeedA           Flag `db:"need_a"`
	NeedB           Flag `db:"need_b"`
	NeedHook        Flag `db:"need_hook"`
	NeedPrerunHook  Flag `db:"need_prerun_hook"`
	NeedPostrunHook Flag `db:"need_postrun_hook"`
	WithDeletion    Flag `db:"with_deletion"`
	WithDrop        Flag `db:"with_drop"`
	Status          Flag `db:"status"`

	PrerequisiteSQL *string `db:"prerequisite_sql"`
	PreparationSQL  *string `db:"preparation_sql"`
	CompletionSQL   *string `db:"completion_sql"`

	CreatedDate time.Time `db:"created_date"`
	UpdatedDate time.Time `db:"updated_date"`
}

// CaseType is the classification carried by one entry of a parsed
// case_config JSON array (§4.6).
type CaseType string

const (
	CaseNormal     CaseType = "Normal"
	CaseInfo       CaseType = "Info"
	CaseError      CaseType = "Error"
	CaseWarning    CaseType = "Warning"
	CaseIncident   CaseType = "Incident"
	CaseDiscrepancy CaseType = "Discrepancy"
	CaseSuccess    CaseType = "Success"
	CaseLoss       CaseType = "Loss"
	CaseDuplicate  CaseType = "Duplicate"
)

type CaseEntry struct {
	CaseID          int      `json:"case_id"`
	CaseValue       string   `json:"case_value"`
	CaseType        CaseType `json:"case_type"`
	CaseDescription string   `json:"case_description"`
}

// ErrorCondition is one entry of a parsed error_definition JSON array.
type ErrorCondition struct {
	Column   string `json:"column"`
	Relation string `json:"relation"`
	Value    any    `json:"value"`
	IsColumn bool   `json:"is_column"`
}

// ReconciliationRule is the parsed shape of rule_config for REC controls.
type ReconciliationRule struct {
	CorrelationKeysA []string          `json:"correlation_keys_a"`
	CorrelationKeysB []string          `json:"correlation_keys_b"`
	Discrepancies    []DiscrepancyRule `json:"discrepancies"`
	TimeShiftFrom    *int              `json:"time_shift_from"`
	TimeShiftTo      *int              `json:"time_shift_to"`
	TimeToleranceSec *int              `json:"time_tolerance_seconds"`
	NeedReconsA      bool              `json:"need_recons_a"`
	NeedReconsB      bool              `json:"need_recons_b"`
	NeedIssuesA      bool              `json:"need_issues_a"`
	NeedIssuesB      bool              `json:"need_issues_b"`
	AllowDuplicates  bool              `json:"allow_duplicates"`
}

// slug lowercases a control name for use as a table-name component.
func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// OutputTableName names the persistent result table for a single-sided
// control (ANL, CMP, REP): the configured output_table if one was given,
// otherwise the default rapo_rest_<control_name>.
func (c *ControlConfig) OutputTableName() string {
	if c.OutputTable != nil && *c.OutputTable != "" {
		return *c.OutputTable
	}
	return "rapo_rest_" + slug(c.ControlName)
}

// OutputTableNameA and OutputTableNameB name the two sides of a REC
// control's persistent result tables.
func (c *ControlConfig) OutputTableNameA() string {
	if c.OutputTableA != nil && *c.OutputTableA != "" {
		return *c.OutputTableA
	}
	return "rapo_resa_" + slug(c.ControlName)
}

func (c *ControlConfig) OutputTableNameB() string {
	if c.OutputTableB != nil && *c.OutputTableB != "" {
		return *c.OutputTableB
	}
	return "rapo_resb_" + slug(c.ControlName)
}

type DiscrepancyRule struct {
	Field       string  `json:"field"`
	Rule        string  `json:"rule"`
	Formula     *string `json:"formula"`
	Sum         bool    `json:"sum"`
	Percentage  bool    `json:"percentage"`
	Description string  `json:"description"`
}
