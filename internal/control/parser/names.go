package parser

import "strconv"

// Side tags which half of a two-sided control (REC, CMP) a temp table
// belongs to. The empty side is used by single-sided controls (ANL, REP).
type Side string

const (
	SideNone     Side = ""
	SideA        Side = "a"
	SideB        Side = "b"
	sideCombined Side = "combined"
)

func tableName(stage string, side Side, processID int64) string {
	name := "rapo_temp_" + stage
	if side != SideNone {
		name += "_" + string(side)
	}
	return name + "_" + strconv.FormatInt(processID, 10)
}

// FetchTable names the CTAS target of fetch_records[_a/_b]: the raw rows
// pulled from the source table for this run (§4.4).
func FetchTable(processID int64, side Side) string { return tableName("fd", side, processID) }

// CombinedTable names the reconciliation combination-stage join output
// for a run, before duplicate detection and reconsolidation split it.
func CombinedTable(processID int64) string { return tableName("fd", sideCombined, processID) }

// ErrorTable names the materialized error/mismatch set for a run.
func ErrorTable(processID int64, side Side) string { return tableName("err", side, processID) }

// ResultTable names the materialized match/reconsolidation result set
// for a REC run (err/res share the role error_table/result_table play
// across control kinds; ANL/CMP/REP only ever populate ErrorTable).
func ResultTable(processID int64, side Side) string { return tableName("res", side, processID) }

// TempTablesFor enumerates every temp table name a control kind may
// create for processID, for drop_temporary_tables to purge
// unconditionally regardless of how far execution got.
func TempTablesFor(processID int64, twoSided bool) []string {
	if !twoSided {
		return []string{
			FetchTable(processID, SideNone),
			ErrorTable(processID, SideNone),
		}
	}
	return []string{
		FetchTable(processID, SideA), FetchTable(processID, SideB),
		CombinedTable(processID),
		ErrorTable(processID, SideA), ErrorTable(processID, SideB),
		ResultTable(processID, SideA), ResultTable(processID, SideB),
	}
}
