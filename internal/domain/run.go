package domain

import "time"

// RunStatus is the single-char code persisted in rapo_log.status (§4.3).
type RunStatus string

const (
	StatusInitiated    RunStatus = "I"
	StatusStarted      RunStatus = "S"
	StatusInProgress   RunStatus = "P"
	StatusFinishing    RunStatus = "F"
	StatusDone         RunStatus = "D"
	StatusError        RunStatus = "E"
	StatusCanceled     RunStatus = "C"
	StatusRevoked      RunStatus = "X"
	StatusDeinitiated  RunStatus = ""
)

// Terminal reports whether the status cannot legally transition further.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusCanceled, StatusRevoked, StatusDeinitiated:
		return true
	default:
		return false
	}
}

// ControlRun is one row of rapo_log: one execution attempt of a control.
type ControlRun struct {
	ProcessID int64     `db:"process_id"`
	ControlID int64     `db:"control_id"`
	Added     time.Time `db:"added"`
	Status    RunStatus `db:"status"`

	StartDate *time.Time `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
	Updated   time.Time  `db:"updated"`

	DateFrom time.Time `db:"date_from"`
	DateTo   time.Time `db:"date_to"`

	FetchedNumber   *int64 `db:"fetched_number"`
	FetchedNumberA  *int64 `db:"fetched_number_a"`
	FetchedNumberB  *int64 `db:"fetched_number_b"`
	SuccessNumber   *int64 `db:"success_number"`
	SuccessNumberA  *int64 `db:"success_number_a"`
	SuccessNumberB  *int64 `db:"success_number_b"`
	ErrorNumber     *int64 `db:"error_number"`
	ErrorNumberA    *int64 `db:"error_number_a"`
	ErrorNumberB    *int64 `db:"error_number_b"`
	ErrorLevel      *float64 `db:"error_level"`
	ErrorLevelA     *float64 `db:"error_level_a"`
	ErrorLevelB     *float64 `db:"error_level_b"`

	PrerequisiteValue *string `db:"prerequisite_value"`
	TextLog           *string `db:"text_log"`
	TextError         *string `db:"text_error"`
	TextMessage       *string `db:"text_message"`
}

// RunStatusLabel is the human label the web API derives for a run (§6.2
// get-control-runs): terminal codes map 1:1, non-terminal ones read
// "running" unless a timeout looks to have been missed by the supervisor.
func (r *ControlRun) RunStatusLabel(now time.Time, timeout time.Duration) string {
	switch r.Status {
	case StatusDone:
		return "completed"
	case StatusError:
		return "failed"
	case StatusCanceled:
		return "cancelled"
	case StatusRevoked:
		return "revoked"
	case StatusDeinitiated:
		return "deinitiated"
	case StatusInitiated, StatusStarted, StatusInProgress, StatusFinishing:
		if r.StartDate != nil && timeout > 0 && now.Sub(*r.StartDate) > timeout {
			return "overdue"
		}
		return "running"
	default:
		return "unknown"
	}
}

// SchedulerRecord is the singleton row that arbitrates which process owns
// the scheduler (rapo_scheduler). WebApiRecord shares the same shape for
// rapo_web_api.
type SchedulerRecord struct {
	ID        int64      `db:"id"`
	Server    string     `db:"server"`
	Username  string     `db:"username"`
	PID       int        `db:"pid"`
	StartDate time.Time  `db:"start_date"`
	StopDate  *time.Time `db:"stop_date"`
	Status    Flag       `db:"status"`
}

type WebAPIRecord = SchedulerRecord

// Checkpoint tracks, per control, the most recent process_id a crashed
// or superseded owner left dangling (§3, §4.2 cleanup sweep).
type Checkpoint struct {
	ControlID int64     `db:"control_id"`
	ProcessID int64     `db:"process_id"`
	Added     time.Time `db:"added"`
}
