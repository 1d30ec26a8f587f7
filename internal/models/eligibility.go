package models

// FeesStatus reports the fee balance state for eligibility.
type FeesStatus string

const (
	FeesStatusCleared FeesStatus = "CLEARED"
	FeesStatusPending FeesStatus = "PENDING"
)

// EligibilityResult is the computed verdict gating seating allocation and
// hall-ticket issuance. Both checks are independent; each failing check
// appends its own reason.
type EligibilityResult struct {
	StudentID            string     `json:"student_id"`
	Eligible             bool       `json:"eligible"`
	AttendancePercentage float64    `json:"attendance_percentage"`
	FeesStatus           FeesStatus `json:"fees_status"`
	Reasons              []string   `json:"reasons,omitempty"`
}

// AttendanceSummary aggregates a student's attendance records for one
// academic year. Attended counts present, late and excused records.
type AttendanceSummary struct {
	StudentID string `db:"student_id" json:"student_id"`
	Total     int    `db:"total" json:"total"`
	Attended  int    `db:"attended" json:"attended"`
}

// FeeBalance aggregates assigned fees against recorded payments.
type FeeBalance struct {
	StudentID string  `db:"student_id" json:"student_id"`
	Assigned  float64 `db:"assigned" json:"assigned"`
	Paid      float64 `db:"paid" json:"paid"`
}

// Balance is the outstanding amount.
func (b FeeBalance) Balance() float64 {
	return b.Assigned - b.Paid
}
