package models

import "time"

// Hall is a school-scoped physical room reused across schedules.
type Hall struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SeatAllocation assigns one student to one hall and seat for one schedule.
// The full set for a schedule is replaced atomically on every generation run.
type SeatAllocation struct {
	ID         string    `db:"id" json:"id"`
	ScheduleID string    `db:"schedule_id" json:"schedule_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	HallID     string    `db:"hall_id" json:"hall_id"`
	SeatNumber string    `db:"seat_number" json:"seat_number"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SeatAssignmentView joins allocation rows with student and hall metadata
// for the seating read path.
type SeatAssignmentView struct {
	SeatNumber  string `db:"seat_number" json:"seat_number"`
	StudentID   string `db:"student_id" json:"student_id"`
	StudentCode string `db:"student_code" json:"student_code"`
	StudentName string `db:"student_name" json:"student_name"`
	HallID      string `db:"hall_id" json:"hall_id"`
	HallName    string `db:"hall_name" json:"hall_name"`
	Location    string `db:"location" json:"location"`
}

// SeatingSummary reports the outcome of one generation run.
type SeatingSummary struct {
	Count     int      `json:"count"`
	HallsUsed []string `json:"halls_used"`
	Skipped   int      `json:"skipped"`
}
