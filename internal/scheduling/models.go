package scheduling

import (
	"clinic-backend/internal/apierrors"
	"regexp"
	"time"
)

// DateLayout is the wire format used for appointment dates.
const DateLayout = "2006-01-02"

// timePattern accepts HH:MM and HH:MM:SS times of day.
var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)(:([0-5]\d))?$`)

// Status represents the current state of an appointment in the daily queue.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// ParseStatus parses the given value into a valid Status.
func ParseStatus(value string) (Status, error) {
	switch status := Status(value); status {
	case StatusWaiting, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return status, nil
	}
	return "", apierrors.NewValidationError("status", "unknown status")
}

// Appointment represents one scheduled visit. The patient fields are filled only by the
// queries that join the patients table.
type Appointment struct {
	ID           int64     `json:"id" dbfield:"id"`
	PatientID    int64     `json:"patient_id" dbfield:"patient_id"`
	PatientName  string    `json:"patient_name,omitempty" dbfield:"patient_name"`
	PatientPhone string    `json:"patient_phone,omitempty" dbfield:"patient_phone"`
	Date         time.Time `json:"appointment_date" dbfield:"appointment_date"`
	Time         *string   `json:"appointment_time" dbfield:"appointment_time"`
	OrderNumber  int32     `json:"order_number" dbfield:"order_number"`
	Status       Status    `json:"status" dbfield:"status"`
	Notes        *string   `json:"notes" dbfield:"notes"`
	CreatedAt    time.Time `json:"created_at" dbfield:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dbfield:"updated_at"`
}

// CreateRequest is the payload accepted to book a new appointment.
type CreateRequest struct {
	PatientID int64   `json:"patient_id"`
	Date      string  `json:"appointment_date"`
	Time      *string `json:"appointment_time,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// Validate checks if the given request is valid.
func (c CreateRequest) Validate() error {
	if c.PatientID <= 0 {
		return apierrors.NewValidationError("patient_id", "required")
	}
	if c.Date == "" {
		return apierrors.NewValidationError("appointment_date", "required")
	}
	if _, err := time.Parse(DateLayout, c.Date); err != nil {
		return apierrors.NewValidationError("appointment_date", "invalid date - e.g. 2025-06-01")
	}
	if c.Time != nil && !timePattern.MatchString(*c.Time) {
		return apierrors.NewValidationError("appointment_time", "invalid time - e.g. 09:30:00")
	}
	return nil
}

// UpdateRequest is the partial payload accepted to change an appointment. Absent fields
// keep their current values.
type UpdateRequest struct {
	Date   *string `json:"appointment_date,omitempty"`
	Time   *string `json:"appointment_time,omitempty"`
	Status *Status `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// Validate checks if the given request is valid.
func (u UpdateRequest) Validate() error {
	if u.Date == nil && u.Time == nil && u.Status == nil && u.Notes == nil {
		return apierrors.NewValidationError("body", "at least one field must be given")
	}
	if u.Date != nil {
		if _, err := time.Parse(DateLayout, *u.Date); err != nil {
			return apierrors.NewValidationError("appointment_date", "invalid date - e.g. 2025-06-01")
		}
	}
	if u.Time != nil && !timePattern.MatchString(*u.Time) {
		return apierrors.NewValidationError("appointment_time", "invalid time - e.g. 09:30:00")
	}
	if u.Status != nil {
		if _, err := ParseStatus(string(*u.Status)); err != nil {
			return err
		}
	}
	return nil
}

// UpdateChanges carries the parsed partial update handed to the repository. Nil fields
// are left unchanged.
type UpdateChanges struct {
	Date   *time.Time
	Time   *string
	Status *Status
	Notes  *string
}

// Filter selects the appointments returned by listing queries. The conditions are
// AND-combined; pagination is offset based and 1-indexed.
type Filter struct {
	Date      *time.Time
	Status    *Status
	PatientID *int64
	Page      int
	Limit     int
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// normalize applies the default pagination values and bounds the page size.
func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = defaultPage
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
}

// Pagination describes the position of a page inside the filtered set.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

// Page is a single page of appointments.
type Page struct {
	Data       []*Appointment `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// CapacitySummary reports the occupancy of a single calendar date.
type CapacitySummary struct {
	Date                  string `json:"date"`
	MaxPatientsPerDay     int    `json:"max_patients_per_day"`
	CurrentCount          int    `json:"current_count"`
	RemainingSlots        int    `json:"remaining_slots"`
	AvgExaminationMinutes int    `json:"avg_examination_minutes"`
}
