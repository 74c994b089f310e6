// Package scheduling contains handlers, services and structures used to manage the
// clinic's daily appointment queue.
package scheduling

import (
	"clinic-backend/internal/apierrors"
	"clinic-backend/internal/database"
	"clinic-backend/internal/settings"
	"context"
	"errors"
	"fmt"
	"time"
)

// avgExaminationMinutes is the average examination time reported by the capacity summary.
const avgExaminationMinutes = 30

// Reader determines the methods available to read the appointment queue.
type Reader interface {

	// ListAppointments returns a page of appointments matching the given filter.
	ListAppointments(ctx context.Context, filter Filter) (*Page, error)

	// GetAppointmentsForDate returns the appointments of the given date, ordered by
	// order number.
	GetAppointmentsForDate(ctx context.Context, date time.Time) ([]*Appointment, error)

	// GetAppointment returns the appointment with the given id.
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)

	// GetCapacitySummary reports the occupancy of the given date against the configured
	// daily capacity.
	GetCapacitySummary(ctx context.Context, date time.Time) (*CapacitySummary, error)
}

// Writer determines the methods available to change the appointment queue.
type Writer interface {

	// CreateAppointment books a new appointment in waiting status.
	CreateAppointment(ctx context.Context, request CreateRequest) (*Appointment, error)

	// UpdateAppointment applies a partial update to an existing appointment.
	UpdateAppointment(ctx context.Context, id int64, request UpdateRequest) (*Appointment, error)

	// CancelAppointment sets the appointment status to cancelled.
	CancelAppointment(ctx context.Context, id int64) (*Appointment, error)
}

// Service determines the methods used to manage the appointment queue.
type Service interface {
	Reader
	Writer
}

type defaultService struct {
	repository Repository
	settings   settings.Repository
	now        func() time.Time
}

// NewService creates a new scheduling service.
func NewService(dbConn database.Connection) Service {
	return &defaultService{
		repository: newRepository(dbConn),
		settings:   settings.NewRepository(dbConn),
		now:        time.Now,
	}
}

// wrapUnexpected wraps storage failures, leaving domain errors untouched so the boundary
// can render them distinctly.
func wrapUnexpected(err error) error {
	var domainErr Error
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("an unexpected error occurred: %w", err)
}

// startOfDay truncates the given instant to its calendar date.
func startOfDay(instant time.Time) time.Time {
	return time.Date(instant.Year(), instant.Month(), instant.Day(), 0, 0, 0, 0, instant.Location())
}

// normalizeTime completes HH:MM times with the seconds the storage format carries.
func normalizeTime(timeOfDay *string) *string {
	if timeOfDay == nil {
		return nil
	}
	if len(*timeOfDay) == len("15:04") {
		normalized := *timeOfDay + ":00"
		return &normalized
	}
	return timeOfDay
}

func (d defaultService) ListAppointments(ctx context.Context, filter Filter) (*Page, error) {
	filter.normalize()
	appointments, total, err := d.repository.FindAll(ctx, filter)
	if err != nil {
		return nil, wrapUnexpected(err)
	}
	totalPages := (total + int64(filter.Limit) - 1) / int64(filter.Limit)
	return &Page{
		Data: appointments,
		Pagination: Pagination{
			Total:      total,
			Page:       filter.Page,
			Limit:      filter.Limit,
			TotalPages: totalPages,
		},
	}, nil
}

func (d defaultService) GetAppointmentsForDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	appointments, err := d.repository.FindByDate(ctx, date)
	if err != nil {
		return nil, wrapUnexpected(err)
	}
	return appointments, nil
}

func (d defaultService) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	appointment, err := d.repository.FindByID(ctx, id)
	if err != nil {
		return nil, wrapUnexpected(err)
	}
	return appointment, nil
}

func (d defaultService) GetCapacitySummary(ctx context.Context, date time.Time) (*CapacitySummary, error) {
	maxPatients, err := d.settings.MaxPatientsPerDay(ctx)
	if err != nil {
		return nil, wrapUnexpected(err)
	}
	currentCount, err := d.repository.CountForDate(ctx, date)
	if err != nil {
		return nil, wrapUnexpected(err)
	}
	remaining := maxPatients - currentCount
	if remaining < 0 {
		// the limit may have been lowered after bookings were made
		remaining = 0
	}
	return &CapacitySummary{
		Date:                  date.Format(DateLayout),
		MaxPatientsPerDay:     maxPatients,
		CurrentCount:          currentCount,
		RemainingSlots:        remaining,
		AvgExaminationMinutes: avgExaminationMinutes,
	}, nil
}

func (d defaultService) CreateAppointment(ctx context.Context, request CreateRequest) (*Appointment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	date, err := time.Parse(DateLayout, request.Date)
	if err != nil {
		return nil, apierrors.NewValidationError("appointment_date", "invalid date - e.g. 2025-06-01")
	}
	if date.Before(startOfDay(d.now().UTC())) {
		return nil, apierrors.NewValidationError("appointment_date", "must not be before today")
	}
	appointment := Appointment{
		PatientID: request.PatientID,
		Date:      date,
		Time:      normalizeTime(request.Time),
		Status:    StatusWaiting,
		Notes:     request.Notes,
	}
	created, err := d.repository.Insert(ctx, appointment)
	if err != nil {
		return nil, wrapUnexpected(err)
	}
	return created, nil
}

func (d defaultService) UpdateAppointment(ctx context.Context, id int64, request UpdateRequest) (*Appointment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	changes := UpdateChanges{
		Time:   normalizeTime(request.Time),
		Status: request.Status,
		Notes:  request.Notes,
	}
	if request.Date != nil {
		date, err := time.Parse(DateLayout, *request.Date)
		if err != nil {
			return nil, apierrors.NewValidationError("appointment_date", "invalid date - e.g. 2025-06-01")
		}
		if date.Before(startOfDay(d.now().UTC())) {
			return nil, apierrors.NewValidationError("appointment_date", "must not be before today")
		}
		changes.Date = &date
	}
	updated, err := d.repository.Update(ctx, id, changes)
	if err != nil {
		return nil, wrapUnexpected(err)
	}
	return updated, nil
}

func (d defaultService) CancelAppointment(ctx context.Context, id int64) (*Appointment, error) {
	cancelled, err := d.repository.Cancel(ctx, id)
	if err != nil {
		return nil, wrapUnexpected(err)
	}
	return cancelled, nil
}
