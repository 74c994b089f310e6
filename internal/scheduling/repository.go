package scheduling

import (
	"clinic-backend/internal/database"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	findAppointmentByIDQuery = "SELECT a.id, a.patient_id, a.appointment_date, a.appointment_time, a.order_number, a.status, a.notes, a.created_at, a.updated_at, p.full_name as patient_name, p.phone as patient_phone FROM appointment_lists a JOIN patients p ON p.id = a.patient_id WHERE a.id = $1"

	listAppointmentsByDateQuery = "SELECT a.id, a.patient_id, a.appointment_date, a.appointment_time, a.order_number, a.status, a.notes, a.created_at, a.updated_at, p.full_name as patient_name, p.phone as patient_phone FROM appointment_lists a JOIN patients p ON p.id = a.patient_id WHERE a.appointment_date = $1 ORDER BY a.order_number"

	listAppointmentsBaseQuery = "SELECT a.id, a.patient_id, a.appointment_date, a.appointment_time, a.order_number, a.status, a.notes, a.created_at, a.updated_at, p.full_name as patient_name, p.phone as patient_phone FROM appointment_lists a JOIN patients p ON p.id = a.patient_id"

	countAppointmentsBaseQuery = "SELECT COUNT(*) FROM appointment_lists a JOIN patients p ON p.id = a.patient_id"

	countAppointmentsForDateQuery = "SELECT COUNT(*) FROM appointment_lists WHERE appointment_date = $1"

	// The order number is computed by the insert statement itself; the unique index on
	// (appointment_date, order_number) is the serialization point for concurrent creations.
	insertAppointmentQuery = "INSERT INTO appointment_lists (patient_id, appointment_date, appointment_time, order_number, status, notes) VALUES ($1, $2, $3, (SELECT COALESCE(MAX(order_number), 0) + 1 FROM appointment_lists WHERE appointment_date = $2), $4, $5) RETURNING id, patient_id, appointment_date, appointment_time, order_number, status, notes, created_at, updated_at"

	// Moving an appointment to another date re-enqueues it there, so the order number is
	// recomputed for the new date; updates that keep the date keep the order number.
	updateAppointmentQuery = "UPDATE appointment_lists SET appointment_date = COALESCE($1::date, appointment_date), appointment_time = COALESCE($2, appointment_time), status = COALESCE($3, status), notes = COALESCE($4, notes), order_number = CASE WHEN $1::date IS NULL OR $1::date = appointment_date THEN order_number ELSE (SELECT COALESCE(MAX(order_number), 0) + 1 FROM appointment_lists WHERE appointment_date = $1::date) END, updated_at = NOW() WHERE id = $5 RETURNING id, patient_id, appointment_date, appointment_time, order_number, status, notes, created_at, updated_at"

	cancelAppointmentQuery = "UPDATE appointment_lists SET status = 'cancelled', updated_at = NOW() WHERE id = $1 RETURNING id, patient_id, appointment_date, appointment_time, order_number, status, notes, created_at, updated_at"
)

// Constraints declared by the migrations; their names drive the error translation.
const (
	uqPatientDateConstraint = "appointment_lists_patient_id_appointment_date_key"
	uqDateTimeConstraint    = "appointment_lists_appointment_date_appointment_time_key"
	uqDateOrderConstraint   = "appointment_lists_appointment_date_order_number_key"
	fkPatientConstraint     = "appointment_lists_patient_id_fkey"
)

// insertMaxAttempts bounds the retries performed when a concurrent writer takes the
// computed order number.
const insertMaxAttempts = 3

// Repository is the authoritative store of appointment records.
type Repository interface {

	// FindByID finds an appointment by its id, failing with ErrAppointmentNotFound if absent.
	FindByID(ctx context.Context, id int64) (*Appointment, error)

	// FindByDate lists the appointments of the given date ordered by order number.
	FindByDate(ctx context.Context, date time.Time) ([]*Appointment, error)

	// FindAll lists the appointments matching the given filter and the total of the filtered set.
	FindAll(ctx context.Context, filter Filter) ([]*Appointment, int64, error)

	// CountForDate counts the appointments of the given date, regardless of status.
	CountForDate(ctx context.Context, date time.Time) (int, error)

	// Insert persists a new appointment, assigning its per-day order number.
	Insert(ctx context.Context, appointment Appointment) (*Appointment, error)

	// Update applies the given partial changes, failing with ErrAppointmentNotFound if absent.
	Update(ctx context.Context, id int64, changes UpdateChanges) (*Appointment, error)

	// Cancel sets the appointment status to cancelled. Cancelling an already cancelled
	// appointment succeeds and re-confirms the cancelled state.
	Cancel(ctx context.Context, id int64) (*Appointment, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

// NewRepository creates a new Repository.
func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

// translateError maps constraint violations reported by the store into domain errors, so
// callers never inspect raw storage codes.
func translateError(err error) error {
	violation, isViolation := database.AsViolation(err)
	if !isViolation {
		return err
	}
	switch violation.Kind {
	case database.RaisedException:
		return ErrCapacityExceeded
	case database.UniqueViolation:
		switch violation.Constraint {
		case uqPatientDateConstraint:
			return ErrDuplicatePatientBooking
		case uqDateTimeConstraint:
			return ErrSlotTaken
		case uqDateOrderConstraint:
			return errOrderConflict
		}
	case database.ForeignKeyViolation:
		if violation.Constraint == fkPatientConstraint {
			return ErrPatientNotFound
		}
	}
	return err
}

func (d defaultRepository) FindByID(ctx context.Context, id int64) (*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 1)
	params[0] = id
	rows, err := d.dbConn.DB().QueryContext(ctx, findAppointmentByIDQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointment := new(Appointment)
	for rows.Next() {
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		if appointment.ID > 0 {
			return appointment, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (d defaultRepository) FindByDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 1)
	params[0] = date.Format(DateLayout)
	rows, err := d.dbConn.DB().QueryContext(ctx, listAppointmentsByDateQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointments := make([]*Appointment, 0)
	for rows.Next() {
		appointment := new(Appointment)
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, nil
}

// buildFilterClause translates the filter into an AND-combined WHERE clause with its
// positional parameters.
func buildFilterClause(filter Filter) (string, []interface{}) {
	conditions := make([]string, 0, 3)
	params := make([]interface{}, 0, 3)
	if filter.Date != nil {
		params = append(params, filter.Date.Format(DateLayout))
		conditions = append(conditions, fmt.Sprintf("a.appointment_date = $%d", len(params)))
	}
	if filter.Status != nil {
		params = append(params, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(params)))
	}
	if filter.PatientID != nil {
		params = append(params, *filter.PatientID)
		conditions = append(conditions, fmt.Sprintf("a.patient_id = $%d", len(params)))
	}
	if len(conditions) == 0 {
		return "", params
	}
	return " WHERE " + strings.Join(conditions, " AND "), params
}

func (d defaultRepository) FindAll(ctx context.Context, filter Filter) ([]*Appointment, int64, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	clause, params := buildFilterClause(filter)
	countParams := make([]interface{}, len(params))
	copy(countParams, params)

	listQuery := listAppointmentsBaseQuery + clause + fmt.Sprintf(" ORDER BY a.appointment_date, a.order_number LIMIT $%d OFFSET $%d", len(params)+1, len(params)+2)
	params = append(params, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := d.dbConn.DB().QueryContext(ctx, listQuery, params...)
	if err != nil {
		return nil, 0, err
	}
	defer database.CloseRows(rows)
	appointments := make([]*Appointment, 0)
	for rows.Next() {
		appointment := new(Appointment)
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, 0, err
		}
		appointments = append(appointments, appointment)
	}

	countRow := d.dbConn.DB().QueryRowContext(ctx, countAppointmentsBaseQuery+clause, countParams...)
	if countRow.Err() != nil {
		return nil, 0, countRow.Err()
	}
	total := new(int64)
	if err = countRow.Scan(total); err != nil {
		return nil, 0, err
	}
	return appointments, *total, nil
}

func (d defaultRepository) CountForDate(ctx context.Context, date time.Time) (int, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 1)
	params[0] = date.Format(DateLayout)
	row := d.dbConn.DB().QueryRowContext(ctx, countAppointmentsForDateQuery, params...)
	if row.Err() != nil {
		return 0, row.Err()
	}
	count := new(int)
	if err := row.Scan(count); err != nil {
		return 0, err
	}
	return *count, nil
}

func (d defaultRepository) Insert(ctx context.Context, appointment Appointment) (*Appointment, error) {
	var lastErr error
	for attempt := 0; attempt < insertMaxAttempts; attempt++ {
		created, err := d.insertOnce(ctx, appointment)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, errOrderConflict) {
			return nil, err
		}
		// a concurrent creation consumed the order number, compute the next one
		lastErr = err
	}
	return nil, fmt.Errorf("could not assign an order number: %w", lastErr)
}

func (d defaultRepository) insertOnce(ctx context.Context, appointment Appointment) (*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 5)
	params[0] = appointment.PatientID
	params[1] = appointment.Date.Format(DateLayout)
	params[2] = appointment.Time
	params[3] = string(appointment.Status)
	params[4] = appointment.Notes
	rows, err := d.dbConn.DB().QueryContext(ctx, insertAppointmentQuery, params...)
	if err != nil {
		return nil, translateError(err)
	}
	defer database.CloseRows(rows)
	created := new(Appointment)
	for rows.Next() {
		if err = database.TransformRow(rows, created); err != nil {
			return nil, translateError(err)
		}
		if created.ID > 0 {
			return created, nil
		}
	}
	if err = rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return nil, fmt.Errorf("appointment not inserted")
}

func (d defaultRepository) Update(ctx context.Context, id int64, changes UpdateChanges) (*Appointment, error) {
	var lastErr error
	for attempt := 0; attempt < insertMaxAttempts; attempt++ {
		updated, err := d.updateOnce(ctx, id, changes)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, errOrderConflict) {
			return nil, err
		}
		// a concurrent creation on the target date consumed the order number
		lastErr = err
	}
	return nil, fmt.Errorf("could not assign an order number: %w", lastErr)
}

func (d defaultRepository) updateOnce(ctx context.Context, id int64, changes UpdateChanges) (*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 5)
	if changes.Date != nil {
		params[0] = changes.Date.Format(DateLayout)
	}
	params[1] = changes.Time
	if changes.Status != nil {
		params[2] = string(*changes.Status)
	}
	params[3] = changes.Notes
	params[4] = id
	rows, err := d.dbConn.DB().QueryContext(ctx, updateAppointmentQuery, params...)
	if err != nil {
		return nil, translateError(err)
	}
	defer database.CloseRows(rows)
	updated := new(Appointment)
	for rows.Next() {
		if err = database.TransformRow(rows, updated); err != nil {
			return nil, translateError(err)
		}
		if updated.ID > 0 {
			return updated, nil
		}
	}
	if err = rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return nil, ErrAppointmentNotFound
}

func (d defaultRepository) Cancel(ctx context.Context, id int64) (*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 1)
	params[0] = id
	rows, err := d.dbConn.DB().QueryContext(ctx, cancelAppointmentQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	cancelled := new(Appointment)
	for rows.Next() {
		if err = database.TransformRow(rows, cancelled); err != nil {
			return nil, err
		}
		if cancelled.ID > 0 {
			return cancelled, nil
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return nil, ErrAppointmentNotFound
}
