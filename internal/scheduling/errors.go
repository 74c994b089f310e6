package scheduling

// Error represents a domain error raised by the appointment store. The values are
// comparable sentinels, so callers can match them with errors.Is.
type Error string

const (
	ErrAppointmentNotFound     Error = "appointment not found"
	ErrPatientNotFound         Error = "patient not found"
	ErrCapacityExceeded        Error = "daily appointment capacity reached"
	ErrDuplicatePatientBooking Error = "patient already has an appointment on this date"
	ErrSlotTaken               Error = "chosen time slot is already taken"

	// errOrderConflict signals that a concurrent creation consumed the computed order
	// number; the store retries, it never reaches callers.
	errOrderConflict Error = "order number already taken"
)

func (e Error) Error() string {
	return string(e)
}
