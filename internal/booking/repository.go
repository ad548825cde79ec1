package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrInvalidRange = errors.New("invalid slot time range")

	// ErrSlotUnavailable means the target slot was not free at the moment of
	// the conditional write. The caller should refresh availability and pick
	// another slot; the engine never retries on its own.
	ErrSlotUnavailable = errors.New("slot is not available")

	// ErrSlotConflict means a slot could not be deleted because it is held or
	// booked by a live appointment.
	ErrSlotConflict = errors.New("slot has a live appointment")

	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyInTargetState marks an idempotent retry: the record is already
	// where the caller asked it to go. It is returned together with the
	// current record and is a benign no-op, not a failure.
	ErrAlreadyInTargetState = errors.New("already in target state")

	ErrNotAllowed = errors.New("caller is not allowed to perform this action")
)

// RescheduleError reports a reschedule saga that could not complete. The
// OldCancelled flag tells the caller whether their original appointment
// survived; under the claim-then-free policy it is false whenever the new
// slot raced away.
type RescheduleError struct {
	OldCancelled bool
	Err          error
}

func (e *RescheduleError) Error() string {
	return "reschedule failed: " + e.Err.Error()
}

func (e *RescheduleError) Unwrap() error { return e.Err }

// Transition describes one guarded state change: a compare-and-set on the
// appointment row, optionally paired with a compare-and-set on its slot, plus
// a change-feed record, all applied as a single atomic unit.
type Transition struct {
	AppointmentID uuid.UUID
	From          []AppointmentStatus
	To            AppointmentStatus
	SlotFrom      []SlotStatus // empty means the slot is left untouched
	SlotTo        SlotStatus
	CancelReason  *string
	EventType     string
}

// Repository contains all store interactions needed by the engine. ReserveSlot
// and TransitionAppointment are the only mutators of slot state; both are
// atomic, so exactly one of any set of racing callers wins.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	CreateSlot(ctx context.Context, slot Slot) (*Slot, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListFreeSlots(ctx context.Context, f SlotFilter) ([]Slot, error)
	DeleteFreeSlot(ctx context.Context, id uuid.UUID) error

	// ReserveSlot atomically moves a free slot to held and creates the
	// requested appointment that owns the hold. When the slot is already held
	// or booked by the same patient's live appointment, that appointment is
	// returned with ErrAlreadyInTargetState so retries are no-ops.
	ReserveSlot(ctx context.Context, slotID, patientID uuid.UUID, reason *string) (*Appointment, error)

	// TransitionAppointment applies t. On a missed compare-and-set it returns
	// the current record with ErrAlreadyInTargetState when the appointment is
	// already in t.To, and ErrInvalidTransition otherwise.
	TransitionAppointment(ctx context.Context, t Transition) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)

	InsertNotification(ctx context.Context, n NotificationEvent) error
	ListPendingNotifications(ctx context.Context, limit int) ([]NotificationEvent, error)
	MarkNotification(ctx context.Context, id uuid.UUID, status NotificationStatus) error

	// ListChangeEvents serves the poll side of the change feed: events with
	// id greater than afterID, oldest first.
	ListChangeEvents(ctx context.Context, afterID int64, limit int) ([]ChangeEvent, error)
}
