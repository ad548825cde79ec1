package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusRequested AppointmentStatus = "requested"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusDeclined  AppointmentStatus = "declined"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Terminal reports whether no further transition may leave this status.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusDeclined, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type SlotStatus string

const (
	SlotFree   SlotStatus = "free"
	SlotHeld   SlotStatus = "held"
	SlotBooked SlotStatus = "booked"
)

type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
	RoleStaff    Role = "staff"
)

// Actor is the already-authenticated caller of a command. Every command takes
// it explicitly; the engine never looks identity up from ambient state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot is a single bookable time window owned by one provider.
type Slot struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	GroupID    *uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	Status     SlotStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Appointment links a patient to a slot. The slot times are copied onto the
// appointment at creation so the record stays meaningful if the slot is later
// deleted. Appointments are never deleted; status is the only mutation.
type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	ProviderID   uuid.UUID
	GroupID      *uuid.UUID
	SlotID       uuid.UUID
	StartTime    time.Time
	EndTime      time.Time
	Status       AppointmentStatus
	Reason       *string
	CancelReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChangeEvent is the durable change-feed record, written in the same
// transaction as the transition it describes.
type ChangeEvent struct {
	ID            int64
	EventType     string
	AppointmentID uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// NotificationEvent is a fire-and-forget record of a lifecycle transition,
// addressed to the party that did not cause it.
type NotificationEvent struct {
	ID            uuid.UUID
	EventType     string
	AppointmentID uuid.UUID
	RecipientID   uuid.UUID
	RecipientRole Role
	Message       string
	Status        NotificationStatus
	CreatedAt     time.Time
	SentAt        *time.Time
}

// Slot listings are always bounded. The bounds are shared with the HTTP layer
// so its cursor decision sees the same effective page size the engine applies.
const (
	DefaultSlotPageSize = 50
	MaxSlotPageSize     = 200
)

// SlotFilter selects free slots for availability display. After is a keyset
// cursor (exclusive) so listings are restartable.
type SlotFilter struct {
	ProviderID *uuid.UUID
	GroupID    *uuid.UUID
	From       time.Time
	To         time.Time
	After      *SlotCursor
	Limit      int
}

// SlotCursor is the (start_time, id) position after which to resume a listing.
type SlotCursor struct {
	StartTime time.Time
	ID        uuid.UUID
}

type AppointmentFilter struct {
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	Statuses   []AppointmentStatus
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
