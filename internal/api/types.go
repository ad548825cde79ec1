package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateSlotRequest struct {
	ProviderID string    `json:"provider_id"`
	GroupID    string    `json:"group_id,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

type SlotResponse struct {
	ID         uuid.UUID  `json:"id"`
	ProviderID uuid.UUID  `json:"provider_id"`
	GroupID    *uuid.UUID `json:"group_id,omitempty"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Status     string     `json:"status"`
}

type SlotListResponse struct {
	Slots      []SlotResponse `json:"slots"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID  string `json:"patient_id"`
	ProviderID string `json:"provider_id"`
	GroupID    string `json:"group_id,omitempty"`
	SlotID     string `json:"slot_id"`
	Reason     string `json:"reason,omitempty"`
}

type DecisionRequest struct {
	Decision string `json:"decision"` // confirm | decline
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type RescheduleRequest struct {
	NewSlotID string `json:"new_slot_id"`
}

type OutcomeRequest struct {
	Outcome string `json:"outcome"` // completed | no_show
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	ProviderID   uuid.UUID  `json:"provider_id"`
	GroupID      *uuid.UUID `json:"group_id,omitempty"`
	SlotID       uuid.UUID  `json:"slot_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Status       string     `json:"status"`
	Reason       *string    `json:"reason,omitempty"`
	CancelReason *string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type ChangeEventResponse struct {
	ID            int64           `json:"id"`
	EventType     string          `json:"event_type"`
	AppointmentID uuid.UUID       `json:"appointment_id"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ChangeFeedResponse struct {
	Events []ChangeEventResponse `json:"events"`
}

type ErrorResponse struct {
	Error        string `json:"error"`
	Details      string `json:"details,omitempty"`
	OldCancelled *bool  `json:"old_cancelled,omitempty"`
}
