package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbook/booking-engine/internal/config"
	redisclient "github.com/clinicbook/booking-engine/internal/redis"
)

const (
	EventAppointmentRequested   = "APPOINTMENT_REQUESTED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentDeclined    = "APPOINTMENT_DECLINED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow      = "APPOINTMENT_NO_SHOW"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
)

type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionDecline Decision = "decline"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoShow    Outcome = "no_show"
)

type RequestInput struct {
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	GroupID    *uuid.UUID
	SlotID     uuid.UUID
	Reason     *string
}

// Service is the appointment engine: it validates preconditions, funnels every
// slot/appointment mutation through the guarded repository operations, and
// emits a notification after each committed transition.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier
	feed     Feed
	cfg      config.Config
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, feed Feed, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		feed:     feed,
		cfg:      cfg,
		log:      log.With().Str("component", "engine").Logger(),
		now:      time.Now,
	}
}

func canActForPatient(actor Actor, patientID uuid.UUID) bool {
	return actor.Role == RoleStaff || (actor.Role == RolePatient && actor.ID == patientID)
}

func canActForProvider(actor Actor, providerID uuid.UUID) bool {
	return actor.Role == RoleStaff || (actor.Role == RoleProvider && actor.ID == providerID)
}

// CreateSlot opens a new bookable window for a provider.
func (s *Service) CreateSlot(ctx context.Context, actor Actor, providerID uuid.UUID, groupID *uuid.UUID, start, end time.Time) (*Slot, error) {
	if !canActForProvider(actor, providerID) {
		return nil, ErrNotAllowed
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start %s is not before end %s: %w", start, end, ErrInvalidRange)
	}
	if start.Before(s.now()) {
		return nil, fmt.Errorf("slot starts in the past: %w", ErrInvalidRange)
	}
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		return nil, err
	}

	slot := Slot{
		ID:         uuid.New(),
		ProviderID: providerID,
		GroupID:    groupID,
		StartTime:  start,
		EndTime:    end,
	}
	created, err := s.repo.CreateSlot(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return created, nil
}

// DeleteSlot removes a slot that has no live appointment.
func (s *Service) DeleteSlot(ctx context.Context, actor Actor, slotID uuid.UUID) error {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return err
	}
	if !canActForProvider(actor, slot.ProviderID) {
		return ErrNotAllowed
	}
	return s.repo.DeleteFreeSlot(ctx, slotID)
}

// ListFreeSlots returns open availability ordered by (start_time, id).
func (s *Service) ListFreeSlots(ctx context.Context, f SlotFilter) ([]Slot, error) {
	if f.ProviderID == nil && f.GroupID == nil {
		return nil, fmt.Errorf("a provider or group filter is required: %w", ErrInvalidRange)
	}
	if f.From.IsZero() {
		f.From = s.now()
	}
	if f.To.IsZero() {
		f.To = f.From.AddDate(0, 0, 30)
	}
	if !f.From.Before(f.To) {
		return nil, fmt.Errorf("empty date range: %w", ErrInvalidRange)
	}
	if f.Limit <= 0 {
		f.Limit = DefaultSlotPageSize
	}
	if f.Limit > MaxSlotPageSize {
		f.Limit = MaxSlotPageSize
	}
	return s.repo.ListFreeSlots(ctx, f)
}

// Request claims a free slot for a patient. Exactly one of any set of racing
// callers gets the appointment; the rest get ErrSlotUnavailable. A retry by
// the patient already holding the slot returns the existing appointment with
// ErrAlreadyInTargetState.
func (s *Service) Request(ctx context.Context, actor Actor, in RequestInput) (*Appointment, error) {
	if !canActForPatient(actor, in.PatientID) {
		return nil, ErrNotAllowed
	}
	if _, err := s.repo.GetPatientByID(ctx, in.PatientID); err != nil {
		return nil, err
	}

	slot, err := s.repo.GetSlotByID(ctx, in.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.ProviderID != in.ProviderID {
		return nil, fmt.Errorf("slot %s does not belong to provider %s: %w", in.SlotID, in.ProviderID, ErrSlotNotFound)
	}
	if slot.StartTime.Before(s.now()) {
		return nil, ErrSlotUnavailable
	}

	var created *Appointment
	err = s.locker.WithSlotLock(ctx, in.SlotID, func(lockCtx context.Context) error {
		appt, err := s.repo.ReserveSlot(lockCtx, in.SlotID, in.PatientID, in.Reason)
		created = appt
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotUnavailable
		}
		if errors.Is(err, ErrAlreadyInTargetState) {
			return created, ErrAlreadyInTargetState
		}
		return nil, err
	}

	s.emit(ctx, EventAppointmentRequested, created, RoleProvider,
		fmt.Sprintf("New appointment request for %s", created.StartTime.Format(time.RFC1123)))
	return created, nil
}

// Decide applies the provider's confirm/decline decision to a requested
// appointment.
func (s *Service) Decide(ctx context.Context, actor Actor, appointmentID uuid.UUID, decision Decision) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canActForProvider(actor, appt.ProviderID) {
		return nil, ErrNotAllowed
	}

	var t Transition
	switch decision {
	case DecisionConfirm:
		t = Transition{
			AppointmentID: appointmentID,
			From:          []AppointmentStatus{StatusRequested},
			To:            StatusConfirmed,
			SlotFrom:      []SlotStatus{SlotHeld},
			SlotTo:        SlotBooked,
			EventType:     EventAppointmentConfirmed,
		}
	case DecisionDecline:
		t = Transition{
			AppointmentID: appointmentID,
			From:          []AppointmentStatus{StatusRequested},
			To:            StatusDeclined,
			SlotFrom:      []SlotStatus{SlotHeld},
			SlotTo:        SlotFree,
			EventType:     EventAppointmentDeclined,
		}
	default:
		return nil, fmt.Errorf("unknown decision %q: %w", decision, ErrInvalidTransition)
	}

	updated, err := s.repo.TransitionAppointment(ctx, t)
	if err != nil {
		return updated, err
	}

	msg := fmt.Sprintf("Your appointment on %s was confirmed", updated.StartTime.Format(time.RFC1123))
	if decision == DecisionDecline {
		msg = fmt.Sprintf("Your appointment request for %s was declined", updated.StartTime.Format(time.RFC1123))
	}
	s.emit(ctx, t.EventType, updated, RolePatient, msg)
	return updated, nil
}

// Cancel moves a live appointment to cancelled and frees its slot. The window
// closes CancelCutoff before the appointment start.
func (s *Service) Cancel(ctx context.Context, actor Actor, appointmentID uuid.UUID, reason *string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canActForPatient(actor, appt.PatientID) && !canActForProvider(actor, appt.ProviderID) {
		return nil, ErrNotAllowed
	}
	deadline := appt.StartTime.Add(-s.cfg.CancelCutoff)
	if !s.now().Before(deadline) {
		return nil, fmt.Errorf("cancellation window closed at %s: %w", deadline, ErrInvalidTransition)
	}

	updated, err := s.repo.TransitionAppointment(ctx, Transition{
		AppointmentID: appointmentID,
		From:          []AppointmentStatus{StatusRequested, StatusConfirmed},
		To:            StatusCancelled,
		SlotFrom:      []SlotStatus{SlotHeld, SlotBooked},
		SlotTo:        SlotFree,
		CancelReason:  reason,
		EventType:     EventAppointmentCancelled,
	})
	if err != nil {
		return updated, err
	}

	// Notify the party that did not cancel.
	recipient := RolePatient
	if actor.Role == RolePatient {
		recipient = RoleProvider
	}
	s.emit(ctx, EventAppointmentCancelled, updated, recipient,
		fmt.Sprintf("Appointment on %s was cancelled", updated.StartTime.Format(time.RFC1123)))
	return updated, nil
}

// Reschedule is a claim-then-free saga: the new slot is reserved first, and
// only then is the old appointment cancelled. If the new slot races away the
// old appointment is untouched, so the patient is never left without a live
// appointment. The new appointment restarts at requested and needs fresh
// provider confirmation.
func (s *Service) Reschedule(ctx context.Context, actor Actor, appointmentID, newSlotID uuid.UUID) (*Appointment, error) {
	old, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canActForPatient(actor, old.PatientID) && !canActForProvider(actor, old.ProviderID) {
		return nil, ErrNotAllowed
	}
	if old.Status.Terminal() {
		return nil, fmt.Errorf("appointment %s is %s: %w", old.ID, old.Status, ErrInvalidTransition)
	}
	if newSlotID == old.SlotID {
		return nil, fmt.Errorf("reschedule targets the current slot: %w", ErrInvalidRange)
	}
	if _, err := s.repo.GetSlotByID(ctx, newSlotID); err != nil {
		return nil, err
	}

	var created *Appointment
	err = s.locker.WithSlotLock(ctx, newSlotID, func(lockCtx context.Context) error {
		appt, err := s.repo.ReserveSlot(lockCtx, newSlotID, old.PatientID, old.Reason)
		created = appt
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = ErrSlotUnavailable
		}
		if errors.Is(err, ErrAlreadyInTargetState) {
			// The patient already holds the target slot, only the old
			// appointment still needs closing.
			err = nil
		}
	}
	if err != nil {
		return nil, &RescheduleError{OldCancelled: false, Err: err}
	}

	rescheduled := "rescheduled"
	_, err = s.repo.TransitionAppointment(ctx, Transition{
		AppointmentID: old.ID,
		From:          []AppointmentStatus{StatusRequested, StatusConfirmed},
		To:            StatusCancelled,
		SlotFrom:      []SlotStatus{SlotHeld, SlotBooked},
		SlotTo:        SlotFree,
		CancelReason:  &rescheduled,
		EventType:     EventAppointmentCancelled,
	})
	if err != nil && !errors.Is(err, ErrAlreadyInTargetState) {
		// The old appointment raced into a terminal state under us. Release
		// the fresh claim so we do not strand a double hold.
		s.releaseReservation(ctx, created)
		return nil, &RescheduleError{OldCancelled: false, Err: err}
	}

	s.emit(ctx, EventAppointmentRescheduled, created, RoleProvider,
		fmt.Sprintf("Appointment moved to %s, pending confirmation", created.StartTime.Format(time.RFC1123)))
	return created, nil
}

func (s *Service) releaseReservation(ctx context.Context, appt *Appointment) {
	reason := "reschedule compensation"
	_, err := s.repo.TransitionAppointment(ctx, Transition{
		AppointmentID: appt.ID,
		From:          []AppointmentStatus{StatusRequested},
		To:            StatusCancelled,
		SlotFrom:      []SlotStatus{SlotHeld},
		SlotTo:        SlotFree,
		CancelReason:  &reason,
		EventType:     EventAppointmentCancelled,
	})
	if err != nil && !errors.Is(err, ErrAlreadyInTargetState) {
		s.log.Error().
			Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("failed to release reservation after reschedule compensation")
	}
}

// MarkOutcome records the provider's completed/no-show verdict once the
// appointment time has elapsed. The slot keeps its booked state as history.
func (s *Service) MarkOutcome(ctx context.Context, actor Actor, appointmentID uuid.UUID, outcome Outcome) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canActForProvider(actor, appt.ProviderID) {
		return nil, ErrNotAllowed
	}
	if s.now().Before(appt.EndTime) {
		return nil, fmt.Errorf("appointment has not elapsed yet: %w", ErrInvalidTransition)
	}

	var to AppointmentStatus
	var eventType string
	switch outcome {
	case OutcomeCompleted:
		to, eventType = StatusCompleted, EventAppointmentCompleted
	case OutcomeNoShow:
		to, eventType = StatusNoShow, EventAppointmentNoShow
	default:
		return nil, fmt.Errorf("unknown outcome %q: %w", outcome, ErrInvalidTransition)
	}

	updated, err := s.repo.TransitionAppointment(ctx, Transition{
		AppointmentID: appointmentID,
		From:          []AppointmentStatus{StatusConfirmed},
		To:            to,
		EventType:     eventType,
	})
	if err != nil {
		return updated, err
	}

	s.feed.Publish(ctx, eventType, updated.ID)
	return updated, nil
}

// Get returns a single appointment visible to the caller.
func (s *Service) Get(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canActForPatient(actor, appt.PatientID) && !canActForProvider(actor, appt.ProviderID) {
		return nil, ErrNotAllowed
	}
	return appt, nil
}

// ListAppointments returns appointments for a patient or provider. Patients
// only ever see their own.
func (s *Service) ListAppointments(ctx context.Context, actor Actor, f AppointmentFilter) ([]Appointment, error) {
	if actor.Role == RolePatient {
		f.PatientID = &actor.ID
	}
	if f.PatientID == nil && f.ProviderID == nil {
		return nil, fmt.Errorf("a patient or provider filter is required: %w", ErrInvalidRange)
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.ListAppointments(ctx, f)
}

// ChangeFeed returns committed transitions after the given feed position,
// oldest first, for subscribers that poll instead of listening on Redis.
func (s *Service) ChangeFeed(ctx context.Context, afterID int64, limit int) ([]ChangeEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.repo.ListChangeEvents(ctx, afterID, limit)
}

// emit records the notification and nudges feed subscribers. Both are best
// effort; the durable change event was already committed with the transition.
func (s *Service) emit(ctx context.Context, eventType string, appt *Appointment, recipientRole Role, message string) {
	recipientID := appt.PatientID
	if recipientRole == RoleProvider {
		recipientID = appt.ProviderID
	}
	s.notifier.Emit(ctx, NotificationEvent{
		EventType:     eventType,
		AppointmentID: appt.ID,
		RecipientID:   recipientID,
		RecipientRole: recipientRole,
		Message:       message,
	})
	s.feed.Publish(ctx, eventType, appt.ID)
}
