package booking

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemRepository is a mutex-guarded implementation of Repository. The single
// writer lock gives it the same atomicity the Postgres implementation gets
// from conditional writes, so the engine behaves identically on top of it.
// It backs unit tests and local development without a database.
type InMemRepository struct {
	mu            sync.Mutex
	patients      map[uuid.UUID]Patient
	providers     map[uuid.UUID]Provider
	slots         map[uuid.UUID]Slot
	appointments  map[uuid.UUID]Appointment
	notifications map[uuid.UUID]NotificationEvent
	events        []ChangeEvent
	nextEventID   int64
}

func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		patients:      make(map[uuid.UUID]Patient),
		providers:     make(map[uuid.UUID]Provider),
		slots:         make(map[uuid.UUID]Slot),
		appointments:  make(map[uuid.UUID]Appointment),
		notifications: make(map[uuid.UUID]NotificationEvent),
	}
}

// PutPatient registers a patient for lookup. Used by setup code.
func (r *InMemRepository) PutPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

// PutProvider registers a provider for lookup. Used by setup code.
func (r *InMemRepository) PutProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID] = p
}

func (r *InMemRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *InMemRepository) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (r *InMemRepository) CreateSlot(_ context.Context, slot Slot) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	slot.Status = SlotFree
	slot.CreatedAt = now
	slot.UpdatedAt = now
	r.slots[slot.ID] = slot
	return &slot, nil
}

func (r *InMemRepository) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *InMemRepository) ListFreeSlots(_ context.Context, f SlotFilter) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Slot
	for _, s := range r.slots {
		if s.Status != SlotFree {
			continue
		}
		if s.StartTime.Before(f.From) || !s.StartTime.Before(f.To) {
			continue
		}
		if f.ProviderID != nil && s.ProviderID != *f.ProviderID {
			continue
		}
		if f.GroupID != nil && (s.GroupID == nil || *s.GroupID != *f.GroupID) {
			continue
		}
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.Before(result[j].StartTime)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	if f.After != nil {
		cut := 0
		for cut < len(result) {
			s := result[cut]
			if s.StartTime.After(f.After.StartTime) ||
				(s.StartTime.Equal(f.After.StartTime) && s.ID.String() > f.After.ID.String()) {
				break
			}
			cut++
		}
		result = result[cut:]
	}

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (r *InMemRepository) DeleteFreeSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Status != SlotFree {
		return ErrSlotConflict
	}
	delete(r.slots, id)
	return nil
}

func (r *InMemRepository) ReserveSlot(_ context.Context, slotID, patientID uuid.UUID, reason *string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if slot.Status != SlotFree {
		for _, a := range r.appointments {
			if a.SlotID == slotID && !a.Status.Terminal() && a.PatientID == patientID {
				appt := a
				return &appt, ErrAlreadyInTargetState
			}
		}
		return nil, ErrSlotUnavailable
	}

	now := time.Now()
	slot.Status = SlotHeld
	slot.UpdatedAt = now
	r.slots[slotID] = slot

	appt := Appointment{
		ID:         uuid.New(),
		PatientID:  patientID,
		ProviderID: slot.ProviderID,
		GroupID:    slot.GroupID,
		SlotID:     slot.ID,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		Status:     StatusRequested,
		Reason:     reason,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.appointments[appt.ID] = appt

	r.appendEvent(EventAppointmentRequested, appt.ID, map[string]any{
		"slot_id":    slot.ID.String(),
		"patient_id": patientID.String(),
	})
	return &appt, nil
}

func (r *InMemRepository) TransitionAppointment(_ context.Context, t Transition) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[t.AppointmentID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	allowed := false
	for _, from := range t.From {
		if appt.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		if appt.Status == t.To {
			current := appt
			return &current, ErrAlreadyInTargetState
		}
		return nil, ErrInvalidTransition
	}

	if len(t.SlotFrom) > 0 {
		slot, ok := r.slots[appt.SlotID]
		if !ok {
			return nil, ErrInvalidTransition
		}
		slotAllowed := false
		for _, from := range t.SlotFrom {
			if slot.Status == from {
				slotAllowed = true
				break
			}
		}
		if !slotAllowed {
			return nil, ErrInvalidTransition
		}
		slot.Status = t.SlotTo
		slot.UpdatedAt = time.Now()
		r.slots[appt.SlotID] = slot
	}

	appt.Status = t.To
	if t.CancelReason != nil {
		appt.CancelReason = t.CancelReason
	}
	appt.UpdatedAt = time.Now()
	r.appointments[appt.ID] = appt

	r.appendEvent(t.EventType, appt.ID, map[string]any{
		"to":      string(t.To),
		"slot_id": appt.SlotID.String(),
	})
	result := appt
	return &result, nil
}

func (r *InMemRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *InMemRepository) ListAppointments(_ context.Context, f AppointmentFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.ProviderID != nil && a.ProviderID != *f.ProviderID {
			continue
		}
		if len(f.Statuses) > 0 {
			match := false
			for _, st := range f.Statuses {
				if a.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if f.From != nil && a.StartTime.Before(*f.From) {
			continue
		}
		if f.To != nil && !a.StartTime.Before(*f.To) {
			continue
		}
		result = append(result, a)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.Before(result[j].StartTime)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return nil, nil
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (r *InMemRepository) InsertNotification(_ context.Context, n NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[n.ID] = n
	return nil
}

func (r *InMemRepository) ListPendingNotifications(_ context.Context, limit int) ([]NotificationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []NotificationEvent
	for _, n := range r.notifications {
		if n.Status == NotificationPending {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *InMemRepository) MarkNotification(_ context.Context, id uuid.UUID, status NotificationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil
	}
	n.Status = status
	if status == NotificationSent {
		now := time.Now()
		n.SentAt = &now
	}
	r.notifications[id] = n
	return nil
}

func (r *InMemRepository) ListChangeEvents(_ context.Context, afterID int64, limit int) ([]ChangeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []ChangeEvent
	for _, ev := range r.events {
		if ev.ID > afterID {
			result = append(result, ev)
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *InMemRepository) appendEvent(eventType string, appointmentID uuid.UUID, payload map[string]any) {
	data, _ := json.Marshal(payload)
	r.nextEventID++
	r.events = append(r.events, ChangeEvent{
		ID:            r.nextEventID,
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     time.Now(),
	})
}
