package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/booking-engine/internal/config"
	redisclient "github.com/clinicbook/booking-engine/internal/redis"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []NotificationEvent
}

func (n *recordingNotifier) Emit(_ context.Context, ev NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) byType(eventType string) []NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []NotificationEvent
	for _, ev := range n.events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type recordingFeed struct {
	mu     sync.Mutex
	events []string
}

func (f *recordingFeed) Publish(_ context.Context, eventType string, _ uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

type fixture struct {
	svc      *Service
	repo     *InMemRepository
	notifier *recordingNotifier
	feed     *recordingFeed
	patient  Patient
	provider Provider
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := NewInMemRepository()
	notifier := &recordingNotifier{}
	feed := &recordingFeed{}
	cfg := config.Config{CancelCutoff: 0}

	svc := NewService(repo, redisclient.NopLocker{}, notifier, feed, cfg, zerolog.Nop())

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	patient := Patient{ID: uuid.New(), Name: "Ada Khan"}
	provider := Provider{ID: uuid.New(), Name: "Dr. Osei"}
	repo.PutPatient(patient)
	repo.PutProvider(provider)

	return &fixture{
		svc:      svc,
		repo:     repo,
		notifier: notifier,
		feed:     feed,
		patient:  patient,
		provider: provider,
		now:      now,
	}
}

func (f *fixture) addSlot(t *testing.T, start, end time.Time) *Slot {
	t.Helper()
	slot, err := f.repo.CreateSlot(context.Background(), Slot{
		ID:         uuid.New(),
		ProviderID: f.provider.ID,
		StartTime:  start,
		EndTime:    end,
	})
	require.NoError(t, err)
	return slot
}

func (f *fixture) futureSlot(t *testing.T) *Slot {
	return f.addSlot(t, f.now.Add(25*time.Hour), f.now.Add(25*time.Hour+15*time.Minute))
}

func (f *fixture) request(t *testing.T, slot *Slot) *Appointment {
	t.Helper()
	appt, err := f.svc.Request(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, RequestInput{
		PatientID:  f.patient.ID,
		ProviderID: f.provider.ID,
		SlotID:     slot.ID,
	})
	require.NoError(t, err)
	return appt
}

func (f *fixture) confirm(t *testing.T, apptID uuid.UUID) *Appointment {
	t.Helper()
	appt, err := f.svc.Decide(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, apptID, DecisionConfirm)
	require.NoError(t, err)
	return appt
}

func (f *fixture) slotStatus(t *testing.T, id uuid.UUID) SlotStatus {
	t.Helper()
	slot, err := f.repo.GetSlotByID(context.Background(), id)
	require.NoError(t, err)
	return slot.Status
}

func TestRequestHoldsFreeSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)

	appt := f.request(t, slot)

	assert.Equal(t, StatusRequested, appt.Status)
	assert.Equal(t, slot.ID, appt.SlotID)
	assert.Equal(t, slot.StartTime, appt.StartTime)
	assert.Equal(t, SlotHeld, f.slotStatus(t, slot.ID))

	notes := f.notifier.byType(EventAppointmentRequested)
	require.Len(t, notes, 1)
	assert.Equal(t, f.provider.ID, notes[0].RecipientID)
	assert.Equal(t, RoleProvider, notes[0].RecipientRole)
}

func TestRequestRaceHasExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)

	const racers = 32
	patients := make([]Patient, racers)
	for i := range patients {
		patients[i] = Patient{ID: uuid.New(), Name: "Racer"}
		f.repo.PutPatient(patients[i])
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	losers := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(p Patient) {
			defer wg.Done()
			_, err := f.svc.Request(context.Background(), Actor{ID: p.ID, Role: RolePatient}, RequestInput{
				PatientID:  p.ID,
				ProviderID: f.provider.ID,
				SlotID:     slot.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case assert.ErrorIs(t, err, ErrSlotUnavailable):
				losers++
			}
		}(patients[i])
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, racers-1, losers)
	assert.Equal(t, SlotHeld, f.slotStatus(t, slot.ID))

	// At most one live appointment references the slot.
	appts, err := f.repo.ListAppointments(context.Background(), AppointmentFilter{ProviderID: &f.provider.ID, Limit: 100})
	require.NoError(t, err)
	live := 0
	for _, a := range appts {
		if a.SlotID == slot.ID && !a.Status.Terminal() {
			live++
		}
	}
	assert.Equal(t, 1, live)
}

func TestRequestRetryByHolderIsNoOp(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)

	again, err := f.svc.Request(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, RequestInput{
		PatientID:  f.patient.ID,
		ProviderID: f.provider.ID,
		SlotID:     slot.ID,
	})
	require.ErrorIs(t, err, ErrAlreadyInTargetState)
	require.NotNil(t, again)
	assert.Equal(t, appt.ID, again.ID)

	// The retry did not emit a second notification.
	assert.Len(t, f.notifier.byType(EventAppointmentRequested), 1)
}

func TestRequestUnknownSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Request(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, RequestInput{
		PatientID:  f.patient.ID,
		ProviderID: f.provider.ID,
		SlotID:     uuid.New(),
	})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestRequestForOtherPatientRejected(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)

	imposter := uuid.New()
	_, err := f.svc.Request(context.Background(), Actor{ID: imposter, Role: RolePatient}, RequestInput{
		PatientID:  f.patient.ID,
		ProviderID: f.provider.ID,
		SlotID:     slot.ID,
	})
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, SlotFree, f.slotStatus(t, slot.ID))
}

func TestConfirmBooksSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)

	confirmed := f.confirm(t, appt.ID)

	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, SlotBooked, f.slotStatus(t, slot.ID))

	notes := f.notifier.byType(EventAppointmentConfirmed)
	require.Len(t, notes, 1)
	assert.Equal(t, f.patient.ID, notes[0].RecipientID)
}

func TestDeclineFreesSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)

	declined, err := f.svc.Decide(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, DecisionDecline)
	require.NoError(t, err)

	assert.Equal(t, StatusDeclined, declined.Status)
	assert.Equal(t, SlotFree, f.slotStatus(t, slot.ID))
}

func TestDecideByPatientRejected(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)

	_, err := f.svc.Decide(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, appt.ID, DecisionConfirm)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestConfirmTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)
	f.confirm(t, appt.ID)

	again, err := f.svc.Decide(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, DecisionConfirm)
	require.ErrorIs(t, err, ErrAlreadyInTargetState)
	require.NotNil(t, again)
	assert.Equal(t, StatusConfirmed, again.Status)
	assert.Equal(t, SlotBooked, f.slotStatus(t, slot.ID))

	// The no-op retry emitted no second notification and no second change event.
	assert.Len(t, f.notifier.byType(EventAppointmentConfirmed), 1)

	events, err := f.repo.ListChangeEvents(context.Background(), 0, 100)
	require.NoError(t, err)
	confirmEvents := 0
	for _, ev := range events {
		if ev.EventType == EventAppointmentConfirmed {
			confirmEvents++
		}
	}
	assert.Equal(t, 1, confirmEvents)
}

func TestConfirmAfterDeclineRejected(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)

	_, err := f.svc.Decide(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, DecisionDecline)
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, DecisionConfirm)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelRequestedFreesSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)

	reason := "can no longer make it"
	cancelled, err := f.svc.Cancel(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, appt.ID, &reason)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, reason, *cancelled.CancelReason)
	assert.Equal(t, SlotFree, f.slotStatus(t, slot.ID))

	// The provider, not the cancelling patient, is notified.
	notes := f.notifier.byType(EventAppointmentCancelled)
	require.Len(t, notes, 1)
	assert.Equal(t, f.provider.ID, notes[0].RecipientID)
}

func TestCancelConfirmedFreesSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)
	f.confirm(t, appt.ID)

	cancelled, err := f.svc.Cancel(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, SlotFree, f.slotStatus(t, slot.ID))

	notes := f.notifier.byType(EventAppointmentCancelled)
	require.Len(t, notes, 1)
	assert.Equal(t, f.patient.ID, notes[0].RecipientID)
}

func TestCancelAfterWindowClosedRejected(t *testing.T) {
	f := newFixture(t)
	slot := f.addSlot(t, f.now.Add(30*time.Minute), f.now.Add(45*time.Minute))
	appt := f.request(t, slot)

	f.svc.cfg.CancelCutoff = time.Hour

	_, err := f.svc.Cancel(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, appt.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, SlotHeld, f.slotStatus(t, slot.ID))
}

func TestCancelByStrangerRejected(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)

	_, err := f.svc.Cancel(context.Background(), Actor{ID: uuid.New(), Role: RolePatient}, appt.ID, nil)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestMarkOutcome(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)
	f.confirm(t, appt.ID)

	// Before the appointment elapses the outcome is rejected.
	_, err := f.svc.MarkOutcome(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, OutcomeCompleted)
	require.ErrorIs(t, err, ErrInvalidTransition)

	f.svc.now = func() time.Time { return slot.EndTime.Add(time.Minute) }

	done, err := f.svc.MarkOutcome(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, OutcomeCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	// The slot keeps its booked state as history.
	assert.Equal(t, SlotBooked, f.slotStatus(t, slot.ID))
}

func TestMarkNoShowRequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)

	f.svc.now = func() time.Time { return slot.EndTime.Add(time.Minute) }

	_, err := f.svc.MarkOutcome(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, OutcomeNoShow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTerminalStatesAcceptNoEvent(t *testing.T) {
	f := newFixture(t)
	provider := Actor{ID: f.provider.ID, Role: RoleProvider}
	patient := Actor{ID: f.patient.ID, Role: RolePatient}

	terminalFixtures := map[AppointmentStatus]func(t *testing.T) uuid.UUID{
		StatusDeclined: func(t *testing.T) uuid.UUID {
			appt := f.request(t, f.futureSlot(t))
			_, err := f.svc.Decide(context.Background(), provider, appt.ID, DecisionDecline)
			require.NoError(t, err)
			return appt.ID
		},
		StatusCancelled: func(t *testing.T) uuid.UUID {
			appt := f.request(t, f.futureSlot(t))
			_, err := f.svc.Cancel(context.Background(), patient, appt.ID, nil)
			require.NoError(t, err)
			return appt.ID
		},
	}

	for terminal, build := range terminalFixtures {
		id := build(t)

		_, err := f.svc.Decide(context.Background(), provider, id, DecisionConfirm)
		assert.ErrorIs(t, err, ErrInvalidTransition, "confirm out of %s", terminal)

		_, err = f.svc.Cancel(context.Background(), patient, id, nil)
		if terminal == StatusCancelled {
			// Retrying a cancel is a no-op, not a violation.
			assert.ErrorIs(t, err, ErrAlreadyInTargetState, "cancel out of %s", terminal)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "cancel out of %s", terminal)
		}

		_, err = f.svc.Reschedule(context.Background(), patient, id, f.futureSlot(t).ID)
		assert.ErrorIs(t, err, ErrInvalidTransition, "reschedule out of %s", terminal)
	}
}

func TestRescheduleMovesHoldToNewSlot(t *testing.T) {
	f := newFixture(t)
	oldSlot := f.futureSlot(t)
	newSlot := f.addSlot(t, f.now.Add(49*time.Hour), f.now.Add(49*time.Hour+15*time.Minute))

	appt := f.request(t, oldSlot)
	f.confirm(t, appt.ID)

	moved, err := f.svc.Reschedule(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, appt.ID, newSlot.ID)
	require.NoError(t, err)

	// Fresh appointment back at requested, old one closed, old slot released.
	assert.NotEqual(t, appt.ID, moved.ID)
	assert.Equal(t, StatusRequested, moved.Status)
	assert.Equal(t, newSlot.ID, moved.SlotID)
	assert.Equal(t, SlotFree, f.slotStatus(t, oldSlot.ID))
	assert.Equal(t, SlotHeld, f.slotStatus(t, newSlot.ID))

	old, err := f.repo.GetAppointmentByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, old.Status)

	// Exactly one live appointment for the patient after the move.
	appts, err := f.repo.ListAppointments(context.Background(), AppointmentFilter{PatientID: &f.patient.ID, Limit: 100})
	require.NoError(t, err)
	live := 0
	for _, a := range appts {
		if !a.Status.Terminal() {
			live++
		}
	}
	assert.Equal(t, 1, live)
}

func TestRescheduleKeepsOldWhenTargetRacesAway(t *testing.T) {
	f := newFixture(t)
	oldSlot := f.futureSlot(t)
	newSlot := f.addSlot(t, f.now.Add(49*time.Hour), f.now.Add(49*time.Hour+15*time.Minute))

	appt := f.request(t, oldSlot)
	f.confirm(t, appt.ID)

	// Another patient takes the target slot first.
	rival := Patient{ID: uuid.New(), Name: "Rival"}
	f.repo.PutPatient(rival)
	_, err := f.svc.Request(context.Background(), Actor{ID: rival.ID, Role: RolePatient}, RequestInput{
		PatientID:  rival.ID,
		ProviderID: f.provider.ID,
		SlotID:     newSlot.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.Reschedule(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, appt.ID, newSlot.ID)

	var rerr *RescheduleError
	require.ErrorAs(t, err, &rerr)
	assert.False(t, rerr.OldCancelled)
	assert.ErrorIs(t, rerr.Err, ErrSlotUnavailable)

	// The original booking is untouched.
	old, err := f.repo.GetAppointmentByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, old.Status)
	assert.Equal(t, SlotBooked, f.slotStatus(t, oldSlot.ID))
}

// reserveHookRepo lets a test interleave a competing transition between the
// new-slot claim and the old-appointment cancel of a reschedule.
type reserveHookRepo struct {
	*InMemRepository
	afterReserve func()
}

func (r *reserveHookRepo) ReserveSlot(ctx context.Context, slotID, patientID uuid.UUID, reason *string) (*Appointment, error) {
	appt, err := r.InMemRepository.ReserveSlot(ctx, slotID, patientID, reason)
	if err == nil && r.afterReserve != nil {
		r.afterReserve()
	}
	return appt, err
}

func TestRescheduleReleasesClaimWhenOldRacesToTerminal(t *testing.T) {
	f := newFixture(t)
	hooked := &reserveHookRepo{InMemRepository: f.repo}
	f.svc.repo = hooked

	oldSlot := f.futureSlot(t)
	newSlot := f.addSlot(t, f.now.Add(49*time.Hour), f.now.Add(49*time.Hour+15*time.Minute))
	appt := f.request(t, oldSlot)
	f.confirm(t, appt.ID)

	// The moment the new slot is claimed, the old appointment reaches a
	// terminal outcome under the reschedule's feet.
	hooked.afterReserve = func() {
		_, err := f.repo.TransitionAppointment(context.Background(), Transition{
			AppointmentID: appt.ID,
			From:          []AppointmentStatus{StatusConfirmed},
			To:            StatusCompleted,
			EventType:     EventAppointmentCompleted,
		})
		require.NoError(t, err)
	}

	_, err := f.svc.Reschedule(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, appt.ID, newSlot.ID)

	var rerr *RescheduleError
	require.ErrorAs(t, err, &rerr)
	assert.False(t, rerr.OldCancelled)
	assert.ErrorIs(t, rerr.Err, ErrInvalidTransition)

	// The fresh claim was released, not stranded.
	assert.Equal(t, SlotFree, f.slotStatus(t, newSlot.ID))
	appts, listErr := f.repo.ListAppointments(context.Background(), AppointmentFilter{PatientID: &f.patient.ID, Limit: 100})
	require.NoError(t, listErr)
	released := false
	for _, a := range appts {
		if a.SlotID == newSlot.ID {
			released = true
			assert.Equal(t, StatusCancelled, a.Status)
		}
	}
	assert.True(t, released, "compensation must cancel the fresh reservation")

	// The raced appointment keeps its terminal outcome.
	old, err := f.repo.GetAppointmentByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, old.Status)
}

func TestMarkNoShowAfterConfirmed(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)
	f.confirm(t, appt.ID)

	f.svc.now = func() time.Time { return slot.EndTime.Add(time.Minute) }

	done, err := f.svc.MarkOutcome(context.Background(), Actor{ID: f.provider.ID, Role: RoleProvider}, appt.ID, OutcomeNoShow)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, done.Status)

	// The slot keeps its booked state as history.
	assert.Equal(t, SlotBooked, f.slotStatus(t, slot.ID))
}

func TestChangeFeedRecordsEveryTransitionOnce(t *testing.T) {
	f := newFixture(t)
	slot := f.futureSlot(t)
	appt := f.request(t, slot)
	f.confirm(t, appt.ID)
	_, err := f.svc.Cancel(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, appt.ID, nil)
	require.NoError(t, err)

	events, err := f.repo.ListChangeEvents(context.Background(), 0, 100)
	require.NoError(t, err)

	var types []string
	for _, ev := range events {
		require.Equal(t, appt.ID, ev.AppointmentID)
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{
		EventAppointmentRequested,
		EventAppointmentConfirmed,
		EventAppointmentCancelled,
	}, types)
}

// Mirrors the full lifecycle: A books, B loses the race, provider confirms,
// A cancels, B rebooks the freed slot.
func TestBookingLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	slot := f.addSlot(t,
		time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC))

	patientB := Patient{ID: uuid.New(), Name: "Bashir Ortega"}
	f.repo.PutPatient(patientB)

	apptA := f.request(t, slot)
	assert.Equal(t, StatusRequested, apptA.Status)
	assert.Equal(t, SlotHeld, f.slotStatus(t, slot.ID))

	_, err := f.svc.Request(context.Background(), Actor{ID: patientB.ID, Role: RolePatient}, RequestInput{
		PatientID:  patientB.ID,
		ProviderID: f.provider.ID,
		SlotID:     slot.ID,
	})
	require.ErrorIs(t, err, ErrSlotUnavailable)

	f.confirm(t, apptA.ID)
	assert.Equal(t, SlotBooked, f.slotStatus(t, slot.ID))

	_, err = f.svc.Cancel(context.Background(), Actor{ID: f.patient.ID, Role: RolePatient}, apptA.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, SlotFree, f.slotStatus(t, slot.ID))

	apptB, err := f.svc.Request(context.Background(), Actor{ID: patientB.ID, Role: RolePatient}, RequestInput{
		PatientID:  patientB.ID,
		ProviderID: f.provider.ID,
		SlotID:     slot.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, apptB.Status)
	assert.Equal(t, SlotHeld, f.slotStatus(t, slot.ID))
}
