package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/booking-engine/internal/config"
	redisclient "github.com/clinicbook/booking-engine/internal/redis"
)

func TestOutboxDispatchDrainsPending(t *testing.T) {
	repo := NewInMemRepository()
	notifier := NewOutboxNotifier(repo, zerolog.Nop())
	svc := NewService(repo, redisclient.NopLocker{}, notifier, NopFeed{}, config.Config{}, zerolog.Nop())

	patient := Patient{ID: uuid.New(), Name: "Mei Tanaka"}
	provider := Provider{ID: uuid.New(), Name: "Dr. Brandt"}
	repo.PutPatient(patient)
	repo.PutProvider(provider)

	slot, err := repo.CreateSlot(context.Background(), Slot{
		ID:         uuid.New(),
		ProviderID: provider.ID,
		StartTime:  time.Now().Add(24 * time.Hour),
		EndTime:    time.Now().Add(24*time.Hour + 15*time.Minute),
	})
	require.NoError(t, err)

	appt, err := svc.Request(context.Background(), Actor{ID: patient.ID, Role: RolePatient}, RequestInput{
		PatientID:  patient.ID,
		ProviderID: provider.ID,
		SlotID:     slot.ID,
	})
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), Actor{ID: provider.ID, Role: RoleProvider}, appt.ID, DecisionConfirm)
	require.NoError(t, err)

	pending, err := repo.ListPendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	n, err := svc.DispatchNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A second run finds nothing left to deliver.
	n, err = svc.DispatchNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pending, err = repo.ListPendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
