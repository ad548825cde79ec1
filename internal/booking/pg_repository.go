package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.GroupID,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

const appointmentColumns = `id, patient_id, provider_id, group_id, slot_id, start_time, end_time, status, reason, cancel_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&a.GroupID,
		&a.SlotID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Reason,
		&a.CancelReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func statusStrings(in []AppointmentStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func slotStatusStrings(in []SlotStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) CreateSlot(ctx context.Context, slot Slot) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO slots (id, provider_id, group_id, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'free', now(), now())
		RETURNING id, provider_id, group_id, start_time, end_time, status, created_at, updated_at
	`, slot.ID, slot.ProviderID, slot.GroupID, slot.StartTime, slot.EndTime)
	return scanSlot(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, group_id, start_time, end_time, status, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListFreeSlots(ctx context.Context, f SlotFilter) ([]Slot, error) {
	query := `
		SELECT id, provider_id, group_id, start_time, end_time, status, created_at, updated_at
		FROM slots
		WHERE status = 'free'
		  AND start_time >= $1
		  AND start_time < $2
	`
	args := []any{f.From, f.To}

	if f.ProviderID != nil {
		args = append(args, *f.ProviderID)
		query += fmt.Sprintf(" AND provider_id = $%d", len(args))
	}
	if f.GroupID != nil {
		args = append(args, *f.GroupID)
		query += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	if f.After != nil {
		args = append(args, f.After.StartTime, f.After.ID)
		query += fmt.Sprintf(" AND (start_time, id) > ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY start_time, id LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) DeleteFreeSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE id = $1 AND status = 'free'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a live slot from a missing one.
		if _, err := r.GetSlotByID(ctx, id); err != nil {
			return err
		}
		return ErrSlotConflict
	}
	return nil
}

// ReserveSlot is the booking race's single point of truth: the conditional
// UPDATE on the slot row decides the winner, everything else rides in the same
// transaction.
func (r *PgRepository) ReserveSlot(ctx context.Context, slotID, patientID uuid.UUID, reason *string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reserve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE slots
		SET status = 'held',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'free'
		RETURNING id, provider_id, group_id, start_time, end_time, status, created_at, updated_at
	`, slotID)

	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return r.classifyReserveConflict(ctx, slotID, patientID)
		}
		return nil, err
	}

	id := uuid.New()
	apptRow := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, provider_id, group_id, slot_id, start_time, end_time, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'requested', $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, patientID, slot.ProviderID, slot.GroupID, slot.ID, slot.StartTime, slot.EndTime, reason)

	appt, err := scanAppointment(apptRow)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := insertChangeEvent(ctx, tx, EventAppointmentRequested, appt.ID, map[string]any{
		"slot_id":    slot.ID.String(),
		"patient_id": patientID.String(),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reserve tx: %w", err)
	}
	return appt, nil
}

// classifyReserveConflict turns a missed reservation into the right caller
// result: NotFound for an absent slot, the existing appointment with
// ErrAlreadyInTargetState for the same patient's retry, SlotUnavailable for
// everyone else.
func (r *PgRepository) classifyReserveConflict(ctx context.Context, slotID, patientID uuid.UUID) (*Appointment, error) {
	if _, err := r.GetSlotByID(ctx, slotID); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE slot_id = $1 AND status IN ('requested', 'confirmed')
	`, slotID)
	live, err := scanAppointment(row)
	if err == nil && live.PatientID == patientID {
		return live, ErrAlreadyInTargetState
	}
	return nil, ErrSlotUnavailable
}

func (r *PgRepository) TransitionAppointment(ctx context.Context, t Transition) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    cancel_reason = COALESCE($3, cancel_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($4)
		RETURNING `+appointmentColumns+`
	`, t.AppointmentID, t.To, t.CancelReason, statusStrings(t.From))

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return r.classifyTransitionMiss(ctx, t)
		}
		return nil, err
	}

	if len(t.SlotFrom) > 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE slots
			SET status = $2,
			    updated_at = now()
			WHERE id = $1
			  AND status = ANY($3)
		`, appt.SlotID, t.SlotTo, slotStatusStrings(t.SlotFrom))
		if err != nil {
			return nil, fmt.Errorf("update slot state: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// The appointment CAS pins the slot state, so a miss here means
			// the two rows disagree. Refuse rather than commit a bad pair.
			return nil, fmt.Errorf("slot %s state out of sync with appointment %s: %w",
				appt.SlotID, appt.ID, ErrInvalidTransition)
		}
	}

	payload := map[string]any{
		"to":      string(t.To),
		"slot_id": appt.SlotID.String(),
	}
	if err := insertChangeEvent(ctx, tx, t.EventType, appt.ID, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition tx: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) classifyTransitionMiss(ctx context.Context, t Transition) (*Appointment, error) {
	current, err := r.GetAppointmentByID(ctx, t.AppointmentID)
	if err != nil {
		return nil, err
	}
	if current.Status == t.To {
		return current, ErrAlreadyInTargetState
	}
	return nil, fmt.Errorf("appointment %s is %s: %w", current.ID, current.Status, ErrInvalidTransition)
}

func insertChangeEvent(ctx context.Context, tx pgx.Tx, eventType string, appointmentID uuid.UUID, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal change event payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, now())
	`, eventType, appointmentID, data)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE 1 = 1
	`
	var args []any

	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if f.ProviderID != nil {
		args = append(args, *f.ProviderID)
		query += fmt.Sprintf(" AND provider_id = $%d", len(args))
	}
	if len(f.Statuses) > 0 {
		args = append(args, statusStrings(f.Statuses))
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += fmt.Sprintf(" AND start_time < $%d", len(args))
	}

	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY start_time, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) InsertNotification(ctx context.Context, n NotificationEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, event_type, appointment_id, recipient_id, recipient_role, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', now())
	`, n.ID, n.EventType, n.AppointmentID, n.RecipientID, n.RecipientRole, n.Message)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *PgRepository) ListPendingNotifications(ctx context.Context, limit int) ([]NotificationEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, appointment_id, recipient_id, recipient_role, message, status, created_at, sent_at
		FROM notifications
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []NotificationEvent
	for rows.Next() {
		var n NotificationEvent
		err := rows.Scan(
			&n.ID,
			&n.EventType,
			&n.AppointmentID,
			&n.RecipientID,
			&n.RecipientRole,
			&n.Message,
			&n.Status,
			&n.CreatedAt,
			&n.SentAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *PgRepository) MarkNotification(ctx context.Context, id uuid.UUID, status NotificationStatus) error {
	var sentAt *time.Time
	if status == NotificationSent {
		now := time.Now()
		sentAt = &now
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2,
		    sent_at = COALESCE($3, sent_at)
		WHERE id = $1
	`, id, status, sentAt)
	if err != nil {
		return fmt.Errorf("mark notification: %w", err)
	}
	return nil
}

func (r *PgRepository) ListChangeEvents(ctx context.Context, afterID int64, limit int) ([]ChangeEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, appointment_id, payload, created_at
		FROM appointment_events
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ChangeEvent
	for rows.Next() {
		var ev ChangeEvent
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.AppointmentID, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}
