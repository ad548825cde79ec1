package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicbook/booking-engine/internal/booking"
)

func slotResponse(s *booking.Slot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		ProviderID: s.ProviderID,
		GroupID:    s.GroupID,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Status:     string(s.Status),
	}
}

func appointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		ProviderID:   a.ProviderID,
		GroupID:      a.GroupID,
		SlotID:       a.SlotID,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Status:       string(a.Status),
		Reason:       a.Reason,
		CancelReason: a.CancelReason,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// Slot listing cursors are opaque to clients: base64 of "start|id".

func encodeSlotCursor(s booking.Slot) string {
	raw := s.StartTime.UTC().Format(time.RFC3339Nano) + "|" + s.ID.String()
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func decodeSlotCursor(raw string) (*booking.SlotCursor, error) {
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed cursor")
	}
	start, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, err
	}
	return &booking.SlotCursor{StartTime: start, ID: id}, nil
}

func createSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		var groupID *uuid.UUID
		if req.GroupID != "" {
			gid, err := uuid.Parse(req.GroupID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_group_id", "group_id must be a valid UUID")
				return
			}
			groupID = &gid
		}

		slot, err := svc.CreateSlot(r.Context(), ActorFromContext(r.Context()), providerID, groupID, req.StartTime, req.EndTime)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, slotResponse(slot))
	}
}

func listSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var f booking.SlotFilter

		if v := q.Get("provider_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
				return
			}
			f.ProviderID = &id
		}
		if v := q.Get("group_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_group_id", "group_id must be a valid UUID")
				return
			}
			f.GroupID = &id
		}
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC3339")
				return
			}
			f.From = t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC3339")
				return
			}
			f.To = t
		}
		if v := q.Get("cursor"); v != "" {
			cur, err := decodeSlotCursor(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_cursor", "cursor is not valid")
				return
			}
			f.After = cur
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
				return
			}
			f.Limit = n
		}
		// Resolve the effective page size up front; a full default page must
		// still carry a resume cursor.
		if f.Limit <= 0 {
			f.Limit = booking.DefaultSlotPageSize
		}
		if f.Limit > booking.MaxSlotPageSize {
			f.Limit = booking.MaxSlotPageSize
		}

		slots, err := svc.ListFreeSlots(r.Context(), f)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := SlotListResponse{Slots: make([]SlotResponse, 0, len(slots))}
		for i := range slots {
			resp.Slots = append(resp.Slots, slotResponse(&slots[i]))
		}
		if len(slots) > 0 && len(slots) == f.Limit {
			resp.NextCursor = encodeSlotCursor(slots[len(slots)-1])
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}
		if err := svc.DeleteSlot(r.Context(), ActorFromContext(r.Context()), id); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}

		in := booking.RequestInput{
			PatientID:  patientID,
			ProviderID: providerID,
			SlotID:     slotID,
		}
		if req.GroupID != "" {
			gid, err := uuid.Parse(req.GroupID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_group_id", "group_id must be a valid UUID")
				return
			}
			in.GroupID = &gid
		}
		if req.Reason != "" {
			in.Reason = &req.Reason
		}

		appt, err := svc.Request(r.Context(), ActorFromContext(r.Context()), in)
		if errors.Is(err, booking.ErrAlreadyInTargetState) {
			writeJSON(w, http.StatusOK, appointmentResponse(appt))
			return
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

func decisionHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req DecisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Decide(r.Context(), ActorFromContext(r.Context()), id, booking.Decision(req.Decision))
		if errors.Is(err, booking.ErrAlreadyInTargetState) {
			writeJSON(w, http.StatusOK, appointmentResponse(appt))
			return
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func cancelHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var reason *string
		if req.Reason != "" {
			reason = &req.Reason
		}

		appt, err := svc.Cancel(r.Context(), ActorFromContext(r.Context()), id, reason)
		if errors.Is(err, booking.ErrAlreadyInTargetState) {
			writeJSON(w, http.StatusOK, appointmentResponse(appt))
			return
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func rescheduleHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		newSlotID, err := uuid.Parse(req.NewSlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "new_slot_id must be a valid UUID")
			return
		}

		appt, err := svc.Reschedule(r.Context(), ActorFromContext(r.Context()), id, newSlotID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

func outcomeHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req OutcomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.MarkOutcome(r.Context(), ActorFromContext(r.Context()), id, booking.Outcome(req.Outcome))
		if errors.Is(err, booking.ErrAlreadyInTargetState) {
			writeJSON(w, http.StatusOK, appointmentResponse(appt))
			return
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}
		appt, err := svc.Get(r.Context(), ActorFromContext(r.Context()), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var f booking.AppointmentFilter

		if v := q.Get("patient_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			f.PatientID = &id
		}
		if v := q.Get("provider_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
				return
			}
			f.ProviderID = &id
		}
		if v := q.Get("status"); v != "" {
			for _, s := range strings.Split(v, ",") {
				f.Statuses = append(f.Statuses, booking.AppointmentStatus(s))
			}
		}
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC3339")
				return
			}
			f.From = &t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC3339")
				return
			}
			f.To = &t
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
				return
			}
			f.Limit = n
		}
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
				return
			}
			f.Offset = n
		}

		appts, err := svc.ListAppointments(r.Context(), ActorFromContext(r.Context()), f)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := AppointmentListResponse{Appointments: make([]AppointmentResponse, 0, len(appts))}
		for i := range appts {
			resp.Appointments = append(resp.Appointments, appointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func changeFeedHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var after int64
		if v := q.Get("after"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_after", "after must be an integer")
				return
			}
			after = n
		}
		limit := 0
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
				return
			}
			limit = n
		}

		events, err := svc.ChangeFeed(r.Context(), after, limit)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := ChangeFeedResponse{Events: make([]ChangeEventResponse, 0, len(events))}
		for _, ev := range events {
			resp.Events = append(resp.Events, ChangeEventResponse{
				ID:            ev.ID,
				EventType:     ev.EventType,
				AppointmentID: ev.AppointmentID,
				Payload:       ev.Payload,
				CreatedAt:     ev.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleServiceError(w http.ResponseWriter, err error) {
	var rerr *booking.RescheduleError
	switch {
	case errors.As(err, &rerr):
		old := rerr.OldCancelled
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:        "reschedule_failed",
			Details:      rerr.Error(),
			OldCancelled: &old,
		})
	case errors.Is(err, booking.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, booking.ErrNotAllowed):
		writeError(w, http.StatusForbidden, "not_allowed", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot is no longer free, refresh availability and pick another")
	case errors.Is(err, booking.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
