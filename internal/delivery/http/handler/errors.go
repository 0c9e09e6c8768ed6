package handler

import (
	"errors"
	"net/http"

	"clinic-frontdesk/internal/domain/repository"
	"clinic-frontdesk/internal/usecase"
	"clinic-frontdesk/pkg/response"
)

// writeError maps usecase error kinds onto HTTP responses. Unknown errors
// become a 500 with fallback as the message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var invalid *usecase.InvalidSlotError
	var taken *usecase.SlotTakenError

	switch {
	case errors.As(err, &invalid):
		response.BadRequest(w, "Invalid appointment slot", map[string]string{"reason": invalid.Reason})
	case errors.As(err, &taken):
		var existing interface{}
		if taken.Existing != nil {
			existing = map[string]string{"id": taken.Existing.ID.String(), "status": string(taken.Existing.Status)}
		}
		response.Conflict(w, "Slot already taken", existing)
	case errors.Is(err, usecase.ErrInvalidNationalID):
		response.BadRequest(w, "National ID is required", nil)
	case errors.Is(err, usecase.ErrSlotNotFound):
		response.NotFound(w, "Appointment not found")
	case errors.Is(err, usecase.ErrPatientNotFound):
		response.NotFound(w, "Patient not found")
	case errors.Is(err, usecase.ErrInvalidStatusTransition):
		response.Conflict(w, "Appointment status does not allow this change", nil)
	case errors.Is(err, usecase.ErrTransientConflict):
		response.Conflict(w, "Patient is being registered concurrently, please retry", nil)
	case errors.Is(err, repository.ErrStorageUnavailable):
		response.ServiceUnavailable(w, "Storage is unavailable, please retry")
	default:
		response.InternalServerError(w, fallback)
	}
}
