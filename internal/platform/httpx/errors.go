package httpx

import (
	"errors"
	"net/http"

	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. The
// financial taxonomy maps to 4xx: every one of those errors means the
// caller's unit of work was rolled back and the request can be corrected.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidAmount):
		Problem(w, http.StatusBadRequest, "Invalid Amount", err.Error())
	case errors.Is(err, shared.ErrClosedTransaction):
		Problem(w, http.StatusConflict, "Closed Transaction", err.Error())
	case errors.Is(err, shared.ErrOverpaymentRejected):
		Problem(w, http.StatusUnprocessableEntity, "Overpayment Rejected", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrEditLocked):
		Problem(w, http.StatusConflict, "Edit Locked", err.Error())
	case errors.Is(err, shared.ErrOrphanedRecord):
		Problem(w, http.StatusConflict, "Orphaned Record", err.Error())
	case errors.Is(err, shared.ErrInconsistentState):
		// Logic defect, not a data-entry error. Surface loudly.
		Problem(w, http.StatusInternalServerError, "Inconsistent State", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
