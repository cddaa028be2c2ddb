package reporting

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sngm3741/avero-reporting/api/internal/interfaces/http/common"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

func (h *Handler) reportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		q, err := h.parseQuery(r.URL.Query())
		if err != nil {
			h.writeError(w, err)
			return
		}

		result, err := h.queries.Find(ctx, q)
		if err != nil {
			h.writeError(w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, result)
	}
}

// writeError maps domain errors onto status codes: bad input is 400, a held
// generation lock is 409, anything else is a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var pe *paramsError
	switch {
	case errors.As(err, &pe):
		common.WriteJSON(h.logger, w, http.StatusBadRequest, common.ErrorResponse{Error: domain.ErrInvalidParams.Error(), Details: pe.details})
	case errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrInvalidReportType),
		errors.Is(err, domain.ErrInvalidParams):
		common.WriteError(h.logger, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRunInProgress):
		common.WriteError(h.logger, w, http.StatusConflict, err.Error())
	default:
		h.logger.WithError(err).Error("reporting request failed")
		common.WriteError(h.logger, w, http.StatusInternalServerError, "レポートの取得に失敗しました")
	}
}
