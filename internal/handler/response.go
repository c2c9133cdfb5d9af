package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/query"
	"github.com/atlekbai/crm_backoffice/internal/view"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// writeServiceError maps errors from the view package onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *view.ValidationError
	switch {
	case errors.Is(err, view.ErrNotFound):
		writeError(w, http.StatusNotFound, "VIEW_NOT_FOUND", "View not found", "")
	case errors.Is(err, view.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Access denied", "")
	case errors.Is(err, entity.ErrUnknownEntity):
		writeError(w, http.StatusBadRequest, "INVALID_ENTITY", "Unknown entity", err.Error())
	case errors.Is(err, query.ErrUnknownField):
		writeError(w, http.StatusBadRequest, "INVALID_FIELD", "Unknown field", err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Field)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", "")
	}
}

// writeResult writes an applied view, streaming raw JSON rows without
// re-marshaling.
func writeResult(w http.ResponseWriter, res *view.Result) {
	columns, _ := json.Marshal(res.Columns)
	pagination, _ := json.Marshal(res.Pagination)

	buf := &bytes.Buffer{}
	buf.WriteString(`{"data":[`)
	for i, row := range res.Data {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(row)
	}
	buf.WriteString(fmt.Sprintf(`],"columns":%s,"pagination":%s}`, columns, pagination))
	buf.WriteByte('\n')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
