package invoice

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/noah-isme/invoice-api/internal/common"
	"github.com/noah-isme/invoice-api/internal/currency"
	"github.com/noah-isme/invoice-api/internal/obs"
)

// Handler wires the calculation core to HTTP.
type Handler struct {
	Validator *Validator
	Renderer  Renderer
}

// Calculate handles POST /v1/totals.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	normalized, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}
	result := Calculate(normalized)
	recordResult(normalized, result)
	common.JSONData(w, http.StatusOK, Assemble(normalized, result))
}

// Render handles POST /v1/invoices: the same calculation plus a generated
// identifier and issue timestamp.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	normalized, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}
	result := Calculate(normalized)
	recordResult(normalized, result)
	common.JSONData(w, http.StatusCreated, h.Renderer.Render(normalized, result))
}

// Currencies handles GET /v1/currencies.
func (h *Handler) Currencies(w http.ResponseWriter, _ *http.Request) {
	common.JSONData(w, http.StatusOK, currency.List())
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request) (NormalizedRequest, bool) {
	if h.Validator == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "validator not configured", nil)
		return NormalizedRequest{}, false
	}
	var payload Request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err))
		return NormalizedRequest{}, false
	}
	normalized, err := h.Validator.Validate(payload)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				obs.RecordValidationFailure(metricField(f.Field))
			}
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "request failed validation", verr.Fields)
			return NormalizedRequest{}, false
		}
		common.WriteError(w, err)
		return NormalizedRequest{}, false
	}
	return normalized, true
}

var lineIndexPattern = regexp.MustCompile(`\[\d+\]`)

// metricField collapses a violation path to its field class. Line indexes and
// caller-chosen tax category keys must never become metric label values.
func metricField(field string) string {
	field = lineIndexPattern.ReplaceAllString(field, "")
	if strings.HasPrefix(field, "tax.rates.") {
		return "tax.rates"
	}
	return field
}

func recordResult(n NormalizedRequest, res TotalsResult) {
	obs.RecordCalculation(n.Tax.Mode, "ok")
	for _, flag := range res.Warnings {
		obs.RecordPolicyClamp(flag)
	}
}
