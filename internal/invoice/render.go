package invoice

import (
	"time"

	"github.com/google/uuid"
)

// CalculationResponse pairs the totals with an echo of the normalized
// request. It performs no further arithmetic.
type CalculationResponse struct {
	Totals   TotalsPayload     `json:"totals"`
	Request  NormalizedRequest `json:"request"`
	Warnings []string          `json:"warnings"`
}

// Invoice is a rendered, stateless invoice object: the calculation response
// plus opaque identity metadata. It is never persisted by this service.
type Invoice struct {
	ID       string    `json:"id"`
	IssuedAt time.Time `json:"issuedAt"`
	CalculationResponse
}

// Renderer assembles invoice objects. NewID and Now are injectable for
// deterministic tests; zero values fall back to uuid.NewString and UTC now.
type Renderer struct {
	NewID func() string
	Now   func() time.Time
}

// Assemble builds the calculation response envelope.
func Assemble(n NormalizedRequest, res TotalsResult) CalculationResponse {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return CalculationResponse{
		Totals:   res.Payload(),
		Request:  n,
		Warnings: warnings,
	}
}

// Render attaches a generated identifier and issue timestamp to the
// calculation response.
func (r Renderer) Render(n NormalizedRequest, res TotalsResult) Invoice {
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := r.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return Invoice{
		ID:                  newID(),
		IssuedAt:            now(),
		CalculationResponse: Assemble(n, res),
	}
}
