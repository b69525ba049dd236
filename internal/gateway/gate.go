// Package gateway implements the authentication boundary in front of the
// calculation endpoints. It is a capability check only: an ordered list of
// named signals is evaluated first-match-wins against inbound headers, and
// the request is allowed or denied before any handler runs.
package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/noah-isme/invoice-api/internal/common"
	"github.com/noah-isme/invoice-api/internal/obs"
)

// Header names recognized by the gate. The three gateway headers are checked
// for presence only; the upstream gateway is trusted to have validated the
// subscriber before forwarding.
const (
	HeaderGatewayKey    = "X-Gateway-Key"
	HeaderGatewayProxy  = "X-Gateway-Proxy-Secret"
	HeaderGatewayHost   = "X-Gateway-Host"
	HeaderDirectKey     = "X-Api-Key"
)

// Config holds the gate's construction-time settings. Nothing is read from
// ambient process state, which keeps the gate testable in isolation.
type Config struct {
	// AllowAnonymous short-circuits every check. Non-production only.
	AllowAnonymous bool
	// DirectKey is the shared secret compared against X-Api-Key. Empty
	// disables the direct-key signal.
	DirectKey string
}

// Signal is a named predicate over the incoming request. Signals are
// evaluated in order; the first one that matches allows the request.
type Signal struct {
	Name  string
	Allow func(cfg Config, r *http.Request) bool
}

func headerPresent(name string) func(Config, *http.Request) bool {
	return func(_ Config, r *http.Request) bool {
		return strings.TrimSpace(r.Header.Get(name)) != ""
	}
}

// defaultSignals is the recognized signal list. New gateway signals are added
// by appending entries, not by editing conditionals.
func defaultSignals() []Signal {
	return []Signal{
		{Name: "anonymous", Allow: func(cfg Config, _ *http.Request) bool {
			return cfg.AllowAnonymous
		}},
		{Name: "gateway_key", Allow: headerPresent(HeaderGatewayKey)},
		{Name: "gateway_proxy_secret", Allow: headerPresent(HeaderGatewayProxy)},
		{Name: "gateway_host", Allow: headerPresent(HeaderGatewayHost)},
		{Name: "direct_key", Allow: func(cfg Config, r *http.Request) bool {
			if cfg.DirectKey == "" {
				return false
			}
			candidate := strings.TrimSpace(r.Header.Get(HeaderDirectKey))
			return subtle.ConstantTimeCompare([]byte(candidate), []byte(cfg.DirectKey)) == 1
		}},
	}
}

// Gate decides whether a request may reach the calculation core.
type Gate struct {
	cfg     Config
	signals []Signal
}

// New constructs a Gate with the default signal list.
func New(cfg Config) Gate {
	return Gate{cfg: cfg, signals: defaultSignals()}
}

// Check evaluates the signal list and returns the name of the first matching
// signal, or false when none match.
func (g Gate) Check(r *http.Request) (string, bool) {
	for _, s := range g.signals {
		if s.Allow(g.cfg, r) {
			return s.Name, true
		}
	}
	return "", false
}

// Middleware denies unauthenticated requests with a 401 before they reach the
// next handler.
func (g Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signal, ok := g.Check(r)
		if !ok {
			obs.RecordAuthDecision("none", "deny")
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials", nil)
			return
		}
		obs.RecordAuthDecision(signal, "allow")
		next.ServeHTTP(w, r)
	})
}
