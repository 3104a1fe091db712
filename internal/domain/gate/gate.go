// Package gate composes the per-request entitlement checks: actor,
// authorization, subscription validity, quota. It knows nothing about HTTP.
package gate

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/lifecycle"
	"crm-entitlements/internal/logging"
	"crm-entitlements/internal/metrics"
)

// Actor is the authenticated caller, supplied by the auth layer.
type Actor struct {
	TenantID      string      `json:"tenant_id"`
	Subject       string      `json:"subject"`
	Role          access.Role `json:"role"`
	PlatformAdmin bool        `json:"-"`
}

type Request struct {
	Actor    *Actor
	Path     string
	Required []access.Permission
	// Creates names the resource a creation request adds one of. Empty for
	// non-creating requests.
	Creates access.Resource
	// AllowLapsed skips the validity check, for routes a tenant needs in
	// order to pay or renew.
	AllowLapsed bool
}

type Step string

const (
	StepAuthenticate Step = "authenticate"
	StepAuthorize    Step = "authorize"
	StepValidity     Step = "validity"
	StepQuota        Step = "quota"
)

// Decision is the gate verdict. Step names the deciding check when denied
// or failed open; Err carries the denial.
type Decision struct {
	Allowed    bool
	Step       Step
	FailedOpen bool
	Err        error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(step Step, err error) Decision {
	return Decision{Step: step, Err: err}
}

// Policy tunes the gate. FailOpen permits requests whose validity or quota
// lookup errors unexpectedly, trading strictness for availability during
// storage faults.
type Policy struct {
	FailOpen       bool
	ExemptPrefixes []string
}

func DefaultPolicy() Policy {
	return Policy{
		FailOpen:       true,
		ExemptPrefixes: []string{"/auth", "/webhook", "/plans", "/health", "/metrics"},
	}
}

// Exempt reports whether path skips the validity check.
func (p Policy) Exempt(path string) bool {
	for _, prefix := range p.ExemptPrefixes {
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

type ValidityChecker interface {
	Validity(ctx context.Context, tenantID string) (lifecycle.Validity, error)
}

type QuotaChecker interface {
	CheckCreate(ctx context.Context, tenantID string, resource access.Resource) error
}

type Gate struct {
	matrix   *access.Matrix
	validity ValidityChecker
	quota    QuotaChecker
	policy   Policy
	log      zerolog.Logger
}

func New(matrix *access.Matrix, validity ValidityChecker, quota QuotaChecker, policy Policy) *Gate {
	return &Gate{
		matrix:   matrix,
		validity: validity,
		quota:    quota,
		policy:   policy,
		log:      logging.Logger(),
	}
}

// WithLogger replaces the gate's logger.
func (g *Gate) WithLogger(l zerolog.Logger) *Gate {
	g.log = l
	return g
}

func (g *Gate) Policy() Policy { return g.policy }

// Evaluate runs the checks in order and stops at the first denial.
func (g *Gate) Evaluate(ctx context.Context, req Request) Decision {
	d := g.evaluate(ctx, req)
	outcome := "allow"
	switch {
	case d.FailedOpen:
		outcome = "fail_open"
	case !d.Allowed:
		outcome = "deny"
	}
	step := string(d.Step)
	if step == "" {
		step = "none"
	}
	metrics.GateDecisionsTotal.WithLabelValues(step, outcome).Inc()
	return d
}

func (g *Gate) evaluate(ctx context.Context, req Request) Decision {
	const op = "gate"

	if req.Actor == nil || req.Actor.TenantID == "" {
		return deny(StepAuthenticate, apperr.New(apperr.KindUnauthenticated, op, "authentication required"))
	}
	actor := req.Actor

	if missing := g.matrix.Missing(actor.Role, req.Required); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, p := range missing {
			names[i] = p.String()
		}
		return deny(StepAuthorize, apperr.New(apperr.KindForbidden, op,
			"role "+string(actor.Role)+" lacks permission: "+strings.Join(names, ", ")).
			WithDetails(map[string]any{"missing": names}))
	}

	var openedAt Step
	if !req.AllowLapsed && !g.policy.Exempt(req.Path) {
		v, err := g.validity.Validity(ctx, actor.TenantID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return deny(StepValidity, subscriptionRequired("no subscription"))
		case err != nil:
			if d, stop := g.onError(ctx, StepValidity, actor, err); stop {
				return d
			}
			openedAt = StepValidity
		case !v.Valid:
			return deny(StepValidity, subscriptionRequired(v.Reason).
				WithDetails(map[string]any{"status": string(v.Status)}))
		}
	}

	if req.Creates != "" {
		err := g.quota.CheckCreate(ctx, actor.TenantID, req.Creates)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrQuotaExceeded):
			return deny(StepQuota, err)
		case errors.Is(err, apperr.ErrNotFound):
			return deny(StepQuota, subscriptionRequired("no subscription"))
		default:
			if d, stop := g.onError(ctx, StepQuota, actor, err); stop {
				return d
			}
			if openedAt == "" {
				openedAt = StepQuota
			}
		}
	}

	if openedAt != "" {
		return Decision{Allowed: true, Step: openedAt, FailedOpen: true}
	}
	return allow()
}

// onError applies the fail-open policy to an unexpected check error. With
// fail-open the request continues (stop=false) and the fault is logged.
func (g *Gate) onError(ctx context.Context, step Step, actor *Actor, err error) (Decision, bool) {
	l := g.log
	if id := logging.RequestID(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	if !g.policy.FailOpen {
		l.Error().Err(err).Str("step", string(step)).Str("tenant_id", actor.TenantID).Msg("entitlement check failed, denying")
		return deny(step, err), true
	}
	l.Warn().Err(err).Str("step", string(step)).Str("tenant_id", actor.TenantID).Msg("entitlement check failed, allowing request")
	return Decision{}, false
}

func subscriptionRequired(reason string) *apperr.Error {
	msg := "active subscription required"
	if reason != "" {
		msg += ": " + reason
	}
	return apperr.New(apperr.KindSubscriptionRequired, "gate", msg)
}
