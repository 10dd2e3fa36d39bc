package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/coachgate/pkg/auth"
	"github.com/platinummonkey/coachgate/pkg/observability"
	"github.com/platinummonkey/coachgate/pkg/orgs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Denial messages returned to clients. Clients only ever see one of these.
const (
	ReasonCheckFailed = "permission check failed"
	ReasonForbidden   = "forbidden"
)

// Cause is the internal, machine-readable explanation of a decision.
// It is logged and counted but never sent to clients.
type Cause string

const (
	CauseBypass              Cause = "bypass"
	CauseNoRequirements      Cause = "no_requirements"
	CauseMissingUser         Cause = "missing_user"
	CauseMissingOrganization Cause = "missing_organization"
	CauseMembershipNotFound  Cause = "membership_not_found"
	CauseMembershipError     Cause = "membership_error"
	CauseGranted             Cause = "granted"
	CauseNotGranted          Cause = "not_granted"
	CauseOwner               Cause = "owner"
	CauseNotOwner            Cause = "not_owner"
	CauseForeignOrganization Cause = "foreign_organization"
	CauseUnknownMode         Cause = "unknown_mode"
)

// AccessRequest is everything the engine needs to decide one request
type AccessRequest struct {
	RequiredActions      []Action
	Resource             Resource
	UserID               string
	OrganizationID       string
	NoOrganizationBypass bool
}

// Decision is the outcome of an access check
type Decision struct {
	Allowed        bool      `json:"allowed"`
	Reason         string    `json:"reason,omitempty"`
	Cause          Cause     `json:"-"`
	Role           auth.Role `json:"role,omitempty"`
	MatchedActions ActionSet `json:"matched_actions,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Outcome returns "allow" or "deny"
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}

// DecisionRecorder receives one call per decision
type DecisionRecorder interface {
	RecordDecision(resource, outcome, cause string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(string, string, string, time.Duration) {}

type multiRecorder []DecisionRecorder

func (m multiRecorder) RecordDecision(resource, outcome, cause string, elapsed time.Duration) {
	for _, r := range m {
		r.RecordDecision(resource, outcome, cause, elapsed)
	}
}

// MultiRecorder fans decisions out to every non-nil recorder
func MultiRecorder(recorders ...DecisionRecorder) DecisionRecorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Engine decides whether a request may proceed. It is safe for concurrent
// use; the matrix is copied in at construction and never changes.
type Engine struct {
	matrix   Matrix
	resolver orgs.Resolver
	logger   *observability.Logger
	recorder DecisionRecorder
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for denials and lookup failures
func WithLogger(logger *observability.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDecisionRecorder sets where decision metrics go
func WithDecisionRecorder(recorder DecisionRecorder) Option {
	return func(e *Engine) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

// WithTracer overrides the tracer taken from the global provider
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// NewEngine creates a new decision engine
func NewEngine(matrix Matrix, resolver orgs.Resolver, opts ...Option) *Engine {
	e := &Engine{
		matrix:   matrix,
		resolver: resolver,
		logger:   observability.NewNopLogger(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer("github.com/platinummonkey/coachgate/pkg/rbac"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Matrix returns the matrix the engine decides against
func (e *Engine) Matrix() Matrix {
	return e.matrix
}

// Decide evaluates req. It never returns an error: every failure along the
// way is a denial.
func (e *Engine) Decide(ctx context.Context, req AccessRequest) Decision {
	ctx, span := e.startSpan(ctx, "rbac.Decide", req)
	start := time.Now()
	d := e.decide(ctx, req)
	e.observe(span, req, d, time.Since(start))
	return d
}

// Allowed is shorthand for Decide(ctx, req).Allowed
func (e *Engine) Allowed(ctx context.Context, req AccessRequest) bool {
	return e.Decide(ctx, req).Allowed
}

func (e *Engine) decide(ctx context.Context, req AccessRequest) Decision {
	if req.NoOrganizationBypass {
		return e.allow(CauseBypass, "", 0)
	}
	if len(req.RequiredActions) == 0 {
		return e.allow(CauseNoRequirements, "", 0)
	}

	if req.UserID == "" {
		return e.deny(ReasonCheckFailed, CauseMissingUser, "")
	}
	if req.OrganizationID == "" {
		return e.deny(ReasonCheckFailed, CauseMissingOrganization, "")
	}

	member, err := e.lookupMembership(ctx, req.UserID, req.OrganizationID)
	if errors.Is(err, orgs.ErrMembershipNotFound) || (err == nil && member == nil) {
		return e.deny(ReasonCheckFailed, CauseMembershipNotFound, "")
	}
	if err != nil {
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id":         req.UserID,
			"organization_id": req.OrganizationID,
		}).Warn("membership lookup failed, denying")
		trace.SpanFromContext(ctx).RecordError(err)
		return e.deny(ReasonCheckFailed, CauseMembershipError, "")
	}

	allowed := e.matrix.AllowedActions(member.Role, req.Resource)
	matched := NewActionSet(req.RequiredActions...).Intersect(allowed)
	if matched.Empty() {
		return e.deny(ReasonForbidden, CauseNotGranted, member.Role)
	}
	return e.allow(CauseGranted, member.Role, matched)
}

// lookupMembership turns a panicking resolver into an error
func (e *Engine) lookupMembership(ctx context.Context, userID, orgID string) (member *orgs.Membership, err error) {
	defer func() {
		if r := recover(); r != nil {
			member = nil
			err = fmt.Errorf("membership resolver: %w", observability.MustRecover(r))
		}
	}()
	return e.resolver.FindMembership(ctx, userID, orgID)
}

func (e *Engine) allow(cause Cause, role auth.Role, matched ActionSet) Decision {
	return Decision{Allowed: true, Cause: cause, Role: role, MatchedActions: matched, CheckedAt: e.now()}
}

func (e *Engine) deny(reason string, cause Cause, role auth.Role) Decision {
	return Decision{Allowed: false, Reason: reason, Cause: cause, Role: role, CheckedAt: e.now()}
}

func (e *Engine) startSpan(ctx context.Context, name string, req AccessRequest) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("rbac.resource", string(req.Resource)),
		attribute.String("rbac.required_actions", NewActionSet(req.RequiredActions...).String()),
		attribute.String("rbac.organization_id", req.OrganizationID),
		attribute.Bool("rbac.bypass", req.NoOrganizationBypass),
	))
}

func (e *Engine) observe(span trace.Span, req AccessRequest, d Decision, elapsed time.Duration) {
	defer span.End()

	span.SetAttributes(
		attribute.Bool("rbac.allowed", d.Allowed),
		attribute.String("rbac.cause", string(d.Cause)),
	)
	if !d.Allowed {
		span.SetStatus(codes.Error, d.Reason)
	}

	e.recorder.RecordDecision(string(req.Resource), d.Outcome(), string(d.Cause), elapsed)

	e.logger.WithFields(map[string]interface{}{
		"user_id":          req.UserID,
		"organization_id":  req.OrganizationID,
		"resource":         string(req.Resource),
		"required_actions": NewActionSet(req.RequiredActions...).String(),
		"outcome":          d.Outcome(),
		"cause":            string(d.Cause),
		"role":             string(d.Role),
	}).Debug("access decision")
}
