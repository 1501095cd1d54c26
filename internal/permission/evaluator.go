package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/frahmantamala/school-management/internal/observability"
)

// Evaluator answers authorization questions from the assignments held in a Store.
// It keeps no state between calls; every check reloads the subject.
type Evaluator struct {
	store         Store
	logger        *slog.Logger
	metrics       *observability.Metrics
	enforceExpiry bool
	now           func() time.Time
}

type EvaluatorOption func(*Evaluator)

// WithExpiryEnforcement makes every check ignore assignments whose ExpiresAt has passed.
func WithExpiryEnforcement(enabled bool) EvaluatorOption {
	return func(e *Evaluator) {
		e.enforceExpiry = enabled
	}
}

func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.now = now
	}
}

func WithMetrics(m *observability.Metrics) EvaluatorOption {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

func NewEvaluator(store Store, logger *slog.Logger, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

var _ Authorizer = (*Evaluator)(nil)

// subject loads the user and drops expired assignments when enforcement is on.
// A missing user yields a nil subject and no error.
func (e *Evaluator) subject(ctx context.Context, userID string) (*Subject, error) {
	if userID == "" {
		return nil, nil
	}
	s, err := e.store.GetSubject(ctx, userID)
	if errors.Is(err, ErrSubjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load permissions for user %s: %w", userID, err)
	}
	if e.enforceExpiry && len(s.Assignments) > 0 {
		now := e.now()
		active := s.Assignments[:0:0]
		for _, a := range s.Assignments {
			if !a.ExpiredAt(now) {
				active = append(active, a)
			}
		}
		s.Assignments = active
	}
	return s, nil
}

func (e *Evaluator) HasPermission(ctx context.Context, userID, permission string, scope Context) (bool, error) {
	s, err := e.subject(ctx, userID)
	if err != nil {
		e.metrics.RecordPermissionError("permission")
		return false, err
	}
	allowed := grants(s, permission, scope)
	e.metrics.RecordPermissionDecision("permission", allowed)
	return allowed, nil
}

func (e *Evaluator) HasAnyPermission(ctx context.Context, userID string, permissions []string, scope Context) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}
	s, err := e.subject(ctx, userID)
	if err != nil {
		e.metrics.RecordPermissionError("any")
		return false, err
	}
	for _, p := range permissions {
		if grants(s, p, scope) {
			e.metrics.RecordPermissionDecision("any", true)
			return true, nil
		}
	}
	e.metrics.RecordPermissionDecision("any", false)
	return false, nil
}

func (e *Evaluator) HasAllPermissions(ctx context.Context, userID string, permissions []string, scope Context) (bool, error) {
	if len(permissions) == 0 {
		return true, nil
	}
	s, err := e.subject(ctx, userID)
	if err != nil {
		e.metrics.RecordPermissionError("all")
		return false, err
	}
	for _, p := range permissions {
		if !grants(s, p, scope) {
			e.metrics.RecordPermissionDecision("all", false)
			return false, nil
		}
	}
	e.metrics.RecordPermissionDecision("all", true)
	return true, nil
}

// UserPermissions lists the effective permission names of a user, ignoring contexts.
func (e *Evaluator) UserPermissions(ctx context.Context, userID string) ([]string, error) {
	s, err := e.subject(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []string{}, nil
	}
	if s.IsAdmin() {
		names, err := e.store.ListPermissionNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("list permissions: %w", err)
		}
		sort.Strings(names)
		return names, nil
	}

	seen := make(map[string]struct{})
	names := []string{}
	for _, a := range s.Assignments {
		for _, p := range a.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			names = append(names, p)
		}
	}
	sort.Strings(names)
	return names, nil
}

func grants(s *Subject, permission string, scope Context) bool {
	if s == nil {
		return false
	}
	if s.IsAdmin() {
		return true
	}
	for _, a := range s.Assignments {
		if !a.Grants(permission) {
			continue
		}
		if scope.IsEmpty() {
			return true
		}
		if !a.Context.IsEmpty() && a.Context.Covers(scope) {
			return true
		}
	}
	return false
}
