// Package gateway is the single entry point for order commands. It checks
// requests and credentials, drives smart-order reconciliation and square-off
// and hands every outcome to the audit log and the event notifier without
// waiting on either.
package gateway

import (
	"context"
	"net/http"
	"time"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/reconcile"
	"order-gateway/internal/types"
)

// Event names emitted after broker calls.
const (
	EventOrder       = "order_event"
	EventCancelOrder = "cancel_order_event"
	EventModifyOrder = "modify_order_event"
	EventClose       = "close_position"
)

// Deps are the collaborators of a Service. Locker, Auditor and Events are
// optional.
type Deps struct {
	Adapter     interfaces.BrokerAdapter
	Credentials interfaces.CredentialStore
	Locker      interfaces.Locker
	Auditor     interfaces.Auditor
	Events      interfaces.EventPublisher
	// StrictSquareOff reports an error status when any closing order fails.
	StrictSquareOff bool
}

type Service struct {
	adapter interfaces.BrokerAdapter
	creds   interfaces.CredentialStore
	locker  interfaces.Locker
	auditor interfaces.Auditor
	events  interfaces.EventPublisher
	strict  bool
	now     func() time.Time
}

var _ interfaces.OrderGateway = (*Service)(nil)

func New(d Deps) (*Service, error) {
	if d.Adapter == nil {
		return nil, types.ConfigError("gateway.New", nil, "broker adapter is required")
	}
	if d.Credentials == nil {
		return nil, types.ConfigError("gateway.New", nil, "credential store is required")
	}
	s := &Service{
		adapter: d.Adapter,
		creds:   d.Credentials,
		locker:  d.Locker,
		auditor: d.Auditor,
		events:  d.Events,
		strict:  d.StrictSquareOff,
		now:     time.Now,
	}
	if s.locker == nil {
		s.locker = reconcile.NewKeyedMutex()
	}
	if s.auditor == nil {
		s.auditor = nopAuditor{}
	}
	if s.events == nil {
		s.events = nopEvents{}
	}
	return s, nil
}

// Broker returns the name of the adapter in use.
func (s *Service) Broker() string { return s.adapter.Name() }

// authorize checks the caller's API key and returns the broker session.
func (s *Service) authorize(ctx context.Context, user, apiKey string) (types.Session, error) {
	want, err := s.creds.APIKey(ctx, user)
	if err != nil {
		return types.Session{}, err
	}
	if want == "" || apiKey != want {
		return types.Session{}, types.AuthError("gateway.authorize", types.ErrInvalidAPIKey, http.StatusForbidden, "Invalid API key")
	}
	sess, err := s.creds.Session(ctx, user)
	if err != nil {
		return types.Session{}, err
	}
	if sess.AuthToken == "" {
		return types.Session{}, types.AuthError("gateway.authorize", types.ErrUnauthenticated, http.StatusUnauthorized, "Session not authenticated")
	}
	if sess.User == "" {
		sess.User = user
	}
	return sess, nil
}

func (s *Service) record(user, op string, req, resp any) {
	s.auditor.Record(interfaces.AuditEntry{
		Time:      s.now(),
		User:      user,
		Broker:    s.adapter.Name(),
		Operation: op,
		Request:   req,
		Response:  resp,
	})
}

func (s *Service) emit(user, name string, payload any) {
	s.events.Emit(interfaces.Event{Type: name, User: user, Broker: s.adapter.Name(), Payload: payload})
}

type nopAuditor struct{}

func (nopAuditor) Record(interfaces.AuditEntry) {}

type nopEvents struct{}

func (nopEvents) Emit(interfaces.Event) {}
