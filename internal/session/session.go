package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/contract"
	"github.com/mrz1836/chatbuddy/internal/metrics"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// DefaultFinalizeTimeout bounds the wait for a submitted transaction.
const DefaultFinalizeTimeout = 2 * time.Minute

// Session is the chat client's state plus the actions that mutate it. Only
// one action runs at a time; a second caller gets ErrSessionBusy.
type Session struct {
	connector Connector
	validate  *validator.Validate
	timeout   time.Duration
	log       config.LogWriter
	metrics   *metrics.Metrics

	busy atomic.Bool

	mu    sync.RWMutex
	state State
}

// Option customizes a Session.
type Option func(*Session)

// WithFinalizeTimeout sets how long mutating actions wait for finalization.
func WithFinalizeTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l config.LogWriter) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates an empty session.
func New(connector Connector, opts ...Option) *Session {
	s := &Session{
		connector: connector,
		validate:  validator.New(),
		timeout:   DefaultFinalizeTimeout,
		log:       config.NullLogger(),
		metrics:   metrics.Global,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Busy reports whether an action is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// ClearChat empties the message list. It is local only and leaves loading
// and error untouched.
func (s *Session) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FriendMsg = []contract.Message{}
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// action describes one state transition.
type action struct {
	name string
	// fallback is stored when no more specific message applies.
	fallback string
	// check validates input before any I/O.
	check func() error
	// prepare runs after validation, before connecting.
	prepare func(ctx context.Context) error
	// needSigner requests a binding that can submit transactions.
	needSigner bool
	// registered requires the caller to have an on-chain profile.
	registered bool
	// run does the work and returns the state change to commit. A non-nil
	// commit is applied even when err is set.
	run func(ctx context.Context, b *Binding) (commit func(*State), err error)
}

// do runs a through the action protocol.
func (s *Session) do(ctx context.Context, a action) error {
	if !s.busy.CompareAndSwap(false, true) {
		s.metrics.RecordBusy()
		return chaterr.WithDetails(chaterr.ErrSessionBusy, map[string]string{"action": a.name})
	}
	defer s.busy.Store(false)

	s.update(func(st *State) { st.Error = "" })

	if a.check != nil {
		if err := a.check(); err != nil {
			return s.fail(a, err)
		}
	}

	s.update(func(st *State) { st.Loading = true })
	defer s.update(func(st *State) { st.Loading = false })

	if a.prepare != nil {
		if err := a.prepare(ctx); err != nil {
			return s.fail(a, err)
		}
	}

	b, err := s.connector.Connect(ctx, a.needSigner)
	if err != nil {
		return s.fail(a, err)
	}

	if a.registered {
		exists, err := b.Contract.CheckUserExists(ctx, b.Account)
		if err != nil {
			return s.fail(a, err)
		}
		if !exists {
			return s.fail(a, reject(chaterr.ErrAccountNotFound, msgCreateBeforeChat))
		}
	}

	commit, err := a.run(ctx, b)
	if commit != nil {
		s.update(commit)
	}
	if err != nil {
		return s.fail(a, err)
	}

	s.metrics.RecordAction(nil)
	s.log.Debug("%s ok", a.name)
	return nil
}

func (s *Session) fail(a action, err error) error {
	msg := userMessage(err, a.fallback)
	s.update(func(st *State) { st.Error = msg })
	s.metrics.RecordAction(err)
	s.log.Error("%s failed: %v", a.name, err)
	return &ActionError{Action: a.name, Message: msg, Err: err}
}

// wait blocks until p is finalized or the finalization timeout elapses.
func (s *Session) wait(ctx context.Context, p Pending) error {
	s.log.Debug("waiting for %s", p.Hash().Hex())
	_, err := p.Wait(ctx, s.timeout)
	return err
}
