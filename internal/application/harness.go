package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
	"github.com/bnema/opsbot/internal/ports"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultActionTimeout  = 60 * time.Second
)

// ActionFunc performs one action against a ready session.
type ActionFunc func(ctx context.Context, session *Session) (domain.Outcome, error)

// Step is an ActionFunc labelled with the action it performs.
type Step struct {
	Type domain.ActionType
	Run  ActionFunc
	// PerCall steps get no overall deadline. Each remote call they make is
	// bounded on its own through Session.bounded.
	PerCall bool
}

type RunOptions struct {
	ContinueOnError bool
	// Progress, when set, is called before each step starts.
	Progress func(StepProgress)
}

// StepProgress names the step about to run. Index counts from 1.
type StepProgress struct {
	Index  int
	Total  int
	Action domain.ActionType
}

// Result is what one session produced. Outcomes has one entry per submitted
// step, in submission order.
type Result struct {
	Outcomes []domain.Outcome
	State    domain.SessionState
	Identity domain.BotIdentity
	CloseErr error
}

// Err joins every failed outcome's error with the close error.
func (r Result) Err() error {
	var errs []error
	for _, outcome := range r.Outcomes {
		if !outcome.Success && !outcome.Skipped && outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	if r.CloseErr != nil {
		errs = append(errs, r.CloseErr)
	}
	return errors.Join(errs...)
}

// Harness owns the lifecycle of short-lived bot sessions: open, await ready,
// run actions under a deadline, close exactly once.
type Harness struct {
	gateway        ports.ChatGateway
	log            logger.Logger
	connectTimeout time.Duration
	actionTimeout  time.Duration
}

type HarnessOption func(*Harness)

func WithConnectTimeout(d time.Duration) HarnessOption {
	return func(h *Harness) {
		if d > 0 {
			h.connectTimeout = d
		}
	}
}

func WithActionTimeout(d time.Duration) HarnessOption {
	return func(h *Harness) {
		if d > 0 {
			h.actionTimeout = d
		}
	}
}

func NewHarness(gateway ports.ChatGateway, log logger.Logger, opts ...HarnessOption) *Harness {
	if log == nil {
		log = logger.NewNop()
	}

	h := &Harness{
		gateway:        gateway,
		log:            log,
		connectTimeout: DefaultConnectTimeout,
		actionTimeout:  DefaultActionTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RunAction runs a single step in its own session. A close failure is joined
// into a failed outcome and only logged when the action succeeded.
func (h *Harness) RunAction(ctx context.Context, token string, intents domain.IntentSet, step Step) domain.Outcome {
	result := h.RunActions(ctx, token, intents, RunOptions{}, step)
	outcome := result.Outcomes[0]
	if result.CloseErr != nil && !outcome.Success {
		outcome = domain.Failed(outcome.Action, fmt.Errorf("%w; %w", outcome.Err, result.CloseErr))
	}
	return outcome
}

// RunActions runs steps serially in one session. Unless ContinueOnError is
// set, the first failure skips every later step. The session is closed before
// RunActions returns.
func (h *Harness) RunActions(ctx context.Context, token string, intents domain.IntentSet, opts RunOptions, steps ...Step) Result {
	session := &Session{state: domain.SessionInitializing, log: h.log, actionTimeout: h.actionTimeout}
	result := Result{Outcomes: make([]domain.Outcome, 0, len(steps))}

	conn, err := h.connect(ctx, session, token, intents)
	if err != nil {
		result.State = session.State()
		for i, step := range steps {
			if i == 0 {
				result.Outcomes = append(result.Outcomes, domain.Failed(step.Type, err))
				continue
			}
			result.Outcomes = append(result.Outcomes, domain.SkippedOutcome(step.Type, "session did not connect"))
		}
		return result
	}
	result.Identity = session.Identity()

	failed := false
	for i, step := range steps {
		if failed && !opts.ContinueOnError {
			result.Outcomes = append(result.Outcomes, domain.SkippedOutcome(step.Type, "skipped after earlier failure"))
			continue
		}
		if err := ctx.Err(); err != nil {
			result.Outcomes = append(result.Outcomes, domain.Failed(step.Type, err))
			failed = true
			continue
		}

		if opts.Progress != nil {
			opts.Progress(StepProgress{Index: i + 1, Total: len(steps), Action: step.Type})
		}
		outcome := h.runStep(ctx, session, step)
		if !outcome.Success {
			failed = true
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.CloseErr = session.close(conn)
	result.State = session.State()
	return result
}

func (h *Harness) connect(ctx context.Context, session *Session, token string, intents domain.IntentSet) (ports.ChatConn, error) {
	if strings.TrimSpace(token) == "" {
		session.fail()
		return nil, fmt.Errorf("%w: bot token is empty", domain.ErrConfig)
	}
	intents = domain.MinimumIntents.With(intents)

	connectCtx, cancel := context.WithTimeout(ctx, h.connectTimeout)
	defer cancel()

	h.log.Debug("opening session", logger.Strings("intents", intents.Names()), logger.Duration("deadline", h.connectTimeout))
	conn, err := h.gateway.Open(connectCtx, token, intents)
	if err != nil {
		session.fail()
		err = deadlineError(connectCtx, err, "connect")
		h.log.Warn("session failed to open", logger.Error(err))
		return nil, err
	}

	select {
	case identity := <-conn.Ready():
		if err := session.ready(conn, identity); err != nil {
			session.fail()
			return nil, errors.Join(err, conn.Close())
		}
		h.log.Debug("session ready", logger.Stringer("bot", identity.UserID), logger.Int("guilds", len(identity.GuildIDs)))
		return conn, nil
	case <-connectCtx.Done():
		session.fail()
		err := deadlineError(connectCtx, connectCtx.Err(), "await ready")
		if closeErr := conn.Close(); closeErr != nil {
			err = fmt.Errorf("%w; close: %w", err, closeErr)
		}
		h.log.Warn("session never became ready", logger.Error(err))
		return nil, err
	}
}

func (h *Harness) runStep(ctx context.Context, session *Session, step Step) domain.Outcome {
	var (
		actionCtx context.Context
		cancel    context.CancelFunc
	)
	if step.PerCall {
		actionCtx, cancel = context.WithCancel(ctx)
	} else {
		actionCtx, cancel = context.WithTimeout(ctx, h.actionTimeout)
	}
	defer cancel()

	log := h.log.With(logger.String("action", string(step.Type)))
	log.Debug("running action", logger.Duration("deadline", h.actionTimeout), logger.Bool("per_call", step.PerCall))

	outcome, err := step.Run(actionCtx, session)
	if err != nil {
		err = deadlineError(actionCtx, err, "action")
		log.Warn("action failed", logger.String("kind", domain.KindOf(err)), logger.Error(err))
		return domain.Failed(step.Type, err)
	}
	if outcome.Action == "" {
		outcome.Action = step.Type
	}
	return outcome
}

// deadlineError reports an expired deadline as ErrTimeout. Plain
// cancellation keeps the original error.
func deadlineError(ctx context.Context, err error, phase string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%w: %s: %w", domain.ErrTimeout, phase, err)
	}
	return err
}

// Session is the handle an ActionFunc borrows. Its API is only usable while
// the session is ready.
type Session struct {
	mu            sync.Mutex
	state         domain.SessionState
	conn          ports.ChatConn
	identity      domain.BotIdentity
	log           logger.Logger
	actionTimeout time.Duration
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) Identity() domain.BotIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.identity
}

func (s *Session) API() (ports.ChatAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionReady || s.conn == nil {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrSessionNotReady, s.state)
	}
	return s.conn.API(), nil
}

// bounded runs call under its own action deadline.
func (s *Session) bounded(ctx context.Context, phase string, call func(context.Context) error) error {
	timeout := s.actionTimeout
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := call(callCtx); err != nil {
		return deadlineError(callCtx, err, phase)
	}
	return nil
}

func (s *Session) ready(conn ports.ChatConn, identity domain.BotIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.Transition(domain.SessionReady)
	if err != nil {
		return err
	}
	s.state = next
	s.conn = conn
	s.identity = identity
	return nil
}

func (s *Session) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Terminal() {
		s.state = domain.SessionFailed
	}
}

func (s *Session) close(conn ports.ChatConn) error {
	s.mu.Lock()
	next, err := s.state.Transition(domain.SessionClosing)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	closeErr := conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn = nil
	if closeErr != nil {
		s.state = domain.SessionFailed
		s.log.Warn("session close failed", logger.Error(closeErr))
		return fmt.Errorf("close session: %w", closeErr)
	}
	s.state = domain.SessionClosed
	s.log.Debug("session closed")
	return nil
}
