package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	"github.com/allisson/storefront/internal/metrics"
)

// SchedulerConfig bounds the scheduler's retries and concurrency.
type SchedulerConfig struct {
	// MaxAttempts is the number of failed provider calls after which an action is
	// dead-lettered.
	MaxAttempts int
	// QueueSize is the number of accepted actions waiting to be picked up. Submit blocks
	// while the queue is full.
	QueueSize int
	// MaxInFlight caps concurrent provider calls.
	MaxInFlight int
	// MaxPending caps actions taken off the queue that have not finished yet, including
	// those waiting out a backoff. Once reached the queue fills up and Submit blocks.
	MaxPending int
	// DeadLetterMemory is the number of dead-lettered keys remembered so that redelivered
	// events for them are ignored.
	DeadLetterMemory int
	// Backoff computes the wait between attempts.
	Backoff Backoff
}

// Result describes an action that reached a terminal state.
type Result struct {
	Action    dispatchDomain.DomainAction
	Status    dispatchDomain.ActionStatus
	Attempts  int
	LastError string
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSleeper replaces the backoff wait. fn returns false when ctx ended the wait.
func WithSleeper(fn func(ctx context.Context, d time.Duration) bool) SchedulerOption {
	return func(s *Scheduler) {
		s.sleep = fn
	}
}

// WithClock replaces the time source used for timestamps.
func WithClock(fn func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = fn
	}
}

// WithObserver registers fn to receive every terminal Result.
func WithObserver(fn func(Result)) SchedulerOption {
	return func(s *Scheduler) {
		s.observe = fn
	}
}

// WithJitterSource replaces the random source of the backoff jitter.
func WithJitterSource(fn func() float64) SchedulerOption {
	return func(s *Scheduler) {
		s.cfg.Backoff.random = fn
	}
}

const (
	defaultDeadLetterMemory = 10000
	abandonedReason         = "abandoned at shutdown"
	abandonStoreTimeout     = 5 * time.Second
)

type pendingAction struct {
	action  dispatchDomain.DomainAction
	status  dispatchDomain.ActionStatus
	retry   dispatchDomain.RetryState
	settled []func()
}

// Scheduler drives each submitted action through
//
//	Pending -> InFlight -> Succeeded
//	                    -> AwaitingBackoff -> Pending
//	                    -> DeadLettered
//
// Every pending action owns a goroutine and timer, so a slow or failing key never delays
// unrelated keys. The ledger is consulted before every attempt; when it cannot be read the
// attempt is skipped and the check is retried with backoff.
type Scheduler struct {
	cfg         SchedulerConfig
	ledger      LedgerRepository
	invoker     Invoker
	deadLetters DeadLetterRepository
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger

	queue   chan *pendingAction
	sem     *semaphore.Weighted
	slots   *semaphore.Weighted
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) bool
	observe func(Result)
	done    chan struct{}

	mu           sync.Mutex
	pending      map[dispatchDomain.ActionKey]*pendingAction
	deadLettered map[dispatchDomain.ActionKey]struct{}
	deadOrder    []dispatchDomain.ActionKey
	idle         chan struct{}
	started      bool
	closed       bool
}

// NewScheduler creates a Scheduler. Run must be called to start processing.
func NewScheduler(
	cfg SchedulerConfig,
	ledger LedgerRepository,
	invoker Invoker,
	deadLetters DeadLetterRepository,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}
	if cfg.MaxPending < cfg.MaxInFlight {
		cfg.MaxPending = cfg.MaxInFlight
	}
	if cfg.DeadLetterMemory < 1 {
		cfg.DeadLetterMemory = defaultDeadLetterMemory
	}

	s := &Scheduler{
		cfg:          cfg,
		ledger:       ledger,
		invoker:      invoker,
		deadLetters:  deadLetters,
		metrics:      businessMetrics,
		logger:       logger,
		queue:        make(chan *pendingAction, cfg.QueueSize),
		sem:          semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		slots:        semaphore.NewWeighted(int64(cfg.MaxPending)),
		now:          time.Now,
		sleep:        sleepContext,
		observe:      func(Result) {},
		done:         make(chan struct{}),
		pending:      make(map[dispatchDomain.ActionKey]*pendingAction),
		deadLettered: make(map[dispatchDomain.ActionKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Submit accepts an action for delivery. A submission for a (kind, subject) that is
// already pending is coalesced into it. When the queue is full Submit blocks until there
// is room, ctx is done or the scheduler stops.
func (s *Scheduler) Submit(ctx context.Context, action dispatchDomain.DomainAction) error {
	return s.SubmitTracked(ctx, action, nil)
}

// SubmitTracked is Submit with a callback. settled runs once the action, or the pending
// action it was coalesced into, is delivered or dead-lettered. It never runs for an action
// abandoned at shutdown, nor when SubmitTracked returns an error.
func (s *Scheduler) SubmitTracked(
	ctx context.Context,
	action dispatchDomain.DomainAction,
	settled func(),
) error {
	if err := action.Validate(); err != nil {
		return err
	}

	key := action.Key()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return dispatchDomain.ErrSchedulerClosed
	}
	if existing, ok := s.pending[key]; ok {
		if settled != nil {
			existing.settled = append(existing.settled, settled)
		}
		s.mu.Unlock()
		s.logger.Debug("action coalesced with pending action",
			slog.String("key", key.String()),
			slog.String("idempotency_key", action.IdempotencyKey),
		)
		return nil
	}
	if _, ok := s.deadLettered[key]; ok {
		s.mu.Unlock()
		s.logger.Debug("action already dead-lettered",
			slog.String("key", key.String()),
			slog.String("idempotency_key", action.IdempotencyKey),
		)
		if settled != nil {
			settled()
		}
		return nil
	}
	pa := &pendingAction{action: action, status: dispatchDomain.StatusPending}
	if settled != nil {
		pa.settled = []func(){settled}
	}
	s.pending[key] = pa
	s.mu.Unlock()

	select {
	case s.queue <- pa:
		return nil
	case <-ctx.Done():
		s.forget(pa)
		return ctx.Err()
	case <-s.done:
		s.forget(pa)
		return dispatchDomain.ErrSchedulerClosed
	}
}

// Run processes submitted actions until ctx is done, then waits for in-progress actions
// to stop. At most MaxPending actions are processed at once. Change-feed actions
// interrupted by shutdown stay unsettled and are derived again when their events are
// redelivered; interrupted inline actions are dead-lettered.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("dispatch scheduler started",
		slog.Int("max_attempts", s.cfg.MaxAttempts),
		slog.Int("queue_size", s.cfg.QueueSize),
		slog.Int("max_in_flight", s.cfg.MaxInFlight),
		slog.Int("max_pending", s.cfg.MaxPending),
	)

	var wg sync.WaitGroup

loop:
	for {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			s.slots.Release(1)
			break loop
		case pa := <-s.queue:
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer s.slots.Release(1)
				s.process(ctx, pa)
			}()
		}
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.done)

	wg.Wait()

	for {
		select {
		case pa := <-s.queue:
			s.abandon(pa, s.actionLogger(pa.action))
		default:
			s.logger.Info("dispatch scheduler stopped")
			return nil
		}
	}
}

// Drain blocks until no action is pending or ctx is done.
func (s *Scheduler) Drain(ctx context.Context) error {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	if s.idle == nil {
		s.idle = make(chan struct{})
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of actions not yet in a terminal state.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Status returns the state of a pending action.
func (s *Scheduler) Status(key dispatchDomain.ActionKey) (dispatchDomain.ActionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pa, ok := s.pending[key]; ok {
		return pa.status, true
	}
	if _, ok := s.deadLettered[key]; ok {
		return dispatchDomain.StatusDeadLettered, true
	}
	return "", false
}

func (s *Scheduler) process(ctx context.Context, pa *pendingAction) {
	action := pa.action
	logger := s.actionLogger(action)

	var (
		ledgerFailures   int
		ledgerDelay      time.Duration
		attemptDelay     time.Duration
		providerAttempts int
	)

	for {
		completed, err := s.ledger.HasCompleted(ctx, action.Kind, action.SubjectID)
		if err != nil {
			if ctx.Err() != nil {
				s.abandon(pa, logger)
				return
			}
			ledgerFailures++
			ledgerDelay = s.cfg.Backoff.Delay(ledgerFailures, ledgerDelay)
			logger.Warn("ledger unavailable, attempt deferred",
				slog.Any("error", err),
				slog.Duration("retry_in", ledgerDelay),
			)
			s.setStatus(pa, dispatchDomain.StatusAwaitingBackoff)
			if !s.sleep(ctx, ledgerDelay) {
				s.abandon(pa, logger)
				return
			}
			s.setStatus(pa, dispatchDomain.StatusPending)
			continue
		}
		ledgerFailures, ledgerDelay = 0, 0

		if completed {
			logger.Debug("action already completed")
			s.finish(ctx, pa, dispatchDomain.StatusSucceeded, providerAttempts)
			return
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.abandon(pa, logger)
			return
		}
		s.setStatus(pa, dispatchDomain.StatusInFlight)
		outcome := s.invoker.Invoke(ctx, action.Kind, action.SubjectID)
		s.sem.Release(1)
		providerAttempts++

		if outcome.Delivered {
			s.complete(ctx, pa, providerAttempts, logger)
			return
		}

		if ctx.Err() != nil {
			s.abandon(pa, logger)
			return
		}

		now := s.now().UTC()
		s.mu.Lock()
		pa.retry.AttemptCount++
		pa.retry.LastError = outcome.Reason
		if pa.retry.FirstFailedAt.IsZero() {
			pa.retry.FirstFailedAt = now
		}
		retry := pa.retry
		s.mu.Unlock()

		if retry.AttemptCount >= s.cfg.MaxAttempts {
			s.deadLetter(ctx, pa, retry, logger)
			return
		}

		attemptDelay = s.cfg.Backoff.Delay(retry.AttemptCount, attemptDelay)
		s.mu.Lock()
		pa.retry.NextAttemptAt = now.Add(attemptDelay)
		pa.status = dispatchDomain.StatusAwaitingBackoff
		s.mu.Unlock()

		logger.Info("provider attempt failed, retrying",
			slog.Int("attempt", retry.AttemptCount),
			slog.String("reason", outcome.Reason),
			slog.Duration("retry_in", attemptDelay),
		)

		if !s.sleep(ctx, attemptDelay) {
			s.abandon(pa, logger)
			return
		}
		s.setStatus(pa, dispatchDomain.StatusPending)
	}
}

// complete records the delivery in the ledger. A concurrent completion of the same key
// counts as success.
func (s *Scheduler) complete(ctx context.Context, pa *pendingAction, attempts int, logger *slog.Logger) {
	entry := &dispatchDomain.LedgerEntry{
		Kind:           pa.action.Kind,
		SubjectID:      pa.action.SubjectID,
		IdempotencyKey: pa.action.IdempotencyKey,
		Attempts:       attempts,
		CompletedAt:    s.now().UTC(),
	}

	var failures int
	var delay time.Duration
	for {
		err := s.ledger.MarkCompleted(ctx, entry)
		if err == nil || errors.Is(err, dispatchDomain.ErrAlreadyCompleted) {
			logger.Info("action delivered", slog.Int("attempts", attempts))
			s.finish(ctx, pa, dispatchDomain.StatusSucceeded, attempts)
			return
		}
		if ctx.Err() != nil {
			logger.Error("action delivered but not recorded before shutdown", slog.Any("error", err))
			s.abandon(pa, logger)
			return
		}

		failures++
		delay = s.cfg.Backoff.Delay(failures, delay)
		logger.Warn("failed to record completion, retrying",
			slog.Any("error", err),
			slog.Duration("retry_in", delay),
		)
		if !s.sleep(ctx, delay) {
			s.abandon(pa, logger)
			return
		}
	}
}

func (s *Scheduler) deadLetter(
	ctx context.Context,
	pa *pendingAction,
	retry dispatchDomain.RetryState,
	logger *slog.Logger,
) {
	deadLetter := s.newDeadLetter(pa, retry)

	var failures int
	var delay time.Duration
	for {
		err := s.deadLetters.Create(ctx, deadLetter)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			logger.Error("action exhausted its attempts but the dead letter was not stored before shutdown",
				slog.Int("attempts", retry.AttemptCount),
				slog.String("last_error", retry.LastError),
				slog.Any("error", err),
			)
			s.forget(pa)
			return
		}
		failures++
		delay = s.cfg.Backoff.Delay(failures, delay)
		logger.Warn("failed to store dead letter, retrying",
			slog.Any("error", err),
			slog.Duration("retry_in", delay),
		)
		if !s.sleep(ctx, delay) {
			logger.Error("action exhausted its attempts but the dead letter was not stored before shutdown",
				slog.Int("attempts", retry.AttemptCount),
				slog.String("last_error", retry.LastError),
			)
			s.forget(pa)
			return
		}
	}

	logger.Error("action dead-lettered",
		slog.Int("attempts", retry.AttemptCount),
		slog.String("last_error", retry.LastError),
		slog.String("dead_letter_id", deadLetter.ID.String()),
	)

	s.rememberDeadLettered(pa.action.Key())
	s.finish(ctx, pa, dispatchDomain.StatusDeadLettered, retry.AttemptCount)
}

func (s *Scheduler) newDeadLetter(pa *pendingAction, retry dispatchDomain.RetryState) *dispatchDomain.DeadLetter {
	now := s.now().UTC()
	firstFailedAt := retry.FirstFailedAt
	if firstFailedAt.IsZero() {
		firstFailedAt = now
	}
	return &dispatchDomain.DeadLetter{
		ID:             uuid.Must(uuid.NewV7()),
		Kind:           pa.action.Kind,
		SubjectID:      pa.action.SubjectID,
		IdempotencyKey: pa.action.IdempotencyKey,
		LastError:      retry.LastError,
		AttemptCount:   retry.AttemptCount,
		FirstFailedAt:  firstFailedAt,
		CreatedAt:      now,
	}
}

// rememberDeadLettered keeps the most recent DeadLetterMemory keys.
func (s *Scheduler) rememberDeadLettered(key dispatchDomain.ActionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deadLettered[key]; ok {
		return
	}
	s.deadLettered[key] = struct{}{}
	s.deadOrder = append(s.deadOrder, key)
	for len(s.deadOrder) > s.cfg.DeadLetterMemory {
		delete(s.deadLettered, s.deadOrder[0])
		s.deadOrder = s.deadOrder[1:]
	}
}

func (s *Scheduler) finish(ctx context.Context, pa *pendingAction, status dispatchDomain.ActionStatus, attempts int) {
	s.mu.Lock()
	pa.status = status
	lastError := pa.retry.LastError
	s.mu.Unlock()

	// Settle before the key leaves the registry, including submissions coalesced meanwhile.
	for {
		s.mu.Lock()
		settled := pa.settled
		pa.settled = nil
		if len(settled) == 0 {
			s.removeLocked(pa)
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()

		for _, fn := range settled {
			fn()
		}
	}

	s.metrics.RecordOperation(ctx, "dispatch", string(pa.action.Kind), string(status))

	s.observe(Result{
		Action:    pa.action,
		Status:    status,
		Attempts:  attempts,
		LastError: lastError,
	})
}

// abandon drops an action interrupted by shutdown. A change-feed action is left unsettled
// so its event is redelivered. An inline action has no other source and is dead-lettered.
func (s *Scheduler) abandon(pa *pendingAction, logger *slog.Logger) {
	s.mu.Lock()
	retry := pa.retry
	s.mu.Unlock()

	if pa.action.Origin == dispatchDomain.OriginInline {
		ctx, cancel := context.WithTimeout(context.Background(), abandonStoreTimeout)
		defer cancel()

		retry.LastError = abandonedReason
		deadLetter := s.newDeadLetter(pa, retry)
		if err := s.deadLetters.Create(ctx, deadLetter); err != nil {
			logger.Error("failed to dead-letter inline action abandoned at shutdown",
				slog.Int("attempts", retry.AttemptCount),
				slog.Any("error", err),
			)
			s.forget(pa)
			return
		}

		logger.Warn("inline action dead-lettered at shutdown",
			slog.Int("attempts", retry.AttemptCount),
			slog.String("dead_letter_id", deadLetter.ID.String()),
		)
		s.rememberDeadLettered(pa.action.Key())
		s.finish(ctx, pa, dispatchDomain.StatusDeadLettered, retry.AttemptCount)
		return
	}

	logger.Warn("action abandoned at shutdown, awaiting redelivery",
		slog.Int("attempts", retry.AttemptCount),
	)
	s.forget(pa)
}

func (s *Scheduler) forget(pa *pendingAction) {
	s.mu.Lock()
	s.removeLocked(pa)
	s.mu.Unlock()
}

func (s *Scheduler) removeLocked(pa *pendingAction) {
	key := pa.action.Key()
	if current, ok := s.pending[key]; ok && current == pa {
		delete(s.pending, key)
	}
	if len(s.pending) == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
}

func (s *Scheduler) setStatus(pa *pendingAction, status dispatchDomain.ActionStatus) {
	s.mu.Lock()
	pa.status = status
	s.mu.Unlock()
}

func (s *Scheduler) actionLogger(action dispatchDomain.DomainAction) *slog.Logger {
	return s.logger.With(
		slog.String("kind", string(action.Kind)),
		slog.Int64("subject_id", action.SubjectID),
		slog.String("idempotency_key", action.IdempotencyKey),
	)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
