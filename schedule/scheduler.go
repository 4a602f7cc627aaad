package schedule

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Callback is invoked when a scheduled deadline expires. It receives the
// conversation id and the timer generation captured at arm time; the receiver
// must reject callbacks whose generation no longer matches the conversation's
// current one.
type Callback func(conversationID string, generation uint64)

// Scheduler arms one cancellable deferred check per conversation. Firing is
// at-least-once per armed deadline; cancellation is best-effort — a timer may
// still fire after Cancel due to a race, which is why every fire carries its
// generation.
type Scheduler interface {
	// Schedule arms (or re-arms) the timer for a conversation. An existing
	// timer for the same conversation is replaced.
	Schedule(conversationID string, generation uint64, delay time.Duration)

	// Cancel stops the pending timer for a conversation, if any.
	Cancel(conversationID string)

	// Stop cancels all pending timers.
	Stop()
}

// TimerScheduler is the in-process Scheduler over time.AfterFunc.
type TimerScheduler struct {
	callback Callback
	timers   map[string]*armedTimer
	logger   *zap.Logger
	mu       sync.Mutex
	stopped  bool
}

type armedTimer struct {
	timer      *time.Timer
	generation uint64
	deadline   time.Time
}

// NewTimerScheduler creates a scheduler delivering fires to the callback.
func NewTimerScheduler(callback Callback, logger *zap.Logger) *TimerScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimerScheduler{
		callback: callback,
		timers:   make(map[string]*armedTimer),
		logger:   logger.With(zap.String("component", "timeout_scheduler")),
	}
}

// Schedule arms the timer for a conversation, replacing any pending one.
func (s *TimerScheduler) Schedule(conversationID string, generation uint64, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if existing, ok := s.timers[conversationID]; ok {
		existing.timer.Stop()
	}

	armed := &armedTimer{
		generation: generation,
		deadline:   time.Now().Add(delay),
	}
	armed.timer = time.AfterFunc(delay, func() {
		s.fire(conversationID, generation)
	})
	s.timers[conversationID] = armed

	s.logger.Debug("timer armed",
		zap.String("conversation_id", conversationID),
		zap.Uint64("generation", generation),
		zap.Duration("delay", delay),
	)
}

// Cancel stops the pending timer for a conversation.
func (s *TimerScheduler) Cancel(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if armed, ok := s.timers[conversationID]; ok {
		armed.timer.Stop()
		delete(s.timers, conversationID)
		s.logger.Debug("timer cancelled", zap.String("conversation_id", conversationID))
	}
}

// Pending reports whether a timer is armed for the conversation, and its
// generation. Used by tests and the single-timer invariant checks.
func (s *TimerScheduler) Pending(conversationID string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	armed, ok := s.timers[conversationID]
	if !ok {
		return 0, false
	}
	return armed.generation, true
}

// Stop cancels all pending timers. The scheduler accepts no new work after.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, armed := range s.timers {
		armed.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *TimerScheduler) fire(conversationID string, generation uint64) {
	s.mu.Lock()
	// Only forget the handle if it is still the one that fired; a re-armed
	// timer must not be dropped by its predecessor's fire.
	if armed, ok := s.timers[conversationID]; ok && armed.generation == generation {
		delete(s.timers, conversationID)
	}
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		return
	}
	s.callback(conversationID, generation)
}
