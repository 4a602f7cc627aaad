package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/gateway"
	"github.com/BaSui01/askflow/internal/metrics"
	"github.com/BaSui01/askflow/routing"
	"github.com/BaSui01/askflow/schedule"
	"github.com/BaSui01/askflow/store"
	"github.com/BaSui01/askflow/types"
)

// Options configures the orchestrator.
type Options struct {
	// InitialWait is how long a responder gets before the first follow-up
	// (default: 5m). Also the window for the delivery acknowledgment.
	InitialWait time.Duration

	// RetryWait is how long a follow-up waits before escalating (default: 2m).
	RetryWait time.Duration

	// MaxEscalationLevels bounds the responder chain depth (default: 3).
	// Levels beyond it resolve to the root authority.
	MaxEscalationLevels int

	// PerRoleWaits overrides InitialWait for specific responder roles.
	PerRoleWaits map[string]time.Duration

	// DisableAutoEscalation keeps conversations cycling follow-ups instead of
	// escalating on timeout. Explicit declines still escalate.
	DisableAutoEscalation bool

	// Templates are the operator-configurable message texts.
	Templates Templates

	// Retry is the delivery retry policy for outbound sends.
	Retry gateway.RetryConfig

	Logger  *zap.Logger
	Metrics *metrics.Collector
}

func (o *Options) applyDefaults() {
	if o.InitialWait <= 0 {
		o.InitialWait = 5 * time.Minute
	}
	if o.RetryWait <= 0 {
		o.RetryWait = 2 * time.Minute
	}
	if o.MaxEscalationLevels <= 0 {
		o.MaxEscalationLevels = 3
	}
	if o.Templates == (Templates{}) {
		o.Templates = DefaultTemplates()
	}
	if o.Retry == (gateway.RetryConfig{}) {
		o.Retry = gateway.DefaultRetryConfig()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// QuestionRequest describes a question submission.
type QuestionRequest struct {
	Asker     string
	AskerRole string
	Content   string
	Category  string
	Scope     types.ScopeContext
	TaskID    string
}

// Orchestrator is the conversation state machine and the single writer for
// every conversation. It owns the lifecycle, serializes concurrent events per
// conversation id and drives the resolver, scheduler, acknowledgment
// dispatcher and escalation coordinator.
type Orchestrator struct {
	store    store.ConversationStore
	gateway  gateway.Gateway
	resolver *routing.Resolver
	timers   *schedule.TimerScheduler
	acks     *ackDispatcher
	escalate *escalationCoordinator

	opts    Options
	locks   *keyedMutex
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates an orchestrator. The gateway is wrapped with the configured
// retry policy; the resolver's table must already have been validated.
func New(st store.ConversationStore, gw gateway.Gateway, resolver *routing.Resolver, opts Options) (*Orchestrator, error) {
	opts.applyDefaults()

	tpls, err := parseTemplates(opts.Templates)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.With(zap.String("component", "orchestrator"))
	retrying := gateway.NewRetryingGateway(gw, opts.Retry, opts.Logger)

	o := &Orchestrator{
		store:    st,
		gateway:  retrying,
		resolver: resolver,
		opts:     opts,
		locks:    newKeyedMutex(),
		logger:   logger,
		metrics:  opts.Metrics,
	}
	o.acks = newAckDispatcher(retrying, tpls, opts.Logger)
	o.escalate = newEscalationCoordinator(resolver, tpls, opts.MaxEscalationLevels, opts.Logger)
	o.timers = schedule.NewTimerScheduler(o.onTimerFired, opts.Logger)
	return o, nil
}

// Stop cancels all pending timers. Conversations stay durable; Recover picks
// them back up on the next start.
func (o *Orchestrator) Stop() {
	o.timers.Stop()
}

// GatewayHandler returns the inbound dispatch function to register on the
// gateway's listener.
func (o *Orchestrator) GatewayHandler() gateway.ReceiveFunc {
	return func(ctx context.Context, msg *types.Message) {
		var err error
		switch msg.Type {
		case types.MessageAcknowledgment:
			err = o.HandleDeliveryAcknowledged(ctx, msg.ConversationID, msg.Sender)
		case types.MessageAnswer:
			err = o.HandleAnswer(ctx, msg.ConversationID, msg)
		case types.MessageDecline:
			err = o.HandleDecline(ctx, msg.ConversationID, msg.Sender, msg.Content)
		default:
			o.logger.Debug("ignoring inbound message",
				zap.String("type", string(msg.Type)),
				zap.String("conversation_id", msg.ConversationID))
			return
		}
		if err != nil {
			o.logger.Warn("inbound message rejected",
				zap.String("type", string(msg.Type)),
				zap.String("conversation_id", msg.ConversationID),
				zap.Error(err))
		}
	}
}

// InitiateQuestion creates a conversation, routes it to the level-0 responder
// and sends the question. Fails with ROUTING_UNRESOLVED only when not even the
// root authority can be determined, which Table.Validate catches at startup.
func (o *Orchestrator) InitiateQuestion(ctx context.Context, req QuestionRequest) (*types.Conversation, error) {
	if req.Asker == "" || req.AskerRole == "" || req.Content == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "asker, asker_role and content are required")
	}
	if req.Category == "" {
		req.Category = types.DefaultCategory
	}

	res, err := o.resolver.Resolve(req.AskerRole, req.Category, 0, req.Scope)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	wait := o.waitFor(res.ResponderRole)
	deadline := now.Add(wait)
	conv := &types.Conversation{
		ID:               uuid.New().String(),
		Asker:            req.Asker,
		AskerRole:        req.AskerRole,
		CurrentResponder: res.Responder,
		ResponderRole:    res.ResponderRole,
		State:            types.StateInitiated,
		EscalationLevel:  0,
		Generation:       1,
		QuestionCategory: req.Category,
		Question:         req.Content,
		Scope:            req.Scope,
		TaskID:           req.TaskID,
		CreatedAt:        now,
		TimeoutAt:        &deadline,
	}

	if err := o.store.Create(ctx, conv); err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create conversation").WithCause(err)
	}

	o.timers.Schedule(conv.ID, conv.Generation, wait)
	if o.metrics != nil {
		o.metrics.RecordInitiated(conv.QuestionCategory)
	}
	o.logger.Info("conversation initiated",
		zap.String("conversation_id", conv.ID),
		zap.String("asker", conv.Asker),
		zap.String("responder", conv.CurrentResponder),
		zap.String("category", conv.QuestionCategory),
	)

	question := types.NewMessage(types.MessageQuestion, conv.ID, conv.Asker, conv.CurrentResponder, conv.Question)
	question.RequiresAck = true
	o.sendQuestion(ctx, question)

	out := *conv
	return &out, nil
}

// HandleDeliveryAcknowledged moves the conversation to WAITING once the
// transport confirmed the responder received the question, dispatches the
// "please wait" acknowledgment to the asker and arms the initial-wait timer.
// Idempotent: a second acknowledgment for an already-WAITING conversation is a
// no-op, not an error.
func (o *Orchestrator) HandleDeliveryAcknowledged(ctx context.Context, conversationID, by string) error {
	unlock := o.locks.Lock(conversationID)

	conv, err := o.get(ctx, conversationID)
	if err != nil {
		unlock()
		return err
	}
	if conv.IsTerminal() {
		unlock()
		return types.NewError(types.ErrInvalidTransition, "conversation is terminal").WithConversation(conversationID)
	}
	if conv.State == types.StateWaiting || conv.State == types.StateFollowUp {
		// Duplicate or late receipt; the wait clock is already running.
		unlock()
		return nil
	}

	from := conv.State
	now := time.Now()
	wait := o.waitFor(conv.ResponderRole)
	deadline := now.Add(wait)

	conv.State = types.StateWaiting
	conv.AcknowledgedAt = &now
	conv.Generation++
	conv.TimeoutAt = &deadline

	err = o.store.ApplyTransition(ctx, conv, &types.ConversationEvent{
		ConversationID: conversationID,
		Type:           types.EventAcknowledged,
		FromState:      from,
		ToState:        types.StateWaiting,
		TriggeredBy:    by,
	})
	if err != nil {
		unlock()
		return types.NewError(types.ErrInternalError, "failed to persist transition").WithCause(err)
	}

	// The wait clock starts at delivery time: arm before dispatching the
	// acknowledgment so a slow or failing ack send cannot delay it.
	o.timers.Schedule(conversationID, conv.Generation, wait)
	o.recordTransition(types.EventAcknowledged)
	snapshot := *conv
	unlock()

	o.acks.dispatch(ctx, &snapshot)
	return nil
}

// HandleAnswer resolves the conversation and relays the answer to the asker.
// A late answer for a terminal conversation fails with
// INVALID_STATE_TRANSITION and is discarded.
func (o *Orchestrator) HandleAnswer(ctx context.Context, conversationID string, msg *types.Message) error {
	unlock := o.locks.Lock(conversationID)

	conv, err := o.get(ctx, conversationID)
	if err != nil {
		unlock()
		return err
	}
	if conv.IsTerminal() {
		unlock()
		o.logger.Info("discarding late answer",
			zap.String("conversation_id", conversationID),
			zap.String("sender", msg.Sender))
		return types.NewError(types.ErrInvalidTransition, "conversation is terminal").WithConversation(conversationID)
	}

	from := conv.State
	now := time.Now()
	conv.State = types.StateAnswered
	conv.Generation++
	conv.TimeoutAt = nil
	conv.ResolvedAt = &now

	err = o.store.ApplyTransition(ctx, conv, &types.ConversationEvent{
		ConversationID: conversationID,
		Type:           types.EventAnswered,
		FromState:      from,
		ToState:        types.StateAnswered,
		TriggeredBy:    msg.Sender,
		Payload:        map[string]any{"message_id": msg.ID},
	})
	if err != nil {
		unlock()
		return types.NewError(types.ErrInternalError, "failed to persist transition").WithCause(err)
	}

	o.timers.Cancel(conversationID)
	o.recordTransition(types.EventAnswered)
	if o.metrics != nil {
		o.metrics.RecordResolved("answered", now.Sub(conv.CreatedAt))
	}
	snapshot := *conv
	unlock()

	o.logger.Info("conversation answered",
		zap.String("conversation_id", conversationID),
		zap.Int("escalation_level", snapshot.EscalationLevel),
	)

	relay := types.NewMessage(types.MessageAnswer, conversationID, msg.Sender, snapshot.Asker, msg.Content)
	relay.ParentMessageID = msg.ID
	o.send(ctx, relay)
	return nil
}

// HandleTimeout is invoked by the scheduler. A callback whose generation no
// longer matches the conversation's current one lost a race with another
// transition and fails with STALE_TIMEOUT (logged, ignored, never retried).
func (o *Orchestrator) HandleTimeout(ctx context.Context, conversationID string, generation uint64) error {
	unlock := o.locks.Lock(conversationID)

	conv, err := o.get(ctx, conversationID)
	if err != nil {
		unlock()
		return err
	}
	if conv.Generation != generation || conv.IsTerminal() {
		unlock()
		if o.metrics != nil {
			o.metrics.RecordStaleTimeout()
		}
		o.logger.Debug("discarding stale timeout",
			zap.String("conversation_id", conversationID),
			zap.Uint64("fired_generation", generation),
			zap.Uint64("current_generation", conv.Generation))
		return types.NewError(types.ErrStaleTimeout, "timer generation is stale").WithConversation(conversationID)
	}

	if o.metrics != nil {
		o.metrics.RecordTimeout()
	}

	switch conv.State {
	case types.StateInitiated, types.StateWaiting, types.StateEscalated:
		return o.followUpLocked(ctx, conv, unlock)
	case types.StateFollowUp:
		if o.opts.DisableAutoEscalation {
			return o.repeatFollowUpLocked(ctx, conv, unlock, "auto-escalation disabled")
		}
		return o.escalateLocked(ctx, conv, unlock, escalationTrigger{
			kind:        triggerTimeout,
			triggeredBy: types.SystemActor,
		})
	default:
		unlock()
		return types.NewError(types.ErrInvalidTransition, "unexpected state for timeout").WithConversation(conversationID)
	}
}

// HandleDecline escalates immediately on an explicit "cannot help". Only the
// current responder may decline: a decline racing with an already-performed
// escalation targets a superseded level and is rejected, which closes the
// decline-vs-timeout race the same way the generation check closes the
// answer-vs-timeout race.
func (o *Orchestrator) HandleDecline(ctx context.Context, conversationID, responder, reason string) error {
	unlock := o.locks.Lock(conversationID)

	conv, err := o.get(ctx, conversationID)
	if err != nil {
		unlock()
		return err
	}
	if conv.IsTerminal() {
		unlock()
		return types.NewError(types.ErrInvalidTransition, "conversation is terminal").WithConversation(conversationID)
	}
	if responder != conv.CurrentResponder {
		unlock()
		return types.NewError(types.ErrInvalidTransition, "decline from a superseded responder").WithConversation(conversationID)
	}

	return o.escalateLocked(ctx, conv, unlock, escalationTrigger{
		kind:        triggerDecline,
		triggeredBy: responder,
		reason:      reason,
	})
}

// Cancel terminates the conversation. Only the original asker may cancel.
func (o *Orchestrator) Cancel(ctx context.Context, conversationID, by string) error {
	unlock := o.locks.Lock(conversationID)

	conv, err := o.get(ctx, conversationID)
	if err != nil {
		unlock()
		return err
	}
	if conv.IsTerminal() {
		unlock()
		return types.NewError(types.ErrInvalidTransition, "conversation is terminal").WithConversation(conversationID)
	}
	if by != conv.Asker {
		unlock()
		return types.NewError(types.ErrUnauthorized, "only the asker may cancel").WithConversation(conversationID)
	}

	from := conv.State
	now := time.Now()
	conv.State = types.StateCancelled
	conv.Generation++
	conv.TimeoutAt = nil
	conv.ResolvedAt = &now

	err = o.store.ApplyTransition(ctx, conv, &types.ConversationEvent{
		ConversationID: conversationID,
		Type:           types.EventCancelled,
		FromState:      from,
		ToState:        types.StateCancelled,
		TriggeredBy:    by,
	})
	if err != nil {
		unlock()
		return types.NewError(types.ErrInternalError, "failed to persist transition").WithCause(err)
	}

	o.timers.Cancel(conversationID)
	o.recordTransition(types.EventCancelled)
	if o.metrics != nil {
		o.metrics.RecordResolved("cancelled", now.Sub(conv.CreatedAt))
	}
	snapshot := *conv
	unlock()

	o.logger.Info("conversation cancelled", zap.String("conversation_id", conversationID))

	confirm := types.NewMessage(types.MessageAcknowledgment, conversationID, types.SystemActor, snapshot.Asker,
		render(o.acks.templates.cancelConfirmation, templateData{Asker: snapshot.Asker}))
	o.send(ctx, confirm)
	return nil
}

// Get returns the conversation by id.
func (o *Orchestrator) Get(ctx context.Context, conversationID string) (*types.Conversation, error) {
	return o.get(ctx, conversationID)
}

// Events returns the audit trail of a conversation.
func (o *Orchestrator) Events(ctx context.Context, conversationID string) ([]*types.ConversationEvent, error) {
	return o.store.ListEvents(ctx, conversationID)
}

// Recover re-arms the timer of every non-terminal conversation, restoring the
// single-timer invariant after a restart. Deadlines already in the past fire
// immediately.
func (o *Orchestrator) Recover(ctx context.Context) error {
	active, err := o.store.ListActive(ctx)
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to list active conversations").WithCause(err)
	}

	for _, conv := range active {
		if conv.TimeoutAt == nil {
			o.logger.Warn("active conversation without deadline, arming retry wait",
				zap.String("conversation_id", conv.ID))
			o.timers.Schedule(conv.ID, conv.Generation, o.opts.RetryWait)
			continue
		}
		delay := time.Until(*conv.TimeoutAt)
		if delay < 0 {
			delay = 0
		}
		o.timers.Schedule(conv.ID, conv.Generation, delay)
	}

	o.logger.Info("recovered active conversations", zap.Int("count", len(active)))
	return nil
}

// followUpLocked performs the WAITING -> TIMEOUT -> FOLLOW_UP compound
// transition: nudge the responder and arm the retry timer. Consumes the lock.
func (o *Orchestrator) followUpLocked(ctx context.Context, conv *types.Conversation, unlock func()) error {
	from := conv.State
	now := time.Now()
	deadline := now.Add(o.opts.RetryWait)

	conv.State = types.StateFollowUp
	conv.Generation++
	conv.TimeoutAt = &deadline

	err := o.store.ApplyTransition(ctx, conv,
		&types.ConversationEvent{
			ConversationID: conv.ID,
			Type:           types.EventTimedOut,
			FromState:      from,
			ToState:        types.StateTimeout,
			TriggeredBy:    types.SystemActor,
		},
		&types.ConversationEvent{
			ConversationID: conv.ID,
			Type:           types.EventFollowedUp,
			FromState:      types.StateTimeout,
			ToState:        types.StateFollowUp,
			TriggeredBy:    types.SystemActor,
		},
	)
	if err != nil {
		unlock()
		return types.NewError(types.ErrInternalError, "failed to persist transition").WithCause(err)
	}

	o.timers.Schedule(conv.ID, conv.Generation, o.opts.RetryWait)
	o.recordTransition(types.EventTimedOut)
	o.recordTransition(types.EventFollowedUp)
	snapshot := *conv
	unlock()

	o.logger.Info("follow-up sent",
		zap.String("conversation_id", snapshot.ID),
		zap.String("responder", snapshot.CurrentResponder),
	)

	followUp := types.NewMessage(types.MessageFollowUp, snapshot.ID, types.SystemActor, snapshot.CurrentResponder,
		render(o.acks.templates.followUp, templateData{
			Asker:    snapshot.Asker,
			Category: snapshot.QuestionCategory,
		}))
	o.send(ctx, followUp)
	return nil
}

// repeatFollowUpLocked re-sends the follow-up and re-arms the retry timer
// without advancing state or level. Used when the conversation is parked at
// the root authority (or auto-escalation is disabled): the question stays
// visibly stalled for manual intervention instead of being auto-cancelled.
// Consumes the lock.
func (o *Orchestrator) repeatFollowUpLocked(ctx context.Context, conv *types.Conversation, unlock func(), why string) error {
	from := conv.State
	now := time.Now()
	deadline := now.Add(o.opts.RetryWait)
	conv.State = types.StateFollowUp
	conv.Generation++
	conv.TimeoutAt = &deadline

	err := o.store.ApplyTransition(ctx, conv, &types.ConversationEvent{
		ConversationID: conv.ID,
		Type:           types.EventFollowedUp,
		FromState:      from,
		ToState:        types.StateFollowUp,
		TriggeredBy:    types.SystemActor,
		Payload:        map[string]any{"reason": why},
	})
	if err != nil {
		unlock()
		return types.NewError(types.ErrInternalError, "failed to persist transition").WithCause(err)
	}

	o.timers.Schedule(conv.ID, conv.Generation, o.opts.RetryWait)
	o.recordTransition(types.EventFollowedUp)
	if o.metrics != nil {
		o.metrics.RecordStalled()
	}
	snapshot := *conv
	unlock()

	o.logger.Warn("conversation stalled, repeating follow-up",
		zap.String("conversation_id", snapshot.ID),
		zap.String("responder", snapshot.CurrentResponder),
		zap.String("reason", why),
	)

	followUp := types.NewMessage(types.MessageFollowUp, snapshot.ID, types.SystemActor, snapshot.CurrentResponder,
		render(o.acks.templates.followUp, templateData{
			Asker:    snapshot.Asker,
			Category: snapshot.QuestionCategory,
		}))
	o.send(ctx, followUp)
	return nil
}

// escalateLocked advances the conversation to the next responder in the
// chain. Consumes the lock.
func (o *Orchestrator) escalateLocked(ctx context.Context, conv *types.Conversation, unlock func(), trigger escalationTrigger) error {
	plan, err := o.escalate.plan(conv)
	if err != nil {
		unlock()
		return err
	}

	if plan.stalled {
		// No further escalation target beyond the root authority.
		return o.repeatFollowUpLocked(ctx, conv, unlock, "root authority unresponsive")
	}

	from := conv.State
	previous := conv.CurrentResponder
	now := time.Now()
	wait := o.waitFor(plan.resolution.ResponderRole)
	deadline := now.Add(wait)

	conv.State = types.StateEscalated
	conv.EscalationLevel = plan.nextLevel
	conv.Generation++
	conv.CurrentResponder = plan.resolution.Responder
	conv.ResponderRole = plan.resolution.ResponderRole
	conv.TimeoutAt = &deadline

	events := trigger.events(conv, from, previous)
	if err := o.store.ApplyTransition(ctx, conv, events...); err != nil {
		unlock()
		return types.NewError(types.ErrInternalError, "failed to persist transition").WithCause(err)
	}

	o.timers.Schedule(conv.ID, conv.Generation, wait)
	for _, ev := range events {
		o.recordTransition(ev.Type)
	}
	if o.metrics != nil {
		o.metrics.RecordEscalation(string(trigger.kind))
		if plan.loopDetected {
			o.metrics.RecordMisconfiguredLoop()
		}
	}
	snapshot := *conv
	unlock()

	if plan.loopDetected {
		o.logger.Warn("escalation resolved the same responder, advancing anyway",
			zap.String("conversation_id", snapshot.ID),
			zap.String("responder", snapshot.CurrentResponder),
			zap.Int("escalation_level", snapshot.EscalationLevel),
		)
	}
	o.logger.Info("conversation escalated",
		zap.String("conversation_id", snapshot.ID),
		zap.String("from", previous),
		zap.String("to", snapshot.CurrentResponder),
		zap.Int("escalation_level", snapshot.EscalationLevel),
		zap.String("trigger", string(trigger.kind)),
	)

	notice := o.escalate.handoffNotice(&snapshot)
	o.send(ctx, notice)

	question := o.escalate.escalatedQuestion(&snapshot, previous, trigger.reason)
	o.sendQuestion(ctx, question)
	return nil
}

// send delivers a non-question message; failures are logged and dropped.
func (o *Orchestrator) send(ctx context.Context, msg *types.Message) {
	if _, err := o.gateway.Send(ctx, msg); err != nil {
		if o.metrics != nil {
			o.metrics.RecordDeliveryFailure(string(msg.Type))
		}
		o.logger.Error("message delivery failed",
			zap.String("conversation_id", msg.ConversationID),
			zap.String("type", string(msg.Type)),
			zap.String("recipient", msg.Recipient),
			zap.Error(err),
		)
	}
}

// sendQuestion delivers a question; a responder who never received the
// question cannot answer, so exhausted retries escalate immediately instead
// of waiting for the normal timeout.
func (o *Orchestrator) sendQuestion(ctx context.Context, msg *types.Message) {
	_, err := o.gateway.Send(ctx, msg)
	if err == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.RecordDeliveryFailure(string(msg.Type))
	}
	o.logger.Error("question delivery failed, escalating",
		zap.String("conversation_id", msg.ConversationID),
		zap.String("recipient", msg.Recipient),
		zap.Error(err),
	)

	unlock := o.locks.Lock(msg.ConversationID)
	conv, getErr := o.get(ctx, msg.ConversationID)
	if getErr != nil {
		unlock()
		return
	}
	// Re-check under the lock: the conversation may have moved on while the
	// send was retrying.
	if conv.IsTerminal() || conv.CurrentResponder != msg.Recipient {
		unlock()
		return
	}
	if escErr := o.escalateLocked(ctx, conv, unlock, escalationTrigger{
		kind:        triggerDeliveryFailure,
		triggeredBy: types.SystemActor,
		reason:      "question delivery failed",
	}); escErr != nil {
		o.logger.Error("delivery-failure escalation failed",
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(escErr),
		)
	}
}

func (o *Orchestrator) get(ctx context.Context, conversationID string) (*types.Conversation, error) {
	conv, err := o.store.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, types.NewError(types.ErrNotFound, "conversation not found").WithConversation(conversationID)
		}
		return nil, types.NewError(types.ErrInternalError, "failed to load conversation").WithCause(err)
	}
	return conv, nil
}

// waitFor returns the initial wait for a responder role, honoring per-role
// overrides.
func (o *Orchestrator) waitFor(role string) time.Duration {
	if d, ok := o.opts.PerRoleWaits[role]; ok && d > 0 {
		return d
	}
	return o.opts.InitialWait
}

func (o *Orchestrator) recordTransition(ev types.EventType) {
	if o.metrics != nil {
		o.metrics.RecordTransition(string(ev))
	}
}

// onTimerFired hands a scheduler callback to the state machine. Every fired
// timer opens its own context instead of borrowing one across the suspension
// point.
func (o *Orchestrator) onTimerFired(conversationID string, generation uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		// Stale and invalid-transition outcomes are already logged.
		_ = o.HandleTimeout(ctx, conversationID, generation)
	}()
}
