package orchestrator

import (
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/routing"
	"github.com/BaSui01/askflow/types"
)

// triggerKind names what pushed a conversation up the chain.
type triggerKind string

const (
	triggerTimeout         triggerKind = "timeout"
	triggerDecline         triggerKind = "decline"
	triggerDeliveryFailure triggerKind = "delivery_failure"
)

// escalationTrigger carries the cause of one escalation.
type escalationTrigger struct {
	kind        triggerKind
	triggeredBy string
	reason      string
}

// events builds the audit records for the escalation. An explicit decline
// produces the declined/escalated pair so the transient ESCALATING hop stays
// visible in the trail; timeouts and delivery failures produce a single
// escalated event.
func (t escalationTrigger) events(conv *types.Conversation, from types.ConversationState, previous string) []*types.ConversationEvent {
	escalatedPayload := map[string]any{
		"level":     conv.EscalationLevel,
		"responder": conv.CurrentResponder,
		"previous":  previous,
		"trigger":   string(t.kind),
	}

	if t.kind == triggerDecline {
		declinedPayload := map[string]any{}
		if t.reason != "" {
			declinedPayload["reason"] = t.reason
		}
		return []*types.ConversationEvent{
			{
				ConversationID: conv.ID,
				Type:           types.EventDeclined,
				FromState:      from,
				ToState:        types.StateEscalating,
				TriggeredBy:    t.triggeredBy,
				Payload:        declinedPayload,
			},
			{
				ConversationID: conv.ID,
				Type:           types.EventEscalated,
				FromState:      types.StateEscalating,
				ToState:        types.StateEscalated,
				TriggeredBy:    types.SystemActor,
				Payload:        escalatedPayload,
			},
		}
	}

	return []*types.ConversationEvent{
		{
			ConversationID: conv.ID,
			Type:           types.EventEscalated,
			FromState:      from,
			ToState:        types.StateEscalated,
			TriggeredBy:    t.triggeredBy,
			Payload:        escalatedPayload,
		},
	}
}

// escalationPlan is the coordinator's decision for one escalation attempt.
type escalationPlan struct {
	// stalled means the conversation is already parked at the root authority
	// and there is nowhere further to go.
	stalled bool
	// loopDetected means a rule resolved the responder the conversation is
	// already waiting on. The level still advances so the audit trail shows
	// the misconfiguration.
	loopDetected bool
	resolution   routing.Resolution
	nextLevel    int
}

// escalationCoordinator decides where an escalating conversation goes next
// and renders the hand-off messages.
type escalationCoordinator struct {
	resolver  *routing.Resolver
	templates *renderedTemplates
	maxLevels int
	logger    *zap.Logger
}

func newEscalationCoordinator(resolver *routing.Resolver, templates *renderedTemplates, maxLevels int, logger *zap.Logger) *escalationCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &escalationCoordinator{
		resolver:  resolver,
		templates: templates,
		maxLevels: maxLevels,
		logger:    logger.With(zap.String("component", "escalation_coordinator")),
	}
}

// plan resolves the next escalation level for the conversation.
func (c *escalationCoordinator) plan(conv *types.Conversation) (escalationPlan, error) {
	nextLevel := conv.EscalationLevel + 1

	var (
		res routing.Resolution
		err error
	)
	if nextLevel > c.maxLevels {
		res, err = c.resolver.Root()
	} else {
		res, err = c.resolver.Resolve(conv.AskerRole, conv.QuestionCategory, nextLevel, conv.Scope)
	}
	if err != nil {
		return escalationPlan{}, err
	}

	if res.RootFallback && res.Responder == conv.CurrentResponder {
		return escalationPlan{stalled: true}, nil
	}

	return escalationPlan{
		loopDetected: res.Responder == conv.CurrentResponder,
		resolution:   res,
		nextLevel:    nextLevel,
	}, nil
}

// handoffNotice tells the asker who holds the question now.
func (c *escalationCoordinator) handoffNotice(conv *types.Conversation) *types.Message {
	content := render(c.templates.handoffNotice, templateData{
		Asker:           conv.Asker,
		Responder:       conv.CurrentResponder,
		ResponderRole:   conv.ResponderRole,
		Category:        conv.QuestionCategory,
		EscalationLevel: conv.EscalationLevel,
	})
	return types.NewMessage(types.MessageEscalationNotice, conv.ID, types.SystemActor, conv.Asker, content)
}

// escalatedQuestion re-sends the question to the new responder with the prior
// escalation context attached.
func (c *escalationCoordinator) escalatedQuestion(conv *types.Conversation, previousResponder, reason string) *types.Message {
	content := render(c.templates.escalatedQuestion, templateData{
		Asker:             conv.Asker,
		Question:          conv.Question,
		PreviousResponder: previousResponder,
		Reason:            reason,
		Category:          conv.QuestionCategory,
		EscalationLevel:   conv.EscalationLevel,
	})
	msg := types.NewMessage(types.MessageQuestion, conv.ID, conv.Asker, conv.CurrentResponder, content)
	msg.RequiresAck = true
	return msg
}
