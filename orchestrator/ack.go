package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/gateway"
	"github.com/BaSui01/askflow/types"
)

// ackDispatcher sends the "please wait" acknowledgment to the asker after the
// responder confirmed receipt. An acknowledgment that cannot be delivered is
// logged and dropped: it carries no state, so losing it never blocks the
// conversation.
type ackDispatcher struct {
	gateway   gateway.Gateway
	templates *renderedTemplates
	logger    *zap.Logger
}

func newAckDispatcher(gw gateway.Gateway, templates *renderedTemplates, logger *zap.Logger) *ackDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ackDispatcher{
		gateway:   gw,
		templates: templates,
		logger:    logger.With(zap.String("component", "ack_dispatcher")),
	}
}

func (d *ackDispatcher) dispatch(ctx context.Context, conv *types.Conversation) {
	content := render(d.templates.acknowledgment, templateData{
		Asker:         conv.Asker,
		Responder:     conv.CurrentResponder,
		ResponderRole: conv.ResponderRole,
		Category:      conv.QuestionCategory,
	})
	msg := types.NewMessage(types.MessageAcknowledgment, conv.ID, types.SystemActor, conv.Asker, content)

	if _, err := d.gateway.Send(ctx, msg); err != nil {
		d.logger.Warn("acknowledgment delivery failed",
			zap.String("conversation_id", conv.ID),
			zap.String("asker", conv.Asker),
			zap.Error(err),
		)
	}
}
