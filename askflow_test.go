package askflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/askflow/gateway"
	"github.com/BaSui01/askflow/orchestrator"
	"github.com/BaSui01/askflow/types"
)

func TestNew_RequiresRootAuthority(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRoutingUnresolved))
}

func TestNew_EndToEnd(t *testing.T) {
	app, err := New(
		WithRootAuthority("project_manager"),
		WithRules(types.RoutingRule{
			Scope:            types.ScopeGlobal,
			AskerRole:        "backend_developer",
			QuestionCategory: "implementation",
			EscalationLevel:  0,
			ResponderRole:    "tech_lead",
			Active:           true,
		}),
		WithOrchestratorOptions(orchestrator.Options{
			InitialWait: time.Minute,
			Retry:       gateway.RetryConfig{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1},
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	ctx := context.Background()
	conv, err := app.Orchestrator.InitiateQuestion(ctx, orchestrator.QuestionRequest{
		Asker:     "agent-dev-1",
		AskerRole: "backend_developer",
		Content:   "which branch deploys to staging?",
		Category:  "implementation",
	})
	require.NoError(t, err)
	assert.Equal(t, "tech_lead", conv.CurrentResponder)

	// The responder's inbox carries the question through the channel gateway.
	cg := app.Gateway.(*gateway.ChannelGateway)
	select {
	case msg := <-cg.Inbox("tech_lead"):
		assert.Equal(t, types.MessageQuestion, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("question never delivered")
	}

	// Inject the answer as the responder would; the listener dispatches it
	// into the state machine.
	answer := types.NewMessage(types.MessageAnswer, conv.ID, "tech_lead", "agent-dev-1", "use release/2.4")
	cg.Inject(ctx, answer)

	require.Eventually(t, func() bool {
		got, err := app.Orchestrator.Get(ctx, conv.ID)
		return err == nil && got.State == types.StateAnswered
	}, 2*time.Second, 5*time.Millisecond)
}
