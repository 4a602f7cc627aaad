// Package askflow provides a top-level convenience entry point for embedding
// the conversation orchestration core with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/askflow"
//
//	app, err := askflow.New(
//		askflow.WithRootAuthority("project_manager"),
//		askflow.WithRules(rules...),
//	)
//	conv, err := app.Orchestrator.InitiateQuestion(ctx, orchestrator.QuestionRequest{...})
//
// By default the app runs fully in-process: an in-memory conversation store
// and a channel gateway. Production deployments swap those for the GORM store
// and Redis gateway via [WithStore] and [WithGateway], or run the standalone
// cmd/askflow service instead.
package askflow

import (
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/gateway"
	"github.com/BaSui01/askflow/orchestrator"
	"github.com/BaSui01/askflow/routing"
	"github.com/BaSui01/askflow/store"
	"github.com/BaSui01/askflow/types"
)

// App bundles the wired components of one orchestration core instance.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Gateway      gateway.Gateway
	Store        store.ConversationStore
	Table        *routing.Table
}

type settings struct {
	rootAuthority string
	rules         []types.RoutingRule
	st            store.ConversationStore
	gw            gateway.Gateway
	logger        *zap.Logger
	opts          orchestrator.Options
}

// Option configures the app created by [New].
type Option func(*settings)

// WithRootAuthority sets the root authority role every escalation chain
// terminates at. Required.
func WithRootAuthority(role string) Option {
	return func(s *settings) { s.rootAuthority = role }
}

// WithRules sets the initial routing rule set.
func WithRules(rules ...types.RoutingRule) Option {
	return func(s *settings) { s.rules = append(s.rules, rules...) }
}

// WithStore sets a custom conversation store (default: in-memory).
func WithStore(st store.ConversationStore) Option {
	return func(s *settings) { s.st = st }
}

// WithGateway sets a custom delivery gateway (default: in-process channels).
func WithGateway(gw gateway.Gateway) Option {
	return func(s *settings) { s.gw = gw }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithOrchestratorOptions overrides the orchestrator options (waits,
// escalation cap, templates, retry policy). Logger and metrics set through
// other options take precedence.
func WithOrchestratorOptions(opts orchestrator.Options) Option {
	return func(s *settings) { s.opts = opts }
}

// New wires a complete orchestration core. The routing table is validated
// before anything starts: a missing root authority fails here, not at
// runtime.
func New(options ...Option) (*App, error) {
	s := settings{logger: zap.NewNop()}
	for _, opt := range options {
		opt(&s)
	}

	table := routing.NewTable(s.rootAuthority, s.logger)
	table.Replace(s.rules)
	if err := table.Validate(); err != nil {
		return nil, err
	}

	if s.st == nil {
		s.st = store.NewMemoryStore()
	}
	if s.gw == nil {
		s.gw = gateway.NewChannelGateway(gateway.ChannelGatewayOptions{Logger: s.logger})
	}
	if s.opts.Logger == nil {
		s.opts.Logger = s.logger
	}

	resolver := routing.NewResolver(table, s.logger)
	orch, err := orchestrator.New(s.st, s.gw, resolver, s.opts)
	if err != nil {
		return nil, err
	}

	// Route inbound receipts, answers and declines back into the state
	// machine when the gateway supports in-process dispatch.
	if l, ok := s.gw.(gateway.Listener); ok {
		l.OnReceived(orch.GatewayHandler())
	}

	return &App{
		Orchestrator: orch,
		Gateway:      s.gw,
		Store:        s.st,
		Table:        table,
	}, nil
}

// Close stops the orchestrator's timers and releases the store.
func (a *App) Close() error {
	a.Orchestrator.Stop()
	return a.Store.Close()
}
