package routing

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

// Table holds the active routing rule set plus the root authority fallback.
// The orchestration core only reads it; an external administrative interface
// owns rule lifecycle. Replace and Snapshot make hot reloads safe.
type Table struct {
	rules         []types.RoutingRule
	rootAuthority string
	mu            sync.RWMutex
	logger        *zap.Logger
}

// NewTable creates a routing table with the given root authority role.
func NewTable(rootAuthority string, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		rootAuthority: rootAuthority,
		logger:        logger.With(zap.String("component", "routing_table")),
	}
}

// Add appends a rule to the table.
func (t *Table) Add(rule types.RoutingRule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, rule)
	t.logger.Debug("routing rule added",
		zap.String("asker_role", rule.AskerRole),
		zap.String("category", rule.QuestionCategory),
		zap.Int("level", rule.EscalationLevel),
		zap.String("responder", rule.Responder()),
	)
}

// Replace swaps the whole rule set, used on configuration reload.
func (t *Table) Replace(rules []types.RoutingRule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append([]types.RoutingRule(nil), rules...)
	t.logger.Info("routing rules replaced", zap.Int("count", len(rules)))
}

// Snapshot returns a copy of the active rules.
func (t *Table) Snapshot() []types.RoutingRule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.RoutingRule, 0, len(t.rules))
	for _, r := range t.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// RootAuthority returns the terminal responder role of every escalation chain.
func (t *Table) RootAuthority() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootAuthority
}

// Validate checks the table is usable at all: a root authority must exist so
// that every chain terminates. Called at startup; a failure here is fatal and
// must prevent boot rather than surface as a runtime resolution error.
func (t *Table) Validate() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.rootAuthority == "" {
		return types.NewError(types.ErrRoutingUnresolved, "no root authority configured")
	}

	for i, r := range t.rules {
		if r.AskerRole == "" {
			return types.NewError(types.ErrInvalidRequest,
				fmt.Sprintf("rule %d: asker_role is required", i))
		}
		if r.ResponderRole == "" && r.ResponderID == "" {
			return types.NewError(types.ErrInvalidRequest,
				fmt.Sprintf("rule %d: responder_role or responder_id is required", i))
		}
		if r.EscalationLevel < 0 {
			return types.NewError(types.ErrInvalidRequest,
				fmt.Sprintf("rule %d: escalation_level must be >= 0", i))
		}
		if r.Scope != types.ScopeGlobal && r.Scope != types.ScopeOrganization && r.Scope != types.ScopeSquad {
			return types.NewError(types.ErrInvalidRequest,
				fmt.Sprintf("rule %d: unknown scope %q", i, r.Scope))
		}
	}
	return nil
}
