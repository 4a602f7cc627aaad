package routing

import (
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

// Resolution is the outcome of resolving one escalation level.
type Resolution struct {
	// Responder is the actor id or role the question goes to.
	Responder string
	// ResponderRole is the role of the responder, used for per-role timeout
	// overrides and notice templates. Equals Responder unless the matched
	// rule pins a specific actor.
	ResponderRole string
	// FromDefaultChain is true when no category-specific rule matched and the
	// wildcard chain was used instead.
	FromDefaultChain bool
	// RootFallback is true when the chain was exhausted and the root
	// authority was returned.
	RootFallback bool
}

// Resolver answers "who should this question go to at escalation level N".
// Resolution is a pure function of the table's active rule set: identical
// inputs always yield the identical responder.
type Resolver struct {
	table  *Table
	logger *zap.Logger
}

// NewResolver creates a resolver over the given table.
func NewResolver(table *Table, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		table:  table,
		logger: logger.With(zap.String("component", "routing_resolver")),
	}
}

// Resolve returns the responder for (askerRole, category, level) under the
// given scope context. Chain exhaustion falls back to the root authority; only
// a missing root authority yields an error, and that is caught by
// Table.Validate before the resolver ever runs.
func (r *Resolver) Resolve(askerRole, category string, level int, scope types.ScopeContext) (Resolution, error) {
	rules := r.table.Snapshot()

	if match, ok := bestMatch(rules, askerRole, category, level, scope); ok {
		return Resolution{
			Responder:     match.Responder(),
			ResponderRole: match.ResponderRole,
		}, nil
	}

	// Fall back to the wildcard "default" chain for the role.
	if category != types.DefaultCategory {
		if match, ok := bestMatch(rules, askerRole, types.DefaultCategory, level, scope); ok {
			return Resolution{
				Responder:        match.Responder(),
				ResponderRole:    match.ResponderRole,
				FromDefaultChain: true,
			}, nil
		}
	}

	// Chain exhausted: the root authority must always resolve.
	root := r.table.RootAuthority()
	if root == "" {
		return Resolution{}, types.NewError(types.ErrRoutingUnresolved, "no root authority configured")
	}
	r.logger.Debug("chain exhausted, using root authority",
		zap.String("asker_role", askerRole),
		zap.String("category", category),
		zap.Int("level", level),
		zap.String("root", root),
	)
	return Resolution{
		Responder:     root,
		ResponderRole: root,
		RootFallback:  true,
	}, nil
}

// Root returns the root-authority resolution directly, bypassing rule lookup.
// Used when the escalation level cap has been reached.
func (r *Resolver) Root() (Resolution, error) {
	root := r.table.RootAuthority()
	if root == "" {
		return Resolution{}, types.NewError(types.ErrRoutingUnresolved, "no root authority configured")
	}
	return Resolution{
		Responder:     root,
		ResponderRole: root,
		RootFallback:  true,
	}, nil
}

// bestMatch selects the single winning rule among active rules matching the
// asker role, category and level: narrowest applicable scope first, then
// highest priority, with a stable lexical tiebreak so resolution stays
// deterministic even for pathological rule sets.
func bestMatch(rules []types.RoutingRule, askerRole, category string, level int, scope types.ScopeContext) (types.RoutingRule, bool) {
	matched := make([]types.RoutingRule, 0, 4)
	for _, rule := range rules {
		if rule.AskerRole != askerRole || rule.QuestionCategory != category || rule.EscalationLevel != level {
			continue
		}
		if !scopeApplies(rule, scope) {
			continue
		}
		matched = append(matched, rule)
	}
	if len(matched) == 0 {
		return types.RoutingRule{}, false
	}

	sort.SliceStable(matched, func(i, j int) bool {
		si, sj := matched[i].Scope.Specificity(), matched[j].Scope.Specificity()
		if si != sj {
			return si > sj
		}
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].Responder() < matched[j].Responder()
	})
	return matched[0], true
}

// scopeApplies reports whether the rule's scope covers the asker's context.
// Global rules cover everyone; organization/squad rules require a matching id
// (an empty ScopeID acts as "any organization"/"any squad").
func scopeApplies(rule types.RoutingRule, scope types.ScopeContext) bool {
	switch rule.Scope {
	case types.ScopeSquad:
		if scope.SquadID == "" {
			return false
		}
		return rule.ScopeID == "" || rule.ScopeID == scope.SquadID
	case types.ScopeOrganization:
		if scope.OrganizationID == "" {
			return false
		}
		return rule.ScopeID == "" || rule.ScopeID == scope.OrganizationID
	default:
		return true
	}
}
