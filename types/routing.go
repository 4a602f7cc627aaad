package types

// RuleScope narrows where a routing rule applies. Narrower scopes win over
// wider ones during resolution: squad > organization > global.
type RuleScope string

const (
	ScopeGlobal       RuleScope = "global"
	ScopeOrganization RuleScope = "organization"
	ScopeSquad        RuleScope = "squad"
)

// Specificity returns the ordering weight of the scope; higher is narrower.
func (s RuleScope) Specificity() int {
	switch s {
	case ScopeSquad:
		return 2
	case ScopeOrganization:
		return 1
	default:
		return 0
	}
}

// DefaultCategory is the wildcard question category. Rules registered under it
// form the fallback chain for categories with no dedicated rules.
const DefaultCategory = "default"

// RoutingRule is one entry of the configurable authority hierarchy: for an
// asker role and question category it names the responder at one escalation
// level.
type RoutingRule struct {
	Scope            RuleScope `json:"scope" yaml:"scope"`
	ScopeID          string    `json:"scope_id,omitempty" yaml:"scope_id,omitempty"`
	AskerRole        string    `json:"asker_role" yaml:"asker_role"`
	QuestionCategory string    `json:"question_category" yaml:"question_category"`
	EscalationLevel  int       `json:"escalation_level" yaml:"escalation_level"`
	ResponderRole    string    `json:"responder_role" yaml:"responder_role"`

	// ResponderID optionally pins the rule to a specific actor instead of a
	// role.
	ResponderID string `json:"responder_id,omitempty" yaml:"responder_id,omitempty"`

	// Priority breaks ties between equally scoped rules; higher wins.
	Priority int  `json:"priority" yaml:"priority"`
	Active   bool `json:"active" yaml:"active"`
}

// Responder returns the resolved target of the rule: the pinned actor id when
// set, the responder role otherwise.
func (r RoutingRule) Responder() string {
	if r.ResponderID != "" {
		return r.ResponderID
	}
	return r.ResponderRole
}

// ScopeContext carries the organization/squad the asker belongs to, used to
// decide which scoped rules apply during resolution.
type ScopeContext struct {
	OrganizationID string `json:"organization_id,omitempty"`
	SquadID        string `json:"squad_id,omitempty"`
}
