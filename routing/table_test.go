package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

func TestTable_Validate_RequiresRootAuthority(t *testing.T) {
	table := NewTable("", zap.NewNop())
	err := table.Validate()
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRoutingUnresolved))

	table = NewTable("project_manager", zap.NewNop())
	assert.NoError(t, table.Validate())
}

func TestTable_Validate_RejectsBadRules(t *testing.T) {
	cases := []struct {
		name string
		rule types.RoutingRule
	}{
		{"missing asker role", types.RoutingRule{Scope: types.ScopeGlobal, ResponderRole: "lead"}},
		{"missing responder", types.RoutingRule{Scope: types.ScopeGlobal, AskerRole: "dev"}},
		{"negative level", types.RoutingRule{Scope: types.ScopeGlobal, AskerRole: "dev", ResponderRole: "lead", EscalationLevel: -1}},
		{"unknown scope", types.RoutingRule{Scope: "galaxy", AskerRole: "dev", ResponderRole: "lead"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table := NewTable("project_manager", zap.NewNop())
			table.Add(tc.rule)
			assert.Error(t, table.Validate())
		})
	}
}

func TestTable_Replace(t *testing.T) {
	table := NewTable("project_manager", zap.NewNop())
	table.Add(types.RoutingRule{
		Scope: types.ScopeGlobal, AskerRole: "dev", ResponderRole: "old_lead", Active: true,
	})

	table.Replace([]types.RoutingRule{
		{Scope: types.ScopeGlobal, AskerRole: "dev", ResponderRole: "new_lead", Active: true},
	})

	rules := table.Snapshot()
	require.Len(t, rules, 1)
	assert.Equal(t, "new_lead", rules[0].ResponderRole)
}

func TestTable_Snapshot_FiltersInactive(t *testing.T) {
	table := NewTable("project_manager", zap.NewNop())
	table.Add(types.RoutingRule{Scope: types.ScopeGlobal, AskerRole: "dev", ResponderRole: "a", Active: true})
	table.Add(types.RoutingRule{Scope: types.ScopeGlobal, AskerRole: "dev", ResponderRole: "b", Active: false})

	assert.Len(t, table.Snapshot(), 1)
}
