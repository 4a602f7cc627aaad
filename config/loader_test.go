// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/askflow/types"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证服务器默认值
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)

	// 验证编排默认值
	assert.Equal(t, 5*time.Minute, cfg.Orchestrator.InitialWait)
	assert.Equal(t, 2*time.Minute, cfg.Orchestrator.RetryWait)
	assert.Equal(t, 3, cfg.Orchestrator.MaxEscalationLevels)
	assert.False(t, cfg.Orchestrator.DisableAutoEscalation)
	assert.Equal(t, 3, cfg.Orchestrator.Delivery.MaxRetries)
	assert.Equal(t, time.Second, cfg.Orchestrator.Delivery.InitialBackoff)

	// 验证 Redis 默认值
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "askflow:", cfg.Redis.KeyPrefix)

	// 验证 Database 默认值
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.Orchestrator.InitialWait)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
orchestrator:
  initial_wait: 10m
  retry_wait: 90s
  per_role_waits:
    project_manager: 30m
routing:
  root_authority: project_manager
  rules:
    - scope: global
      asker_role: backend_developer
      question_category: implementation
      escalation_level: 0
      responder_role: tech_lead
    - scope: squad
      scope_id: squad-7
      asker_role: backend_developer
      question_category: implementation
      escalation_level: 0
      responder_role: senior_engineer
      priority: 5
      active: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 10*time.Minute, cfg.Orchestrator.InitialWait)
	assert.Equal(t, 90*time.Second, cfg.Orchestrator.RetryWait)
	assert.Equal(t, 30*time.Minute, cfg.Orchestrator.PerRoleWaits["project_manager"])
	assert.Equal(t, "project_manager", cfg.Routing.RootAuthority)

	rules := cfg.Routing.ToRules()
	require.Len(t, rules, 2)
	assert.Equal(t, types.ScopeGlobal, rules[0].Scope)
	assert.Equal(t, "tech_lead", rules[0].ResponderRole)
	assert.True(t, rules[0].Active, "active 缺省应为启用")
	assert.Equal(t, types.ScopeSquad, rules[1].Scope)
	assert.Equal(t, "squad-7", rules[1].ScopeID)
	assert.Equal(t, 5, rules[1].Priority)
	assert.False(t, rules[1].Active)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("ASKFLOW_SERVER_HTTP_PORT", "9999")
	t.Setenv("ASKFLOW_ORCHESTRATOR_INITIAL_WAIT", "7m")
	t.Setenv("ASKFLOW_ORCHESTRATOR_DISABLE_AUTO_ESCALATION", "true")
	t.Setenv("ASKFLOW_REDIS_ENABLED", "true")
	t.Setenv("ASKFLOW_LOG_LEVEL", "debug")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, 7*time.Minute, cfg.Orchestrator.InitialWait)
	assert.True(t, cfg.Orchestrator.DisableAutoEscalation)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  http_port: 8888\n"), 0o644))

	t.Setenv("ASKFLOW_SERVER_HTTP_PORT", "7777")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.HTTPPort)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_WithValidator(t *testing.T) {
	called := false
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			called = true
			return nil
		}).
		Load()
	require.NoError(t, err)
	assert.True(t, called)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 文件不存在时回落到默认值
	cfg, err := NewLoader().WithConfigPath("/no/such/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [not a map"), 0o644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

func TestLoader_ExternalRulesFile(t *testing.T) {
	tmpDir := t.TempDir()
	rulesPath := filepath.Join(tmpDir, "rules.yaml")
	configPath := filepath.Join(tmpDir, "config.yaml")

	rulesContent := `
rules:
  - scope: global
    asker_role: qa_engineer
    question_category: default
    escalation_level: 0
    responder_role: tech_lead
`
	require.NoError(t, os.WriteFile(rulesPath, []byte(rulesContent), 0o644))
	require.NoError(t, os.WriteFile(configPath, []byte("routing:\n  root_authority: cto\n  rules_file: "+rulesPath+"\n"), 0o644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	require.Len(t, cfg.Routing.Rules, 1)
	assert.Equal(t, "qa_engineer", cfg.Routing.Rules[0].AskerRole)
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Routing.RootAuthority = "project_manager"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing root authority", func(t *testing.T) {
		cfg := valid()
		cfg.Routing.RootAuthority = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root_authority")
	})

	t.Run("rule missing responder", func(t *testing.T) {
		cfg := valid()
		cfg.Routing.Rules = []RuleConfig{{
			Scope:            "global",
			AskerRole:        "backend_developer",
			QuestionCategory: "implementation",
		}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "responder_role or responder_id")
	})

	t.Run("rule unknown scope", func(t *testing.T) {
		cfg := valid()
		cfg.Routing.Rules = []RuleConfig{{
			Scope:            "galaxy",
			AskerRole:        "backend_developer",
			QuestionCategory: "implementation",
			ResponderRole:    "tech_lead",
		}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown scope")
	})

	t.Run("non-positive waits", func(t *testing.T) {
		cfg := valid()
		cfg.Orchestrator.InitialWait = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown database driver", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Driver = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown log level", func(t *testing.T) {
		cfg := valid()
		cfg.Log.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "askflow",
		Password: "secret",
		Name:     "askflow",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=askflow password=secret dbname=askflow sslmode=require",
		d.DSN())
}

func TestMustLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{{{"), 0o644))

	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}
