// =============================================================================
// 📦 AskFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("ASKFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/askflow/types"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 AskFlow 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Orchestrator 会话编排配置
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`

	// Routing 路由表配置
	Routing RoutingConfig `yaml:"routing" env:"-"`

	// Redis 消息网关配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口（健康检查）
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// OrchestratorConfig 会话编排配置
type OrchestratorConfig struct {
	// 初始等待时长（首次跟进前）
	InitialWait time.Duration `yaml:"initial_wait" env:"INITIAL_WAIT"`
	// 跟进后的重试等待时长
	RetryWait time.Duration `yaml:"retry_wait" env:"RETRY_WAIT"`
	// 最大升级层级
	MaxEscalationLevels int `yaml:"max_escalation_levels" env:"MAX_ESCALATION_LEVELS"`
	// 按响应者角色覆盖初始等待
	PerRoleWaits map[string]time.Duration `yaml:"per_role_waits" env:"-"`
	// 是否禁用超时自动升级（显式拒绝仍会升级）
	DisableAutoEscalation bool `yaml:"disable_auto_escalation" env:"DISABLE_AUTO_ESCALATION"`
	// 消息文案模板
	Templates TemplatesConfig `yaml:"templates" env:"-"`
	// 投递重试
	Delivery DeliveryConfig `yaml:"delivery" env:"DELIVERY"`
}

// TemplatesConfig 消息文案模板（留空使用内置默认值）
type TemplatesConfig struct {
	Acknowledgment     string `yaml:"acknowledgment"`
	FollowUp           string `yaml:"follow_up"`
	HandoffNotice      string `yaml:"handoff_notice"`
	EscalatedQuestion  string `yaml:"escalated_question"`
	CancelConfirmation string `yaml:"cancel_confirmation"`
}

// DeliveryConfig 消息投递重试配置
type DeliveryConfig struct {
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 初始退避
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"INITIAL_BACKOFF"`
	// 最大退避
	MaxBackoff time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`
	// 退避倍数
	Multiplier float64 `yaml:"multiplier" env:"MULTIPLIER"`
}

// RoutingConfig 路由表配置
type RoutingConfig struct {
	// 根权限角色（必填，链耗尽时的兜底响应者）
	RootAuthority string `yaml:"root_authority"`
	// 内联规则集
	Rules []RuleConfig `yaml:"rules"`
	// 外部规则文件（可选；设置后支持热重载，优先于内联规则）
	RulesFile string `yaml:"rules_file"`
}

// RuleConfig 单条路由规则
type RuleConfig struct {
	// 作用域: global, organization, squad
	Scope string `yaml:"scope"`
	// 作用域标识（组织/小队 id，空表示任意）
	ScopeID string `yaml:"scope_id"`
	// 提问者角色
	AskerRole string `yaml:"asker_role"`
	// 问题分类（"default" 为通配链）
	QuestionCategory string `yaml:"question_category"`
	// 升级层级，0 为首个响应者
	EscalationLevel int `yaml:"escalation_level"`
	// 响应者角色
	ResponderRole string `yaml:"responder_role"`
	// 指定具体响应者（可选，优先于角色）
	ResponderID string `yaml:"responder_id"`
	// 同层级优先级，越大越优先
	Priority int `yaml:"priority"`
	// 是否启用（缺省启用）
	Active *bool `yaml:"active"`
}

// ToRule 转换为路由规则
func (r RuleConfig) ToRule() types.RoutingRule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return types.RoutingRule{
		Scope:            types.RuleScope(r.Scope),
		ScopeID:          r.ScopeID,
		AskerRole:        r.AskerRole,
		QuestionCategory: r.QuestionCategory,
		EscalationLevel:  r.EscalationLevel,
		ResponderRole:    r.ResponderRole,
		ResponderID:      r.ResponderID,
		Priority:         r.Priority,
		Active:           active,
	}
}

// ToRules 转换全部规则
func (rc RoutingConfig) ToRules() []types.RoutingRule {
	rules := make([]types.RoutingRule, 0, len(rc.Rules))
	for _, r := range rc.Rules {
		rules = append(rules, r.ToRule())
	}
	return rules
}

// RedisConfig Redis 网关配置
type RedisConfig struct {
	// 是否启用（关闭时使用进程内通道网关）
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, memory
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN 构造 PostgreSQL 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "ASKFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 外部规则文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 外部规则文件覆盖内联规则
	if cfg.Routing.RulesFile != "" {
		rules, err := LoadRulesFile(cfg.Routing.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules file: %w", err)
		}
		cfg.Routing.Rules = rules
	}

	// 4. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadRulesFile 加载外部路由规则文件
func LoadRulesFile(path string) ([]RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc struct {
		Rules []RuleConfig `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return doc.Rules, nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证服务器配置
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	// 验证编排配置
	if c.Orchestrator.InitialWait <= 0 {
		errs = append(errs, "initial_wait must be positive")
	}
	if c.Orchestrator.RetryWait <= 0 {
		errs = append(errs, "retry_wait must be positive")
	}
	if c.Orchestrator.MaxEscalationLevels <= 0 {
		errs = append(errs, "max_escalation_levels must be positive")
	}

	// 验证路由配置：根权限缺失属于配置期错误，必须在启动时拦截
	if c.Routing.RootAuthority == "" {
		errs = append(errs, "routing.root_authority is required")
	}
	for i, r := range c.Routing.Rules {
		if r.AskerRole == "" || r.QuestionCategory == "" {
			errs = append(errs, fmt.Sprintf("rule %d: asker_role and question_category are required", i))
		}
		if r.ResponderRole == "" && r.ResponderID == "" {
			errs = append(errs, fmt.Sprintf("rule %d: responder_role or responder_id is required", i))
		}
		if r.EscalationLevel < 0 {
			errs = append(errs, fmt.Sprintf("rule %d: escalation_level must be non-negative", i))
		}
		switch types.RuleScope(r.Scope) {
		case types.ScopeGlobal, types.ScopeOrganization, types.ScopeSquad:
		default:
			errs = append(errs, fmt.Sprintf("rule %d: unknown scope %q", i, r.Scope))
		}
	}

	// 验证数据库配置
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Sprintf("unknown database driver %q", c.Database.Driver))
	}

	// 验证日志配置
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
