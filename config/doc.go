// Copyright (c) AskFlow Authors.
// Licensed under the MIT License.

/*
Package config 提供 AskFlow 的统一配置加载与路由规则热重载。

# 概述

配置优先级为：默认值 → YAML 文件 → 外部规则文件 → 环境变量。
环境变量按 ASKFLOW_<SECTION>_<FIELD> 命名（前缀可定制），
时长字段接受 Go duration 语法（如 "5m"、"90s"）。

# 配置分区

  - server       — HTTP/Metrics 端口与优雅关闭超时
  - orchestrator — 等待时长、升级层级上限、按角色覆盖、文案模板、投递重试
  - routing      — 根权限角色 + 路由规则（内联或外部文件）
  - redis        — Redis 消息网关（关闭时使用进程内通道网关）
  - database     — 会话存储（postgres / memory）
  - log          — zap 日志级别与格式

# 路由规则热重载

routing.rules_file 指定外部规则文件后，RulesReloader 轮询其修改时间，
变更时解析新规则集并在影子表上校验，校验通过才整体替换生效规则；
坏规则集被拒绝并记录错误，旧规则继续服务。根权限角色不参与热重载，
始终以启动配置为准。

# 基本用法

	cfg, err := config.NewLoader().
		WithConfigPath("config.yaml").
		Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
*/
package config
