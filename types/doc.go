// Copyright (c) AskFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 AskFlow 框架的全局共享类型定义。

# 概述

types 是框架最底层的公共包，不依赖任何内部包，为 routing、schedule、
gateway、store、orchestrator 等上层模块提供统一的类型契约。所有跨包共享的
结构体、枚举和错误码均定义于此，以避免循环依赖。

# 核心类型

  - Conversation       — 提问到解决的完整会话线程（状态、升级层级、定时器代次）
  - ConversationState  — 会话状态机枚举（initiated → … → answered / cancelled）
  - ConversationEvent  — 仅追加的审计事件（按 Seq 全序排列，永不修改）
  - Message            — 参与者之间传递的消息（question / acknowledgment / …）
  - RoutingRule        — 可配置的权限层级路由规则（作用域、优先级、升级层级）
  - ScopeContext       — 提问者所属组织/小队的作用域上下文
  - Error / ErrorCode  — 结构化错误体系，含 Retryable 与会话标记

# 主要能力

  - 状态判定：ConversationState.IsTerminal / IsTransient
  - 规则解析辅助：RoutingRule.Responder、RuleScope.Specificity
  - 错误工具链：IsErrorCode / IsRetryable / GetErrorCode
*/
package types
