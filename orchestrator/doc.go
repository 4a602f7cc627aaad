// Copyright (c) AskFlow Authors.
// Licensed under the MIT License.

/*
Package orchestrator 实现会话编排核心：驱动提问/应答会话的状态机。

# 概述

orchestrator 是每个会话的唯一写入者。它串联路由解析（routing）、定时调度
（schedule）、消息投递（gateway）和持久化（store），保证同一会话的并发事件
（超时、应答、拒绝、取消）被逐一串行处理，不同会话完全并行。

# 状态机

	initiated → waiting → (timeout) → follow_up → (escalating) → escalated
	                                                                  ↓
	                                              waiting ←───────────┘

timeout 与 escalating 是瞬态，只出现在事件记录中，永不作为持久化状态。
answered 与 cancelled 为终态，终态会话拒绝一切后续事件。

# 关键不变量

  - 单定时器：每个活动会话任意时刻最多一个待触发定时器
  - 代次校验：定时器回调携带代次，落后于会话当前代次的回调按 STALE_TIMEOUT 丢弃
  - 升级层级单调不减；根权限处停滞的会话反复跟进而非自动取消
  - 状态变更与审计事件在同一事务内原子落库，消息发送在锁外进行

# 基本用法

	orch, err := orchestrator.New(store, gw, resolver, orchestrator.Options{
		InitialWait: 5 * time.Minute,
		RetryWait:   2 * time.Minute,
	})
	gw.OnReceived(orch.GatewayHandler())
	conv, err := orch.InitiateQuestion(ctx, orchestrator.QuestionRequest{
		Asker:     "agent-dev-1",
		AskerRole: "backend_developer",
		Content:   "哪个分支部署到 staging？",
		Category:  "deployment",
	})

进程重启后调用 Recover 依据持久化的截止时间重建全部定时器。
*/
package orchestrator
