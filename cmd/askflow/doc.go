// Copyright (c) AskFlow Authors.
// Licensed under the MIT License.

/*
askflow 是会话编排服务的命令行入口。

# 命令

  - serve   — 装配存储、路由表、消息网关与编排器并运行服务
  - version — 显示版本信息（构建时注入）
  - health  — 请求 /healthz 做一次健康检查

# 服务组成

serve 启动后监听两个端口：HTTP 端口提供 /healthz 健康检查，
Metrics 端口提供 Prometheus /metrics。启用 Redis 网关时额外运行
入站消息监听循环，将回执、应答与拒绝分发给编排器。
收到 SIGINT/SIGTERM 后按注册顺序优雅关闭全部组件。
*/
package main
