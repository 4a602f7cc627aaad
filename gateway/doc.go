// Copyright (c) AskFlow Authors.
// Licensed under the MIT License.

/*
Package gateway 提供参与者之间的消息投递网关。

# 概述

编排核心只依赖抽象的 Gateway 接口，从不感知传输细节（队列名、协议）。
本包同时提供两种实现与一个重试包装器：

  - ChannelGateway  — 进程内实现，按接收者维护带缓冲的收件箱 channel，
    支持 x/time/rate 出站限速；用于开发、测试与单节点部署
  - RedisGateway    — 基于 Redis List 的分布式实现，LPUSH 投递、
    BRPOP 收取并分发给注册的处理器
  - RetryingGateway — 有界指数退避重试包装（默认 3 次，1s/2s/4s）

# 投递失败语义

重试耗尽后返回 DELIVERY_FAILURE 结构化错误，由编排器按消息类型决定
后续动作：问题投递失败立即触发升级（收不到问题的响应者不可能回答），
确认/跟进类消息则记录日志后丢弃，不影响定时器布防。
*/
package gateway
