// Copyright (c) AskFlow Authors.
// Licensed under the MIT License.

/*
Package schedule 提供会话级的超时调度器。

# 概述

每个非终态会话在任意时刻恰好持有一个待触发的定时检查。调度器负责
按截止时间触发回调，触发语义为 at-least-once：取消是尽力而为的，
竞态下定时器仍可能在取消后触发，因此每次触发都携带布防时捕获的
generation（代次），由编排器据此丢弃过期回调。

# 核心模型

  - Scheduler      — 调度接口（Schedule / Cancel / Stop）
  - TimerScheduler — 基于 time.AfterFunc 的进程内实现
  - Callback       — 触发回调，携带会话 ID 与 generation

Schedule 对同一会话重复调用会替换现有定时器，保证单定时器不变量。
*/
package schedule
