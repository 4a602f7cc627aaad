// Copyright (c) AskFlow Authors.
// Licensed under the MIT License.

/*
Package store 提供会话与审计事件的持久化存储。

# 概述

编排器是每个会话的唯一写入者；store 的职责是让每次状态迁移原子落盘——
会话新状态与本次迁移产生的事件要么一起提交，要么一起回滚。事件为
仅追加记录，由存储层分配会话内单调递增的 Seq 序号以保证全序。

# 实现

  - MemoryStore — 内存实现，用于开发与测试，重启即失
  - GormStore   — GORM 实现（PostgreSQL / SQLite），每次迁移一个事务，
    AutoMigrate 建表，事件表使用 (conversation_id, seq) 唯一索引

# 错误约定

与持久层其余部分一致的哨兵错误：ErrNotFound / ErrAlreadyExists /
ErrStoreClosed / ErrInvalidInput。
*/
package store
