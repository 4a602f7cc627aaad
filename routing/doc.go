// Copyright (c) AskFlow Authors.
// Licensed under the MIT License.

/*
Package routing 提供可配置权限层级的路由表与解析器。

# 概述

routing 回答一个核心问题：给定提问者角色、问题分类和升级层级，
这个问题应该交给谁来回答。规则集由外部管理界面维护，本包在解析期间
只读访问；Table 支持整体替换以配合配置热更新。

# 核心模型

  - Table      — 活动规则集 + 根权限角色，读写锁保护，Validate 在启动时校验
  - Resolver   — 纯函数式解析：相同输入永远得到相同的响应者
  - Resolution — 解析结果（响应者、角色、是否走默认链、是否根权限兜底）

# 解析算法

 1. 收集匹配 (asker_role, category, level) 且作用域覆盖提问者的活动规则
 2. 作用域越窄越优先（squad > organization > global）
 3. 同作用域按 Priority 降序，再按响应者字典序稳定决胜
 4. 无匹配时回退到该角色的 "default" 分类链
 5. 链耗尽时返回配置的根权限角色——只有根权限未配置才会报错，
    而这属于配置期错误，由 Table.Validate 在启动时拦截
*/
package routing
