/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-11 09:46:55
 * @LastEditTime: 2026-02-11 09:47:20
 * @LastEditors: 安知鱼
 */
package model

import "time"

// Tenant 是租户的领域模型。租户间完全隔离，
// 跨租户访问在各仓储层面直接表现为"不存在"。
type Tenant struct {
	ID        uint
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string
}

// Project 是项目的领域模型，文件可以归属到租户内的某个项目。
type Project struct {
	ID        uint
	CreatedAt time.Time
	UpdatedAt time.Time

	TenantID uint
	Name     string
}
