/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-11 11:34:46
 * @LastEditTime: 2026-02-11 11:35:02
 * @LastEditors: 安知鱼
 */
package model

import "time"

// Setting 是运行时键值配置的领域模型
type Setting struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ConfigKey string    `json:"key"`
	Value     string    `json:"value"`
}
