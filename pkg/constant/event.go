/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-10 10:26:12
 * @LastEditTime: 2026-02-10 10:26:31
 * @LastEditors: 安知鱼
 */
package constant

import "github.com/anzhiyu-c/anshen-app/internal/pkg/event"

// EventTopic 事件主题类型
type EventTopic = event.Topic

// 导出事件主题常量，供外部使用
const (
	// EventFileConfirmed 上传确认事件
	EventFileConfirmed EventTopic = event.FileConfirmed
	// EventTransitionApplied 工作流流转事件
	EventTransitionApplied EventTopic = event.TransitionApplied
)
