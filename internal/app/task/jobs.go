/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-08-23 18:18:40
 * @LastEditTime: 2026-08-23 18:18:40
 * @LastEditors: 安知鱼
 */
// internal/app/task/jobs.go
package task

// Job 是后台任务的统一契约，与 cron.Job 接口兼容。
// Name 用于日志包装器打印可读的任务名。
type Job interface {
	Run()
	Name() string
}
