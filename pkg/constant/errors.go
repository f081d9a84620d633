/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-09 11:32:08
 * @LastEditTime: 2026-07-18 16:40:21
 * @LastEditors: 安知鱼
 */
package constant

import "errors"

// 定义业务逻辑相关的标准错误
var (
	// ErrNotFound 表示资源未找到，可以由 Handler 转换为 404。
	// 跨租户访问同样返回该错误，与资源不存在不可区分。
	ErrNotFound = errors.New("资源未找到")

	// ErrForbidden 表示无权访问，可以由 Handler 转换为 403
	ErrForbidden = errors.New("操作禁止")

	// ErrConflict 表示资源冲突，可以由 Handler 转换为 409
	ErrConflict = errors.New("资源冲突")

	// ErrInternalServer 表示服务器内部错误，可以由 Handler 转换为 500
	ErrInternalServer = errors.New("内部服务器错误")

	// ErrBadRequest 表示请求参数错误，可以由 Handler 转换为 400
	ErrBadRequest = errors.New("错误的请求")

	// ErrUnauthorized 表示未授权，可以由 Handler 转换为 401
	ErrUnauthorized = errors.New("未经授权的访问")

	// ErrInvalidToken 表示无效的令牌，可以由 Handler 转换为 401
	ErrInvalidToken = errors.New("无效令牌")

	// ErrInvalidPublicID 表示无效的公共ID，可以由 Handler 转换为 400
	ErrInvalidPublicID = errors.New("无效的公共ID")

	// ErrInvalidUpload 表示候选文件未通过校验，可以由 Handler 转换为 400
	ErrInvalidUpload = errors.New("上传内容未通过校验")

	// ErrUploadIncomplete 表示对象尚未写入存储，确认过早，可重试，
	// 可以由 Handler 转换为 409
	ErrUploadIncomplete = errors.New("上传尚未完成")

	// ErrInvalidTransition 表示当前阶段不允许该动作，可以由 Handler 转换为 409。
	// 该错误绝不会产生流转台账记录。
	ErrInvalidTransition = errors.New("非法的阶段流转")

	// ErrBusy 表示文件正被其他流转操作占用，可重试，可以由 Handler 转换为 409
	ErrBusy = errors.New("文件正忙，请稍后重试")

	// ErrStageOccupied 表示仍有文件停留在该审核阶段，阶段不可停用或删除
	ErrStageOccupied = errors.New("仍有文件处于该审核阶段")

	// ErrStorageUnavailable 表示对象存储后端不可达，可以由 Handler 转换为 503
	ErrStorageUnavailable = errors.New("对象存储服务不可用")

	// ErrPersistenceUnavailable 表示数据库不可达，可以由 Handler 转换为 503
	ErrPersistenceUnavailable = errors.New("持久化服务不可用")
)
