/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-08-23 13:14:27
 * @LastEditTime: 2026-08-23 13:14:27
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"sync"
	"time"
)

// FileLocker 提供了一个基于文件ID的锁机制。
// 它能确保对同一个文件的状态流转不会被并发执行，
// 并且等待是有界的：超时拿不到锁就放弃，由调用方返回忙碌错误。
type FileLocker struct {
	mu    sync.Mutex
	locks map[uint]chan struct{}
}

// NewFileLocker 创建一个新的 FileLocker 实例。
func NewFileLocker() *FileLocker {
	return &FileLocker{
		locks: make(map[uint]chan struct{}),
	}
}

// slot 返回文件专用的容量为1的信号量通道。
func (l *FileLocker) slot(fileID uint) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[fileID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[fileID] = ch
	}
	return ch
}

// TryLock 在 timeout 时间内尝试为给定文件获取锁。
// 返回 true 表示获取成功，调用方必须随后调用 Unlock；
// 返回 false 表示等待超时或 ctx 被取消，锁没有被获取。
func (l *FileLocker) TryLock(ctx context.Context, fileID uint, timeout time.Duration) bool {
	ch := l.slot(fileID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Unlock 释放给定文件的锁。
func (l *FileLocker) Unlock(fileID uint) {
	l.mu.Lock()
	ch, ok := l.locks[fileID]
	l.mu.Unlock()
	if !ok {
		return
	}
	// 非阻塞取出，未持锁时调用 Unlock 不会卡死
	select {
	case <-ch:
	default:
	}
	// 为避免map无限增长，在实际生产系统中可能需要一个清理策略，
	// 但保留通道实例可以避免重复分配，也规避了删除与新建之间的竞态。
}
