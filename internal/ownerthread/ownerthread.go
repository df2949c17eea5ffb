// Package ownerthread 把函数交给持有窗口消息循环的唯一线程执行.
// 大部分合成和 GDI 调用即使由工作 goroutine 发起, 也必须在该线程上执行.
package ownerthread

import (
	"context"
	"errors"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

// ErrStopped 向未运行的队列投递任务时返回
var ErrStopped = errors.New("ownerthread: queue stopped")

// Executor 在 UI 线程上运行 fn, fn 结束后返回
type Executor interface {
	Call(fn func())
}

// MainThread 派发到进程主线程, 需要 mainthread.Init 正在运行
type MainThread struct{}

// Call 实现 Executor
func (MainThread) Call(fn func()) { mainthread.Call(fn) }

// Inline 在调用方 goroutine 上直接运行 fn
type Inline struct{}

// Call 实现 Executor
func (Inline) Call(fn func()) { fn() }

type task struct {
	fn   func()
	done chan struct{}
}

// Queue 有界任务队列, 由 Run 在锁定的系统线程上消费
type Queue struct {
	tasks   chan task
	stopped chan struct{}
}

// NewQueue 返回最多容纳 size 个待处理任务的队列
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		tasks:   make(chan task, size),
		stopped: make(chan struct{}),
	}
}

// Run 处理任务直到 ctx 取消. 调用方 goroutine 被锁定到系统线程, 该线程即 UI 线程
func (q *Queue) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(q.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			t.fn()
			close(t.done)
		}
	}
}

// Post 投递 fn, 返回 fn 运行后关闭的 channel
func (q *Queue) Post(fn func()) (<-chan struct{}, error) {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case <-q.stopped:
		return nil, ErrStopped
	default:
	}
	select {
	case <-q.stopped:
		return nil, ErrStopped
	case q.tasks <- t:
		return t.done, nil
	}
}

// Call 实现 Executor, 队列已停止时不运行 fn
func (q *Queue) Call(fn func()) {
	done, err := q.Post(fn)
	if err != nil {
		return
	}
	select {
	case <-done:
	case <-q.stopped:
	}
}
