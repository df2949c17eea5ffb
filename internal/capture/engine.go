package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"snapdesk/internal/framebuffer"
	"snapdesk/internal/logger"
	"snapdesk/internal/ownerthread"
)

// DefaultTimeout 单次 Capture 的总超时
const DefaultTimeout = 5 * time.Second

var errNotRun = errors.New("owner thread did not run the capture")

// Report 记录一次 Capture 的过程, 每个尝试过的策略按顺序对应一个 Result
type Report struct {
	Target   Target
	Results  []Result
	TimedOut bool
}

// Attempts 尝试过的策略数
func (r Report) Attempts() int { return len(r.Results) }

// Winner 产出画面的策略, 都失败时为空
func (r Report) Winner() StrategyID {
	for _, res := range r.Results {
		if res.OK() {
			return res.Strategy
		}
	}
	return ""
}

// Engine 按优先级尝试策略, 直到某个策略返回画面
type Engine struct {
	chains  map[TargetKind][]Strategy
	exec    ownerthread.Executor
	timeout time.Duration
	log     zerolog.Logger
}

// Option 配置 Engine
type Option func(*Engine)

// WithExecutor 设置所有系统调用使用的 UI 线程执行器
func WithExecutor(e ownerthread.Executor) Option {
	return func(en *Engine) { en.exec = e }
}

// WithTimeout 覆盖 DefaultTimeout, 非正数忽略
func WithTimeout(d time.Duration) Option {
	return func(en *Engine) {
		if d > 0 {
			en.timeout = d
		}
	}
}

// WithChain 替换某类目标的策略顺序
func WithChain(kind TargetKind, strategies ...Strategy) Option {
	return func(en *Engine) { en.chains[kind] = strategies }
}

// NewEngine 装配默认策略链: 窗口先走设备上下文, 桌面先走合成,
// 最后都退回平台通用截图.
func NewEngine(displays Displays, windows Windows, ownTitle string, opts ...Option) *Engine {
	compositor := &DisplayCompositor{Displays: displays}
	wdc := &WindowDeviceContext{Windows: windows, OwnTitle: ownTitle}
	fallback := &PlatformFallback{Displays: displays, Windows: windows}

	e := &Engine{
		chains: map[TargetKind][]Strategy{
			KindWindow:             {wdc, fallback},
			KindFullVirtualDesktop: {compositor, fallback},
			KindPrimaryDisplay:     {compositor, fallback},
		},
		exec:    ownerthread.MainThread{},
		timeout: DefaultTimeout,
		log:     logger.WithComponent("capture"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type outcome struct {
	frame  *framebuffer.FrameBuffer
	report Report
	err    error
}

// Capture 返回第一个成功策略的画面. 策略链在后台 goroutine 中运行,
// 每次策略调用都切到 UI 线程执行. 先超时则放弃本次尝试并返回 ErrTimeout,
// 之后到达的结果直接丢弃.
func (e *Engine) Capture(ctx context.Context, target Target) (*framebuffer.FrameBuffer, Report, error) {
	chain := e.chains[target.Kind()]
	if len(chain) == 0 {
		return nil, Report{Target: target}, fmt.Errorf("%w: no strategies for %s", ErrAllStrategiesExhausted, target)
	}

	done := make(chan outcome, 1)
	go func() {
		frame, report := e.runChain(chain, target)
		if frame == nil {
			done <- outcome{report: report, err: ErrAllStrategiesExhausted}
			return
		}
		done <- outcome{frame: frame, report: report}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			e.log.Warn().Str("target", target.String()).Int("attempts", out.report.Attempts()).Msg("all capture strategies failed")
		} else {
			e.log.Debug().Str("target", target.String()).Str("strategy", string(out.report.Winner())).
				Int("attempts", out.report.Attempts()).Msg("captured")
		}
		return out.frame, out.report, out.err
	case <-timer.C:
		e.log.Warn().Str("target", target.String()).Dur("timeout", e.timeout).Msg("capture timed out")
		return nil, Report{Target: target, TimedOut: true}, ErrTimeout
	case <-ctx.Done():
		return nil, Report{Target: target}, ctx.Err()
	}
}

func (e *Engine) runChain(chain []Strategy, target Target) (*framebuffer.FrameBuffer, Report) {
	report := Report{Target: target}
	for _, s := range chain {
		frame, err := e.attempt(s, target)
		if err != nil {
			e.log.Debug().Str("strategy", string(s.ID())).Str("target", target.String()).Err(err).Msg("strategy failed")
			report.Results = append(report.Results, Result{
				Strategy: s.ID(),
				Err:      &FailedError{Strategy: s.ID(), Reason: err},
			})
			continue
		}
		report.Results = append(report.Results, Result{Strategy: s.ID(), Frame: frame})
		return frame, report
	}
	return nil, report
}

// attempt 在 UI 线程上运行一个策略, 系统绑定的 panic 按普通失败处理
func (e *Engine) attempt(s Strategy, target Target) (frame *framebuffer.FrameBuffer, err error) {
	err = errNotRun
	e.exec.Call(func() {
		defer func() {
			if r := recover(); r != nil {
				frame, err = nil, fmt.Errorf("panic: %v", r)
			}
		}()
		frame, err = s.Capture(target)
		if err == nil && frame == nil {
			err = ErrEmptyFrame
		}
	})
	return frame, err
}
