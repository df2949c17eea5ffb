// Package annotate 标注引擎: 在 FrameBuffer 上栅格化各种工具, 并用整图快照实现撤销/重做
package annotate

import (
	"errors"
	"image"
	"strings"

	"snapdesk/internal/framebuffer"
)

var (
	// ErrNotEditing 未调用 Begin 时返回
	ErrNotEditing = errors.New("annotate: no edit session")
	// ErrNotGesture BeginStroke 传入了只能点击的工具
	ErrNotGesture = errors.New("annotate: tool is not drawn by dragging")
)

// Engine 同一时间持有一个编辑会话的工作缓冲, 非并发安全
type Engine struct {
	maxHistory int

	history *History
	working *framebuffer.FrameBuffer
	preview *framebuffer.FrameBuffer
	stroke  *Stroke
}

// NewEngine 返回空闲引擎. maxHistory 限制可撤销步数, 0 表示不限
func NewEngine(maxHistory int) *Engine {
	return &Engine{maxHistory: maxHistory}
}

// Begin 在 buf 上开启编辑会话, buf 归引擎所有, 作为未编辑快照
func (e *Engine) Begin(buf *framebuffer.FrameBuffer) error {
	if buf == nil {
		return framebuffer.ErrInvalidDimensions
	}
	e.history = NewHistory(buf, e.maxHistory)
	e.working = buf.Copy()
	e.preview = nil
	e.stroke = nil
	return nil
}

// Active 是否有会话
func (e *Engine) Active() bool { return e.history != nil }

// End 关闭会话并释放所有缓冲
func (e *Engine) End() {
	e.history, e.working, e.preview, e.stroke = nil, nil, nil, nil
}

// BeginStroke 在 p 开始拖动, 此刻复制参数
func (e *Engine) BeginStroke(tool Tool, params Params, p image.Point) error {
	if !e.Active() {
		return ErrNotEditing
	}
	if !tool.Gesture() {
		return ErrNotGesture
	}
	e.stroke = &Stroke{Tool: tool, Params: params, Points: []image.Point{p}}
	e.redrawPreview()
	return nil
}

// ExtendStroke 给当前手势追加一个点, 只改预览
func (e *Engine) ExtendStroke(p image.Point) {
	if e.stroke == nil {
		return
	}
	switch e.stroke.Tool {
	case ToolPen:
		e.stroke.Points = append(e.stroke.Points, p)
		// 画笔只会增加墨迹, 只需增量画新的一段
		if e.preview == nil {
			e.redrawPreview()
			return
		}
		n := len(e.stroke.Points)
		a, b := e.stroke.Points[n-2], e.stroke.Points[n-1]
		drawThickLine(e.preview, a.X, a.Y, b.X, b.Y, e.stroke.Params.Color, e.stroke.Params.Width)
		return
	default:
		if len(e.stroke.Points) == 1 {
			e.stroke.Points = append(e.stroke.Points, p)
		} else {
			e.stroke.Points[len(e.stroke.Points)-1] = p
		}
	}
	e.redrawPreview()
}

func (e *Engine) redrawPreview() {
	if e.preview == nil || e.preview.Width != e.working.Width || e.preview.Height != e.working.Height {
		e.preview = e.working.Copy()
	} else {
		copy(e.preview.Pix, e.working.Pix)
	}
	if e.stroke.Tool == ToolMosaic && len(e.stroke.Points) == 1 {
		pixelateRegion(e.preview, mosaicDab(e.stroke.Points[0], e.stroke.Params.Block), e.stroke.Params.Block)
		return
	}
	renderStroke(e.preview, e.stroke)
}

// EndStroke 把当前手势提交到工作缓冲和历史.
// 什么都没画时返回 false, 不提交
func (e *Engine) EndStroke() bool {
	s := e.stroke
	if s == nil {
		return false
	}
	e.stroke = nil

	if !visible(s) {
		return false
	}
	if s.Tool == ToolMosaic && (len(s.Points) == 1 || s.Points[0] == s.Points[len(s.Points)-1]) {
		return e.ApplyMosaic(s.Points[0], s.Params)
	}
	renderStroke(e.working, s)
	e.commit()
	return true
}

// CancelStroke 丢弃当前手势
func (e *Engine) CancelStroke() { e.stroke = nil }

// Stroking 是否有手势进行中
func (e *Engine) Stroking() bool { return e.stroke != nil }

// ApplyText 以 at 为左上角写入文字并提交. 尽量左移/上移保持在画布内,
// 返回写入的区域, 空白文字返回 false
func (e *Engine) ApplyText(at image.Point, text string, params Params) (image.Rectangle, bool) {
	if !e.Active() || strings.TrimSpace(text) == "" {
		return image.Rectangle{}, false
	}
	r := renderText(e.working, at, text, params)
	e.commit()
	return r, true
}

// ApplyMosaic 对以 center 为中心的 block×block 方块打码并提交.
// 裁剪后为空也算成功
func (e *Engine) ApplyMosaic(center image.Point, params Params) bool {
	if !e.Active() {
		return false
	}
	block := max(params.Block, 1)
	if !pixelateRegion(e.working, mosaicDab(center, block), block) {
		return false
	}
	e.commit()
	return true
}

// commit 保存工作缓冲快照. 进行中的手势在新缓冲上重画, 墨迹不丢
func (e *Engine) commit() {
	e.history.Push(e.working.Copy())
	e.preview = nil
	if e.stroke != nil {
		e.redrawPreview()
	}
}

// Undo 回到上一个快照, 已是初始状态时不做任何事
func (e *Engine) Undo() bool {
	if !e.Active() || !e.history.Undo() {
		return false
	}
	e.restore()
	return true
}

// Redo 重做最后一次撤销的编辑
func (e *Engine) Redo() bool {
	if !e.Active() || !e.history.Redo() {
		return false
	}
	e.restore()
	return true
}

func (e *Engine) restore() {
	e.stroke = nil
	e.preview = nil
	e.working = e.history.Current().Copy()
}

func (e *Engine) CanUndo() bool { return e.Active() && e.history.CanUndo() }
func (e *Engine) CanRedo() bool { return e.Active() && e.history.CanRedo() }

// Result 返回工作缓冲的副本, 无会话时返回 nil
func (e *Engine) Result() *framebuffer.FrameBuffer {
	if !e.Active() {
		return nil
	}
	return e.working.Copy()
}

// Preview 返回用户应看到的画面: 工作缓冲加上当前手势
func (e *Engine) Preview() *framebuffer.FrameBuffer {
	if !e.Active() {
		return nil
	}
	if e.stroke != nil && e.preview != nil {
		return e.preview.Copy()
	}
	return e.working.Copy()
}
