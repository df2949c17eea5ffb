// Package selection 把指针拖动变成确定的矩形
package selection

import (
	"image"

	"snapdesk/internal/input"
)

// MinSize 宽或高不超过该值时视为误点
const MinSize = 10

// State 一次选区的状态
type State int

const (
	Idle State = iota
	Dragging
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committed:
		return "committed"
	}
	return "unknown"
}

// Controller 非并发安全, 由会话的协调 goroutine 驱动
type Controller struct {
	state    State
	anchor   image.Point
	current  image.Point
	onResize func(image.Rectangle)
}

// New 返回 Idle 状态的控制器. onResize 非 nil 时, 每次拖动都会收到当前矩形
func New(onResize func(image.Rectangle)) *Controller {
	return &Controller{onResize: onResize}
}

func (c *Controller) State() State { return c.state }

// Rect 规范化后的选区, Idle 时为空
func (c *Controller) Rect() image.Rectangle {
	if c.state == Idle {
		return image.Rectangle{}
	}
	return image.Rectangle{Min: c.anchor, Max: c.current}.Canon()
}

// PointerDown 在 Idle 状态开始拖动, 其他按键和状态忽略
func (c *Controller) PointerDown(p image.Point, b input.Button) {
	if b != input.ButtonPrimary || c.state != Idle {
		return
	}
	c.anchor, c.current = p, p
	c.state = Dragging
}

func (c *Controller) PointerMove(p image.Point) {
	if c.state != Dragging {
		return
	}
	c.current = p
	if c.onResize != nil {
		c.onResize(c.Rect())
	}
}

// PointerUp 固定拖动结果. 矩形太小时 ok 为 false, 控制器回到 Idle
func (c *Controller) PointerUp(p image.Point, b input.Button) (image.Rectangle, bool) {
	if b != input.ButtonPrimary || c.state != Dragging {
		return image.Rectangle{}, false
	}
	c.current = p
	r := c.Rect()
	if r.Dx() <= MinSize || r.Dy() <= MinSize {
		c.Cancel()
		return image.Rectangle{}, false
	}
	c.state = Committed
	return r, true
}

// Cancel 任何状态下丢弃选区
func (c *Controller) Cancel() {
	c.state = Idle
	c.anchor, c.current = image.Point{}, image.Point{}
}

// Reset 开始新一轮
func (c *Controller) Reset() { c.Cancel() }
