package annotate

import (
	"slices"

	"snapdesk/internal/framebuffer"
)

// History 保存整图快照. undo 栈顶是当前状态, 栈底是未编辑的原图,
// 永远不会被弹出或淘汰.
type History struct {
	undoStack  []*framebuffer.FrameBuffer
	redoStack  []*framebuffer.FrameBuffer
	maxHistory int
}

// NewHistory 接管 initial. maxHistory 限制可撤销步数, 0 表示不限
func NewHistory(initial *framebuffer.FrameBuffer, maxHistory int) *History {
	if maxHistory < 0 {
		maxHistory = 0
	}
	return &History{
		undoStack:  []*framebuffer.FrameBuffer{initial},
		maxHistory: maxHistory,
	}
}

// Current 工作缓冲应当一致的快照, 调用方不能修改
func (h *History) Current() *framebuffer.FrameBuffer {
	return h.undoStack[len(h.undoStack)-1]
}

// Push 记录一次编辑并清空 redo 栈, 接管 snap. 超过上限时淘汰最早的编辑快照,
// 撤销越过缺口时回到原图.
func (h *History) Push(snap *framebuffer.FrameBuffer) {
	h.undoStack = append(h.undoStack, snap)
	if h.maxHistory > 0 && len(h.undoStack) > h.maxHistory+1 {
		h.undoStack = slices.Delete(h.undoStack, 1, 2)
	}
	clear(h.redoStack)
	h.redoStack = h.redoStack[:0]
}

// Undo 后退一步, 返回是否成功
func (h *History) Undo() bool {
	if len(h.undoStack) <= 1 {
		return false
	}
	top := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, top)
	return true
}

// Redo 重做最后一次撤销, 返回是否成功
func (h *History) Redo() bool {
	if len(h.redoStack) == 0 {
		return false
	}
	last := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, last)
	return true
}

func (h *History) CanUndo() bool { return len(h.undoStack) > 1 }
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

