// Package session 负责一次截图的完整流程: 截图, 选区, 编辑, 交给输出.
// 所有状态都在 Run 启动的协调 goroutine 中, 公开方法只投递事件,
// 热键, 托盘和遮罩的调用不会互相竞争.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"snapdesk/internal/annotate"
	"snapdesk/internal/capture"
	"snapdesk/internal/framebuffer"
	"snapdesk/internal/input"
	"snapdesk/internal/logger"
	"snapdesk/internal/selection"
)

// DefaultStuckAfter 非 Ready 状态无活动超过该时长后, 新的 Start 会强制重置
const DefaultStuckAfter = 10 * time.Second

// State 协调器状态
type State int32

const (
	Ready State = iota
	Capturing
	Selecting
	Editing
	Finalizing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Capturing:
		return "capturing"
	case Selecting:
		return "selecting"
	case Editing:
		return "editing"
	case Finalizing:
		return "finalizing"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Mode 截图模式
type Mode string

const (
	ModeFullscreen Mode = "fullscreen"
	ModeWindow     Mode = "window"
	ModeRegion     Mode = "region"
	ModeQuick      Mode = "quick"
)

// Modes 按菜单顺序列出所有模式
var Modes = []Mode{ModeRegion, ModeFullscreen, ModeWindow, ModeQuick}

// ParseMode 解析模式名, 忽略大小写
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown capture mode %q", s)
}

// Capturer 会话使用的截图引擎
type Capturer interface {
	Capture(ctx context.Context, target capture.Target) (*framebuffer.FrameBuffer, capture.Report, error)
}

// Overlay 全屏选区和编辑界面. 调用来自协调 goroutine, 实现自行切换到 UI 线程.
type Overlay interface {
	// Open 显示 plate, 输入交给 h, 直到 Close
	Open(plate *framebuffer.FrameBuffer, h input.Handler) error
	// ShowSelection 绘制当前选区, 空矩形表示清除
	ShowSelection(r image.Rectangle)
	// ShowEdit 用编辑预览替换选区, 并刷新工具栏高亮
	ShowEdit(preview *framebuffer.FrameBuffer, at image.Rectangle, st input.EditState)
	Close()
}

// Delivery 控制输出如何处理截图
type Delivery struct {
	Silent bool // 不弹通知
}

// Sink 接收完成的截图
type Sink interface {
	Deliver(fb *framebuffer.FrameBuffer, d Delivery) (string, error)
	Notify(title, message string)
}

// TextPrompt 向用户询问文字标注, 可以阻塞
type TextPrompt interface {
	Prompt(ctx context.Context) (string, bool)
}

// Settings 每次 Start 时读取一次
type Settings struct {
	EditAfterCapture bool
	Tool             annotate.Tool
	Params           annotate.Params
}

// Options 构造 Session 的参数
type Options struct {
	Engine     Capturer
	Foreground capture.ForegroundResolver
	Overlay    Overlay
	Sink       Sink
	Prompt     TextPrompt
	Settings   func() Settings

	StuckAfter time.Duration
	MaxHistory int
	Now        func() time.Time
	Logger     *zerolog.Logger
}

// Session 全局截图协调器
type Session struct {
	engine     Capturer
	foreground capture.ForegroundResolver
	overlay    Overlay
	sink       Sink
	prompt     TextPrompt
	settings   func() Settings
	stuckAfter time.Duration
	now        func() time.Time
	log        zerolog.Logger

	events chan interface{}
	done   chan struct{}
	ctx    context.Context

	published atomic.Int32

	// 仅协调器访问
	state        State
	mode         Mode
	cycle        uint64
	lastActivity time.Time
	current      Settings
	plate        *framebuffer.FrameBuffer
	overlayOpen  bool
	sel          *selection.Controller
	editor       *annotate.Engine
	editRect     image.Rectangle
	tool         annotate.Tool
	params       annotate.Params
}

// New 创建 Session, 需要调用 Run 启动
func New(opts Options) *Session {
	s := &Session{
		engine:     opts.Engine,
		foreground: opts.Foreground,
		overlay:    opts.Overlay,
		sink:       opts.Sink,
		prompt:     opts.Prompt,
		settings:   opts.Settings,
		stuckAfter: opts.StuckAfter,
		now:        opts.Now,
		events:     make(chan interface{}, 64),
		done:       make(chan struct{}),
		ctx:        context.Background(),
		editor:     annotate.NewEngine(opts.MaxHistory),
	}
	if s.stuckAfter <= 0 {
		s.stuckAfter = DefaultStuckAfter
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.settings == nil {
		s.settings = func() Settings { return Settings{Params: annotate.DefaultParams()} }
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	} else {
		s.log = logger.WithComponent("session")
	}
	s.sel = selection.New(s.onSelectionResize)
	return s
}

type (
	evtStart struct {
		mode  Mode
		reply chan bool
	}
	evtCancel   struct{}
	evtCaptured struct {
		cycle  uint64
		target capture.Target
		frame  *framebuffer.FrameBuffer
		report capture.Report
		err    error
	}
	evtPointer struct {
		kind   pointerKind
		p      image.Point
		button input.Button
	}
	evtKey    struct{ key input.Key }
	evtClosed struct{}
	evtText   struct {
		cycle  uint64
		at     image.Point
		params annotate.Params
		text   string
		ok     bool
	}
)

type pointerKind int

const (
	pointerDown pointerKind = iota
	pointerMove
	pointerUp
)

// Run 运行协调器直到 ctx 取消
func (s *Session) Run(ctx context.Context) {
	s.ctx = ctx
	defer close(s.done)

	s.log.Info().Msg("session coordinator started")
	for {
		select {
		case <-ctx.Done():
			s.teardown()
			s.log.Info().Msg("session coordinator stopped")
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

// Start 请求一次截图, 返回是否接受. 已有截图进行中时拒绝,
// 除非上一次看起来卡住了.
func (s *Session) Start(mode Mode) bool {
	reply := make(chan bool, 1)
	if !s.post(evtStart{mode: mode, reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-s.done:
		return false
	}
}

// Cancel 放弃当前进行中的操作
func (s *Session) Cancel() { s.post(evtCancel{}) }

// State 供协调器外部读取的状态快照
func (s *Session) State() State { return State(s.published.Load()) }

// input.Handler, 由遮罩调用

func (s *Session) PointerDown(p image.Point, b input.Button) {
	s.post(evtPointer{kind: pointerDown, p: p, button: b})
}

// PointerMove 队列满时直接丢弃, 不阻塞 UI 线程, 下一次移动会覆盖它
func (s *Session) PointerMove(p image.Point) {
	select {
	case s.events <- evtPointer{kind: pointerMove, p: p}:
	default:
	}
}

func (s *Session) PointerUp(p image.Point, b input.Button) {
	s.post(evtPointer{kind: pointerUp, p: p, button: b})
}

func (s *Session) KeyPress(k input.Key) { s.post(evtKey{key: k}) }

func (s *Session) Closed() { s.post(evtClosed{}) }

func (s *Session) post(ev interface{}) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) handle(ev interface{}) {
	switch e := ev.(type) {
	case evtStart:
		e.reply <- s.handleStart(e.mode)
	case evtCancel:
		s.cancel("cancelled")
	case evtCaptured:
		s.handleCaptured(e)
	case evtPointer:
		s.handlePointer(e)
	case evtKey:
		s.handleKey(e.key)
	case evtClosed:
		s.overlayOpen = false
		if s.state == Selecting || s.state == Editing {
			s.cancel("overlay closed")
		}
	case evtText:
		s.handleText(e)
	default:
		s.log.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("unknown event")
	}
}

func (s *Session) setState(st State) {
	if s.state != st {
		s.log.Debug().Str("from", s.state.String()).Str("to", st.String()).Uint64("cycle", s.cycle).Msg("state")
	}
	s.state = st
	s.published.Store(int32(st))
}

func (s *Session) touch() { s.lastActivity = s.now() }

func (s *Session) handleStart(mode Mode) bool {
	if _, err := ParseMode(string(mode)); err != nil {
		s.log.Warn().Err(err).Msg("start ignored")
		return false
	}
	if s.state != Ready {
		idle := s.now().Sub(s.lastActivity)
		if idle <= s.stuckAfter {
			s.log.Info().Str("mode", string(mode)).Str("state", s.state.String()).Msg("capture already in progress, ignoring")
			return false
		}
		s.log.Warn().Str("state", s.state.String()).Dur("idle", idle).Msg("session stuck, forcing reset")
		s.reset()
	}

	s.current = s.settings()
	s.tool = s.current.Tool
	s.params = s.current.Params
	s.cycle++
	s.mode = mode
	s.touch()
	s.setState(Capturing)

	target := capture.FullVirtualDesktop()
	if mode == ModeWindow {
		h := capture.Handle(0)
		if s.foreground != nil {
			h = s.foreground.Foreground()
		}
		if h == 0 || s.foreground.IsOwn(h) {
			s.log.Info().Msg("no usable foreground window, capturing full screen")
			s.mode = ModeFullscreen
		} else {
			target = capture.Window(h)
		}
	}

	s.log.Info().Str("mode", string(s.mode)).Str("target", target.String()).Uint64("cycle", s.cycle).Msg("capture started")
	s.launchCapture(target)
	return true
}

func (s *Session) launchCapture(target capture.Target) {
	cycle := s.cycle
	ctx := s.ctx
	go func() {
		frame, report, err := s.engine.Capture(ctx, target)
		s.post(evtCaptured{cycle: cycle, target: target, frame: frame, report: report, err: err})
	}()
}

func (s *Session) handleCaptured(e evtCaptured) {
	if e.cycle != s.cycle || s.state != Capturing {
		s.log.Debug().Uint64("cycle", e.cycle).Uint64("current", s.cycle).Msg("discarding stale capture result")
		return
	}
	s.touch()

	if e.err != nil {
		if e.target.Kind() == capture.KindWindow {
			s.log.Warn().Err(e.err).Msg("window capture failed, falling back to full screen")
			s.mode = ModeFullscreen
			s.launchCapture(capture.FullVirtualDesktop())
			return
		}
		s.log.Error().Err(e.err).Int("attempts", e.report.Attempts()).Msg("capture failed")
		msg := "Could not capture the screen."
		if errors.Is(e.err, capture.ErrTimeout) {
			msg = "Screen capture timed out."
		}
		s.sink.Notify("Screenshot failed", msg)
		s.toReady()
		return
	}

	switch s.mode {
	case ModeRegion:
		s.beginSelection(e.frame)
	case ModeQuick:
		s.finalize(e.frame, Delivery{Silent: true})
	default:
		s.finalize(e.frame, Delivery{})
	}
}

func (s *Session) beginSelection(plate *framebuffer.FrameBuffer) {
	s.plate = plate
	s.sel.Reset()
	s.setState(Selecting)

	if err := s.overlay.Open(plate.Copy(), s); err != nil {
		s.log.Error().Err(err).Msg("open selection overlay")
		s.sink.Notify("Screenshot failed", "Could not open the selection window.")
		s.reset()
		s.toReady()
		return
	}
	s.overlayOpen = true
}

func (s *Session) onSelectionResize(r image.Rectangle) {
	if s.overlayOpen {
		s.overlay.ShowSelection(r)
	}
}

func (s *Session) handlePointer(e evtPointer) {
	switch s.state {
	case Selecting:
		s.touch()
		s.selectionPointer(e)
	case Editing:
		s.touch()
		s.editPointer(e)
	}
}

func (s *Session) selectionPointer(e evtPointer) {
	switch e.kind {
	case pointerDown:
		if e.button == input.ButtonSecondary {
			// 右键: 退出选区, 或退出本次会话
			if s.sel.State() == selection.Idle {
				s.cancel("cancelled")
				return
			}
			s.sel.Cancel()
			s.overlay.ShowSelection(image.Rectangle{})
			return
		}
		if s.sel.State() == selection.Committed {
			s.sel.Reset()
		}
		s.sel.PointerDown(e.p, e.button)
		s.overlay.ShowSelection(s.sel.Rect())
	case pointerMove:
		s.sel.PointerMove(e.p)
	case pointerUp:
		r, ok := s.sel.PointerUp(e.p, e.button)
		if !ok {
			if s.sel.State() == selection.Idle {
				s.overlay.ShowSelection(image.Rectangle{})
			}
			return
		}
		s.log.Debug().Str("rect", r.String()).Msg("selection committed")
		s.overlay.ShowSelection(r)
	}
}

func (s *Session) handleKey(k input.Key) {
	if s.state != Selecting && s.state != Editing {
		return
	}
	s.touch()

	if k == input.KeyEscape {
		s.cancel("escape")
		return
	}
	if s.state == Selecting {
		if k == input.KeyEnter {
			s.confirmSelection()
		}
		return
	}

	switch k {
	case input.KeyEnter:
		s.confirmEdit()
	case input.KeyUndo:
		if s.editor.Undo() {
			s.showEdit()
		}
	case input.KeyRedo:
		if s.editor.Redo() {
			s.showEdit()
		}
	case input.KeyFill:
		s.params.Filled = !s.params.Filled
		s.showEdit()
	default:
		if t, ok := toolForKey[k]; ok {
			s.tool = t
			s.showEdit()
			return
		}
		if s.applyPalette(k) {
			s.showEdit()
		}
	}
}

var toolForKey = map[input.Key]annotate.Tool{
	input.KeyToolPen:     annotate.ToolPen,
	input.KeyToolArrow:   annotate.ToolArrow,
	input.KeyToolText:    annotate.ToolText,
	input.KeyToolMosaic:  annotate.ToolMosaic,
	input.KeyToolRect:    annotate.ToolRect,
	input.KeyToolEllipse: annotate.ToolEllipse,
}

// applyPalette 设置调色板按键对应的参数, 已开始的笔画保持原参数
func (s *Session) applyPalette(k input.Key) bool {
	group, i, ok := k.Palette()
	if !ok || i < 0 {
		return false
	}
	switch group {
	case input.KeyColor:
		if i >= len(annotate.DefaultColors) {
			return false
		}
		s.params.Color = annotate.DefaultColors[i]
	case input.KeyWidth:
		if i >= len(annotate.DefaultLineWidths) {
			return false
		}
		s.params.Width = annotate.DefaultLineWidths[i]
	case input.KeyFont:
		if i >= len(annotate.DefaultFontSizes) {
			return false
		}
		s.params.FontSize = annotate.DefaultFontSizes[i]
	default:
		return false
	}
	return true
}

// editState 返回工具栏需要显示的工具和参数
func (s *Session) editState() input.EditState {
	st := input.EditState{
		Color:  indexOf(annotate.DefaultColors, s.params.Color),
		Width:  indexOf(annotate.DefaultLineWidths, s.params.Width),
		Font:   indexOf(annotate.DefaultFontSizes, s.params.FontSize),
		Filled: s.params.Filled,
	}
	for k, t := range toolForKey {
		if t == s.tool {
			st.Tool = k
		}
	}
	return st
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func (s *Session) confirmSelection() {
	if s.sel.State() != selection.Committed {
		return
	}
	r := s.sel.Rect()
	cropped, err := s.plate.Crop(r)
	if err != nil {
		s.log.Warn().Err(err).Str("rect", r.String()).Msg("crop selection")
		s.sel.Cancel()
		s.overlay.ShowSelection(image.Rectangle{})
		return
	}
	s.plate = nil

	if !s.current.EditAfterCapture {
		s.closeOverlay()
		s.finalize(cropped, Delivery{})
		return
	}

	s.editRect = image.Rectangle{Min: r.Min, Max: r.Min.Add(image.Pt(cropped.Width, cropped.Height))}
	if err := s.editor.Begin(cropped); err != nil {
		s.log.Warn().Err(err).Msg("begin edit")
		s.closeOverlay()
		s.toReady()
		return
	}
	s.setState(Editing)
	s.showEdit()
}

func (s *Session) showEdit() {
	if s.overlayOpen {
		s.overlay.ShowEdit(s.editor.Preview(), s.editRect, s.editState())
	}
}

func (s *Session) editPointer(e evtPointer) {
	local := e.p.Sub(s.editRect.Min)
	switch e.kind {
	case pointerDown:
		if e.button != input.ButtonPrimary {
			s.editor.CancelStroke()
			s.showEdit()
			return
		}
		if s.tool == annotate.ToolText {
			s.askText(local, s.params)
			return
		}
		if err := s.editor.BeginStroke(s.tool, s.params, local); err != nil {
			s.log.Debug().Err(err).Msg("begin stroke")
			return
		}
		s.showEdit()
	case pointerMove:
		if s.editor.Stroking() {
			s.editor.ExtendStroke(local)
			s.showEdit()
		}
	case pointerUp:
		if !s.editor.Stroking() {
			return
		}
		s.editor.ExtendStroke(local)
		s.editor.EndStroke()
		s.showEdit()
	}
}

func (s *Session) askText(at image.Point, params annotate.Params) {
	if s.prompt == nil {
		return
	}
	cycle := s.cycle
	ctx := s.ctx
	go func() {
		text, ok := s.prompt.Prompt(ctx)
		s.post(evtText{cycle: cycle, at: at, params: params, text: text, ok: ok})
	}()
}

func (s *Session) handleText(e evtText) {
	if e.cycle != s.cycle || s.state != Editing || !e.ok {
		return
	}
	if s.editor.Stroking() {
		s.log.Debug().Msg("text arrived during a stroke, dropped")
		return
	}
	s.touch()
	if _, ok := s.editor.ApplyText(e.at, e.text, e.params); ok {
		s.showEdit()
	}
}

func (s *Session) confirmEdit() {
	s.editor.CancelStroke()
	result := s.editor.Result()
	s.editor.End()
	s.closeOverlay()
	s.finalize(result, Delivery{})
}

// finalize 把 fb 交给输出, 最终回到 Ready
func (s *Session) finalize(fb *framebuffer.FrameBuffer, d Delivery) {
	s.setState(Finalizing)
	path, err := s.sink.Deliver(fb, d)
	if err != nil {
		s.log.Error().Err(err).Msg("deliver screenshot")
	} else {
		s.log.Info().Str("path", path).Int("width", fb.Width).Int("height", fb.Height).Msg("screenshot delivered")
	}
	s.toReady()
}

func (s *Session) cancel(reason string) {
	if s.state == Ready {
		return
	}
	s.log.Info().Str("reason", reason).Str("state", s.state.String()).Msg("capture cancelled")
	s.reset()
	s.setState(Cancelled)
	s.toReady()
}

// reset 丢弃本轮的缓冲和界面. 递增 cycle 后, 仍在进行的截图回来时会被视为过期
func (s *Session) reset() {
	s.cycle++
	s.editor.End()
	s.sel.Cancel()
	s.closeOverlay()
	s.plate = nil
	s.editRect = image.Rectangle{}
}

func (s *Session) closeOverlay() {
	if s.overlayOpen {
		s.overlayOpen = false
		s.overlay.Close()
	}
}

func (s *Session) toReady() {
	s.touch()
	s.setState(Ready)
}

func (s *Session) teardown() {
	if s.state != Ready {
		s.reset()
		s.setState(Ready)
	}
}
