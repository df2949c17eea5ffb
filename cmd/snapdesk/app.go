package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"snapdesk/internal/annotate"
	"snapdesk/internal/capture"
	"snapdesk/internal/clipboard"
	"snapdesk/internal/config"
	"snapdesk/internal/framebuffer"
	"snapdesk/internal/hotkey"
	"snapdesk/internal/logger"
	"snapdesk/internal/notify"
	"snapdesk/internal/output"
	"snapdesk/internal/overlay"
	"snapdesk/internal/ownerthread"
	"snapdesk/internal/prompt"
	"snapdesk/internal/session"
	"snapdesk/internal/storage"
	"snapdesk/internal/tray"
)

// app 持有一个进程的所有组件和它们读取的配置
type app struct {
	mu  sync.Mutex
	cfg *config.Config

	store     *storage.Storage
	clip      *clipboard.System
	out       *output.Sink
	ui        *ownerthread.Queue
	sess      *session.Session
	delivered chan string
	log       zerolog.Logger
}

func newApp(c *config.Config) (*app, error) {
	if err := c.EnsureStorageDir(); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	a := &app{
		cfg:       c,
		delivered: make(chan string, 1),
		log:       logger.WithComponent("app"),
	}
	a.store = storage.NewStorage(c.Storage.Directory, c.Storage.Format, c.Storage.Quality)
	a.clip = clipboard.NewClipboard()
	a.out = output.NewSink(a.store, a.clip, notify.NewNotifier(), a.outputOptions)

	// 截图调用和遮罩窗口共用一个 UI 线程
	a.ui = ownerthread.NewQueue(16)
	timeout := time.Duration(c.Capture.TimeoutMs) * time.Millisecond
	engine := capture.NewEngine(capture.ScreenDisplays{}, capture.NewWindows(), c.Capture.AppTitle,
		capture.WithTimeout(timeout), capture.WithExecutor(a.ui))

	a.sess = session.New(session.Options{
		Engine:     engine,
		Foreground: capture.NewForeground(c.Capture.AppTitle),
		Overlay:    overlay.New(c.Capture.AppTitle, a.ui),
		Sink:       a,
		Prompt:     prompt.NewText(),
		Settings:   a.settings,
		StuckAfter: time.Duration(c.Capture.StuckMs) * time.Millisecond,
		MaxHistory: c.Editor.MaxHistory,
	})
	return a, nil
}

// Deliver 实现 session.Sink, 记住最近保存的路径
func (a *app) Deliver(fb *framebuffer.FrameBuffer, d session.Delivery) (string, error) {
	path, err := a.out.Deliver(fb, d)
	if path != "" {
		select {
		case <-a.delivered:
		default:
		}
		a.delivered <- path
	}
	return path, err
}

// Notify 实现 session.Sink
func (a *app) Notify(title, message string) { a.out.Notify(title, message) }

func (a *app) settings() session.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sessionSettings(a.cfg)
}

func (a *app) outputOptions() output.Options {
	a.mu.Lock()
	defer a.mu.Unlock()
	return output.Options{
		CopyToClipboard:  a.cfg.Behavior.CopyToClipboard,
		ShowNotification: a.cfg.Behavior.ShowNotification,
	}
}

// sessionSettings 把编辑器配置转换为单次截图的设置
func sessionSettings(c *config.Config) session.Settings {
	tool, err := annotate.ParseTool(c.Editor.Tool)
	if err != nil {
		tool = annotate.ToolPen
	}
	params := annotate.DefaultParams()
	if col, err := annotate.ParseColor(c.Editor.Color); err == nil {
		params.Color = col
	}
	params.Width = c.Editor.PenWidth
	params.FontSize = c.Editor.FontSize
	params.Block = c.Editor.MosaicBlock
	return session.Settings{
		EditAfterCapture: c.Behavior.EditAfterCapture,
		Tool:             tool,
		Params:           params,
	}
}

func (a *app) setEditAfterCapture(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Behavior.EditAfterCapture = on
	if err := a.cfg.Save(); err != nil {
		a.log.Warn().Err(err).Msg("save config")
	}
}

// trigger 执行热键或菜单动作
func (a *app) trigger(action string) {
	if action == "cancel" {
		a.sess.Cancel()
		return
	}
	mode, err := session.ParseMode(action)
	if err != nil {
		a.log.Warn().Str("action", action).Msg("unknown action")
		return
	}
	if !a.sess.Start(mode) {
		a.log.Info().Str("mode", string(mode)).Msg("capture already in progress")
	}
}

// cleanup 删除超过保留期的截图 (如果设置了保留期)
func (a *app) cleanup() {
	a.mu.Lock()
	days := a.cfg.Storage.RetentionDays
	a.mu.Unlock()
	if days <= 0 {
		return
	}
	n, err := a.store.Cleanup(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		a.log.Warn().Err(err).Msg("cleanup")
	}
	if n > 0 {
		a.log.Info().Int("removed", n).Int("days", days).Msg("old screenshots removed")
	}
}

func (a *app) openDir() {
	dir := a.store.Directory()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer.exe", dir)
	case "darwin":
		cmd = exec.Command("open", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	if err := cmd.Start(); err != nil {
		a.log.Warn().Err(err).Str("dir", dir).Msg("open screenshot directory")
	}
}

func (a *app) logDisplays() {
	for _, d := range (capture.ScreenDisplays{}).List() {
		a.log.Debug().Int("index", d.Index).Str("bounds", d.Bounds.String()).Msg("display")
	}
	logDPIInfo(a.log)
}

// runResident 托盘进程: 热键和菜单驱动会话, 直到退出
func runResident() error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.ui.Run(ctx)
	go a.sess.Run(ctx)

	a.logDisplays()
	a.cleanup()

	hk := hotkey.NewManager()
	if err := hk.Register(cfg.Hotkeys.ByAction(), a.trigger); err != nil {
		a.log.Warn().Err(err).Msg("some hotkeys were not registered")
		a.Notify("Hotkeys", "Some hotkeys could not be registered. Use set-hotkey to pick others.")
	}
	defer hk.Unregister()

	t := tray.NewTray()
	for action, combo := range hk.Bound() {
		t.SetHotkeyText(action, combo)
	}
	t.SetEditAfterCapture(cfg.Behavior.EditAfterCapture)
	// Start 会等待协调器, 不能阻塞菜单循环
	t.SetOnAction(func(action string) { go a.trigger(action) })
	t.SetOnToggleEdit(a.setEditAfterCapture)
	t.SetOnOpenDir(a.openDir)
	t.SetOnQuit(cancel)

	a.log.Info().Str("dir", a.store.Directory()).Str("format", string(a.store.Format())).Msg("SnapDesk started")
	t.Run()
	return nil
}
