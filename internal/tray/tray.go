// Package tray 常驻通知区域菜单
package tray

import (
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"snapdesk/internal/logger"
)

// Entry 菜单中的一个截图动作
type Entry struct {
	Action string
	Label  string
	Hotkey string
}

// DefaultEntries 按菜单顺序列出截图动作
func DefaultEntries() []Entry {
	return []Entry{
		{Action: "region", Label: "Capture region"},
		{Action: "fullscreen", Label: "Capture full screen"},
		{Action: "window", Label: "Capture active window"},
		{Action: "quick", Label: "Quick capture"},
	}
}

// Tray 系统托盘图标和菜单
type Tray struct {
	entries      []Entry
	editAfter    bool
	onAction     func(action string)
	onToggleEdit func(bool)
	onOpenDir    func()
	onQuit       func()
	log          zerolog.Logger
}

// NewTray 返回带默认条目的托盘
func NewTray() *Tray {
	return &Tray{
		entries: DefaultEntries(),
		log:     logger.WithComponent("tray"),
	}
}

// SetHotkeyText 在 action 条目旁显示 text
func (t *Tray) SetHotkeyText(action, text string) {
	for i := range t.entries {
		if t.entries[i].Action == action {
			t.entries[i].Hotkey = text
		}
	}
}

// SetEditAfterCapture 设置编辑开关的初始状态
func (t *Tray) SetEditAfterCapture(on bool) { t.editAfter = on }

func (t *Tray) SetOnAction(fn func(action string)) { t.onAction = fn }
func (t *Tray) SetOnToggleEdit(fn func(bool))      { t.onToggleEdit = fn }
func (t *Tray) SetOnOpenDir(fn func())             { t.onOpenDir = fn }
func (t *Tray) SetOnQuit(fn func())                { t.onQuit = fn }

// Entries 返回带热键文字的截图条目
func (t *Tray) Entries() []Entry { return append([]Entry(nil), t.entries...) }

// Run 显示托盘, 阻塞到 Quit
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit 移除托盘图标, 让 Run 返回
func (t *Tray) Quit() {
	systray.Quit()
}

// MenuLabel 把条目格式化为 "Label (Alt+1)"
func MenuLabel(e Entry) string {
	if e.Hotkey == "" {
		return e.Label
	}
	return e.Label + " (" + e.Hotkey + ")"
}

func (t *Tray) onReady() {
	systray.SetIcon(getIcon())
	systray.SetTitle("SnapDesk")
	systray.SetTooltip("SnapDesk - screenshot and annotate")

	clicks := make(chan string)
	for _, e := range t.entries {
		item := systray.AddMenuItem(MenuLabel(e), e.Label)
		go func(action string, ch <-chan struct{}) {
			for range ch {
				clicks <- action
			}
		}(e.Action, item.ClickedCh)
	}
	systray.AddSeparator()

	mEdit := systray.AddMenuItemCheckbox("Edit after capture", "Open the editor after each capture", t.editAfter)
	mOpenDir := systray.AddMenuItem("Open screenshot folder", "Open the save directory")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit SnapDesk")

	go func() {
		for {
			select {
			case action := <-clicks:
				t.log.Debug().Str("action", action).Msg("menu click")
				if t.onAction != nil {
					t.onAction(action)
				}
			case <-mEdit.ClickedCh:
				if mEdit.Checked() {
					mEdit.Uncheck()
				} else {
					mEdit.Check()
				}
				if t.onToggleEdit != nil {
					t.onToggleEdit(mEdit.Checked())
				}
			case <-mOpenDir.ClickedCh:
				if t.onOpenDir != nil {
					t.onOpenDir()
				}
			case <-mQuit.ClickedCh:
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.log.Info().Msg("tray closed")
}
