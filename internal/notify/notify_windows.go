//go:build windows

package notify

import (
	"github.com/go-toast/toast"

	"snapdesk/internal/logger"
)

// WindowsNotifier 推送 Windows toast 通知
type WindowsNotifier struct {
	appID string
}

// NewNotifier 返回平台通知器
func NewNotifier() Notifier {
	return &WindowsNotifier{appID: AppID}
}

// Show 异步推送, toast 通过 PowerShell 执行, 比较慢
func (n *WindowsNotifier) Show(title, message string) error {
	go func() {
		notification := toast.Notification{
			AppID:    n.appID,
			Title:    title,
			Message:  message,
			Audio:    toast.Silent,
			Duration: toast.Short,
		}
		if err := notification.Push(); err != nil {
			l := logger.WithComponent("notify")
			l.Warn().Err(err).Str("title", title).Msg("toast failed")
		}
	}()
	return nil
}
