// Package notify 桌面通知
package notify

import "snapdesk/internal/logger"

// Notifier 显示通知, 不阻塞调用方
type Notifier interface {
	Show(title, message string) error
}

// AppID 通知中显示的应用名
const AppID = "SnapDesk"

// LogNotifier 把通知写进日志, 用于无界面运行和没有 toast 接口的平台
type LogNotifier struct{}

func (LogNotifier) Show(title, message string) error {
	l := logger.WithComponent("notify")
	l.Info().Str("title", title).Msg(message)
	return nil
}
