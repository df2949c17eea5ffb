//go:build !windows

package notify

// NewNotifier 返回平台通知器
func NewNotifier() Notifier { return LogNotifier{} }
