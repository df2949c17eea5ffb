// Package output 处理完成的截图: 写文件, 复制到剪贴板, 弹通知
package output

import (
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"snapdesk/internal/framebuffer"
	"snapdesk/internal/logger"
	"snapdesk/internal/notify"
	"snapdesk/internal/session"
)

// Saver 保存图片并返回路径
type Saver interface {
	Save(img image.Image) (string, error)
}

// ImageClipboard 接收图片副本
type ImageClipboard interface {
	SetImage(img image.Image) error
}

// Options 每次输出时读取, 修改配置立即生效
type Options struct {
	CopyToClipboard  bool
	ShowNotification bool
}

// Sink 实现 session.Sink
type Sink struct {
	saver     Saver
	clipboard ImageClipboard
	notifier  notify.Notifier
	options   func() Options
	log       zerolog.Logger
}

// NewSink 装配依赖, clip 为 nil 时不复制
func NewSink(saver Saver, clip ImageClipboard, notifier notify.Notifier, options func() Options) *Sink {
	if options == nil {
		options = func() Options { return Options{CopyToClipboard: true, ShowNotification: true} }
	}
	return &Sink{
		saver:     saver,
		clipboard: clip,
		notifier:  notifier,
		options:   options,
		log:       logger.WithComponent("output"),
	}
}

// Deliver 保存 fb 并复制到剪贴板. 一步失败不跳过另一步, 两者的结果都告知用户
func (s *Sink) Deliver(fb *framebuffer.FrameBuffer, d session.Delivery) (string, error) {
	if fb == nil {
		return "", fmt.Errorf("deliver: %w", framebuffer.ErrEmptyRegion)
	}
	opts := s.options()
	img := fb.RGBA()

	var errs []error
	path, err := s.saver.Save(img)
	if err != nil {
		s.log.Error().Err(err).Msg("save screenshot")
		s.Notify("Save failed", "The screenshot could not be written to disk.")
		errs = append(errs, fmt.Errorf("save: %w", err))
	}

	copied := false
	if opts.CopyToClipboard && s.clipboard != nil {
		if err := s.clipboard.SetImage(img); err != nil {
			s.log.Warn().Err(err).Msg("copy screenshot to clipboard")
			s.Notify("Clipboard failed", "The screenshot could not be copied.")
			errs = append(errs, fmt.Errorf("clipboard: %w", err))
		} else {
			copied = true
		}
	}

	if len(errs) == 0 && opts.ShowNotification && !d.Silent {
		msg := fmt.Sprintf("Saved to %s", path)
		if copied {
			msg += " and copied to the clipboard"
		}
		s.Notify("Screenshot saved", msg)
	}
	return path, errors.Join(errs...)
}

// Notify 显示消息, 失败只记录日志
func (s *Sink) Notify(title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Show(title, message); err != nil {
		s.log.Warn().Err(err).Str("title", title).Msg("notification failed")
	}
}
