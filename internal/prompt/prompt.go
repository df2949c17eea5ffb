// Package prompt 用原生对话框向用户询问一行文字
package prompt

import (
	"context"
	"errors"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog"

	"snapdesk/internal/logger"
)

// entryFunc 与 zenity.Entry 签名一致, 测试时替换
type entryFunc func(text string, options ...zenity.Option) (string, error)

// Dialog 模态输入框. zenity 在自己的线程上运行它, 任何 goroutine 都可以阻塞在 Ask 上
type Dialog struct {
	Title   string
	Message string

	entry entryFunc
	log   zerolog.Logger
}

// New 返回指定标题的对话框
func New(title, message string) *Dialog {
	return &Dialog{
		Title:   title,
		Message: message,
		entry:   zenity.Entry,
		log:     logger.WithComponent("prompt"),
	}
}

// NewText 文字标注工具使用的对话框
func NewText() *Dialog {
	return New("SnapDesk", "Annotation text:")
}

// Prompt 以空的初始值询问
func (d *Dialog) Prompt(ctx context.Context) (string, bool) {
	return d.Ask(ctx, "")
}

// Ask 显示预填 initial 的对话框. 用户取消, 留空或对话框无法显示时返回 false
func (d *Dialog) Ask(ctx context.Context, initial string) (string, bool) {
	text, err := d.entry(d.Message,
		zenity.Title(d.Title),
		zenity.EntryText(initial),
		zenity.Context(ctx),
	)
	if err != nil {
		switch {
		case errors.Is(err, zenity.ErrCanceled):
			d.log.Debug().Msg("dialog cancelled")
		case ctx.Err() == nil:
			d.log.Warn().Err(err).Msg("dialog failed")
		}
		return "", false
	}
	text = strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
