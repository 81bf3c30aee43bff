package textbox

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler 丢弃所有日志记录；Enabled 返回 false，调用方不会格式化消息。
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger 设置排版引擎及 layout 包使用的日志。默认不输出任何日志，
// 传入 nil 恢复静默。
//
// 使用的级别：
//   - [slog.LevelDebug]: 缩放步进、垂直对齐预排、回退字体重分段、换区域
//   - [slog.LevelWarn]: 被丢弃的剩余文本
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger 返回当前日志。
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
