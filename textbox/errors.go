package textbox

import (
	"errors"
	"fmt"
)

var (
	// ErrState 表示在错误的阶段调用了 Arranger 的方法，属于编程错误。
	ErrState = errors.New("textbox: arranger 状态错误")
	// ErrNotFinalized 在行尚未 FinalizeLine 时调用查询方法返回。
	ErrNotFinalized = fmt.Errorf("%w: 行尚未定稿", ErrState)
	// ErrFinalized 在行已定稿后调用修改方法返回。
	ErrFinalized = fmt.Errorf("%w: 行已定稿", ErrState)

	// ErrCannotFit 表示宽度不足以放下哪怕一个字符。
	ErrCannotFit = errors.New("textbox: 宽度不足以容纳任何字符")
	// ErrBadFontFamily 表示对缺少字体族信息的字体请求了粗体或斜体。
	ErrBadFontFamily = errors.New("textbox: 字体缺少字体族信息，无法应用样式")
)

// IncompatibleEncodingError 表示文本无法规范化为字体可用的编码。
// Text 保留出错的原始文本。
type IncompatibleEncodingError struct {
	Text string
	Err  error
}

func (e *IncompatibleEncodingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("textbox: 文本 %q 编码不兼容", e.Text)
	}
	return fmt.Sprintf("textbox: 文本 %q 编码不兼容: %v", e.Text, e.Err)
}

func (e *IncompatibleEncodingError) Unwrap() error { return e.Err }
