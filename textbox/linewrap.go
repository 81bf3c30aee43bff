package textbox

import (
	"strings"
	"unicode"
)

// widthEpsilon 吸收累加宽度时的浮点误差。
const widthEpsilon = 1e-9

type WrapOptions struct {
	Width             float64
	Kerning           bool
	DisableWrapByChar bool
}

// LineWrap 实现按空白/非空白 token 的贪心断行。
// 每次 WrapLine 通过 Arranger 消费 Run，放不下的部分经 UpdateLastString 退回。
type LineWrap struct {
	opts     WrapOptions
	arranger *Arranger

	accumulated        float64
	output             strings.Builder
	placed             bool
	moreThanOneWord    bool
	newlineEncountered bool
	lineFull           bool

	width      float64
	spaceCount int
}

// WrapLine 排出一行，返回该行文本。
func (w *LineWrap) WrapLine(opts WrapOptions, a *Arranger) (string, error) {
	w.initializeLine(opts, a)
	for {
		text, ok, err := a.NextString()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		if w.lineEmpty() && text != "\n" {
			stripped := strings.TrimLeftFunc(text, isBreakingSpace)
			if stripped == "" {
				// 空行开头的纯空白 Run 直接丢弃
				if err := a.UpdateLastString("", ""); err != nil {
					return "", err
				}
				continue
			}
			text = stripped
		}
		var more bool
		err = a.ApplyFontSettings(func() error {
			var err error
			more, err = w.addFragment(text)
			return err
		})
		if err != nil {
			return "", err
		}
		if !more {
			break
		}
	}
	if err := a.FinalizeLine(); err != nil {
		return "", err
	}
	var err error
	if w.width, err = a.LineWidth(); err != nil {
		return "", err
	}
	if w.spaceCount, err = a.SpaceCount(); err != nil {
		return "", err
	}
	return a.Line()
}

func (w *LineWrap) initializeLine(opts WrapOptions, a *Arranger) {
	w.opts = opts
	w.arranger = a
	w.accumulated = 0
	w.output.Reset()
	w.placed = false
	w.moreThanOneWord = false
	w.newlineEncountered = false
	w.lineFull = false
	w.width = 0
	w.spaceCount = 0
	a.InitializeLine()
}

// Width 返回上一行的宽度（不含行尾空白）。
func (w *LineWrap) Width() float64 { return w.width }

func (w *LineWrap) SpaceCount() int { return w.spaceCount }

// ParagraphFinished 表示上一行是段落的最后一行：遇到硬换行、
// 下一个 Run 是硬换行或输入已耗尽。
func (w *LineWrap) ParagraphFinished() bool {
	if w.newlineEncountered || w.arranger == nil || w.arranger.Finished() {
		return true
	}
	next, _ := w.arranger.PreviewNextString()
	return next == "\n"
}

func (w *LineWrap) lineEmpty() bool { return !w.placed && w.accumulated == 0 }

func (w *LineWrap) lineFinished() bool { return w.lineFull || w.ParagraphFinished() }

// addFragment 逐 token 加入一个 Run；全部放下时返回 true。
func (w *LineWrap) addFragment(text string) (bool, error) {
	if text == "" {
		return true, nil
	}
	if text == "\n" {
		w.newlineEncountered = true
		return false, nil
	}
	w.output.Reset()
	for _, token := range tokenize(text) {
		tw, err := w.arranger.WidthOf(token, w.opts.Kerning)
		if err != nil {
			return false, err
		}
		if w.accumulated+tw <= w.opts.Width+widthEpsilon {
			w.accumulated += tw
			w.output.WriteString(token)
			w.placed = true
			continue
		}
		if w.accumulated == 0 && w.moreThanOneWord {
			w.moreThanOneWord = false
		}
		if err := w.endOfLineReached(token); err != nil {
			return false, err
		}
		return false, w.fragmentFinished(text)
	}
	return true, w.fragmentFinished(text)
}

func (w *LineWrap) endOfLineReached(token string) error {
	w.updateLineStatus()
	if !w.opts.DisableWrapByChar && !w.moreThanOneWord {
		if err := w.wrapByChar(token); err != nil {
			return err
		}
	}
	w.lineFull = true
	return nil
}

// wrapByChar 在 token 内找出能放下的最长字符前缀。单个字符不计字距调整。
func (w *LineWrap) wrapByChar(token string) error {
	for _, r := range token {
		cw, err := w.arranger.WidthOf(string(r), false)
		if err != nil {
			return err
		}
		if w.accumulated+cw > w.opts.Width+widthEpsilon {
			return nil
		}
		w.accumulated += cw
		w.output.WriteRune(r)
		w.placed = true
	}
	return nil
}

func (w *LineWrap) fragmentFinished(text string) error {
	fitted := w.output.String()
	remainder := text[len(fitted):]
	if w.lineFinished() && w.lineEmpty() && fitted == "" && !isBlank(text) {
		return ErrCannotFit
	}
	if err := w.arranger.UpdateLastString(fitted, remainder); err != nil {
		return err
	}
	w.updateLineStatus()
	return nil
}

func (w *LineWrap) updateLineStatus() {
	if strings.IndexFunc(w.output.String(), isBreakingSpace) >= 0 {
		w.moreThanOneWord = true
	}
}

// isBreakingSpace 报告 r 是否是可断行的空白。不换行空格（U+00A0、U+2007、U+202F）
// 与字符连在一起，不参与分词，也不会作为行尾空白被去掉。
func isBreakingSpace(r rune) bool {
	switch r {
	case '\u00A0', '\u2007', '\u202F':
		return false
	}
	return unicode.IsSpace(r)
}

// tokenize 把文本切成交替的空白/非空白最长片段。
func tokenize(text string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := isBreakingSpace(r)
		if i > start && space != inSpace {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}
