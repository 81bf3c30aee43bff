package textbox

import (
	"fmt"

	"github.com/ByLCY/folio/markup"
)

// FlowOptions 配置自由流排版。At/Width/Height 由 Pager 的当前区域决定。
type FlowOptions struct {
	Options
	// IndentParagraphs 为每段首行的缩进量（RTL 时缩进右侧）。
	IndentParagraphs float64
	// OmitFinalGap 为 true 时，每个文本框之后不再追加行间隙与行距。
	OmitFinalGap bool
}

// FormattedTextBox 在固定矩形内排版一次并返回剩余 Run，不触发分页。
func FormattedTextBox(doc Document, runs []markup.Run, opts Options) ([]markup.Run, error) {
	return NewBox(doc, runs, opts).Render(false)
}

// FormattedText 从当前区域的光标处开始排版，区域用尽而仍有剩余时请求新区域，
// 直到文本全部排完或新区域也无法推进。
func FormattedText(p Pager, runs []markup.Run, opts FlowOptions) error {
	runs = markup.Clone(runs)
	if opts.Color != nil {
		for i := range runs {
			if runs[i].Color == nil {
				c := *opts.Color
				runs[i].Color = &c
			}
		}
	}

	if opts.IndentParagraphs == 0 {
		remaining, _, err := fillRegion(p, runs, opts, 0)
		if err != nil {
			return err
		}
		return drawRemaining(p, remaining, opts)
	}

	for _, paragraph := range markup.ArrayParagraphs(runs) {
		remaining, box, err := fillRegion(p, paragraph, opts, opts.IndentParagraphs)
		if err != nil {
			return err
		}
		if box.NothingPrinted() && !box.EverythingPrinted() {
			if err := nextRegion(p); err != nil {
				return err
			}
			if remaining, _, err = fillRegion(p, paragraph, opts, opts.IndentParagraphs); err != nil {
				return err
			}
		}
		remaining, _, err = fillRegion(p, remaining, opts, 0)
		if err != nil {
			return err
		}
		if err := drawRemaining(p, remaining, opts); err != nil {
			return err
		}
	}
	return nil
}

func drawRemaining(p Pager, remaining []markup.Run, opts FlowOptions) error {
	for len(remaining) > 0 {
		if err := nextRegion(p); err != nil {
			return err
		}
		previous := markup.Text(remaining)
		var err error
		if remaining, _, err = fillRegion(p, remaining, opts, 0); err != nil {
			return err
		}
		if markup.Text(remaining) == previous {
			Logger().Warn("textbox: 新区域无法容纳剩余文本，停止排版", "remaining", previous)
			return nil
		}
	}
	return nil
}

func nextRegion(p Pager) error {
	if err := p.NextRegion(); err != nil {
		return fmt.Errorf("textbox: 请求新区域失败: %w", err)
	}
	Logger().Debug("textbox: 进入新区域", "region", p.Region())
	return nil
}

// fillRegion 用当前区域剩余空间排一个文本框，并把光标移过它。
// indent 非零时只排一行，作为段落首行。
func fillRegion(p Pager, runs []markup.Run, opts FlowOptions, indent float64) ([]markup.Run, *Box, error) {
	region := p.Region()
	boxOpts := opts.Options
	at := Point{X: region.Left, Y: region.Cursor}
	boxOpts.Width = region.Width
	boxOpts.Height = region.Cursor - region.Bottom
	if indent != 0 {
		boxOpts.SingleLine = true
		boxOpts.Width -= indent
		direction := opts.Direction
		if direction == "" {
			direction = p.Defaults().Direction
		}
		if direction != RTL {
			at.X += indent
		}
	}
	boxOpts.At = &at
	if boxOpts.Height <= 0 {
		boxOpts.Height = heightEpsilon
	}

	box := NewBox(p, runs, boxOpts)
	remaining, err := box.Render(false)
	if err != nil {
		return nil, nil, err
	}
	if !box.NothingPrinted() {
		dy := box.Height()
		if !opts.OmitFinalGap {
			dy += box.LineGap() + box.Leading()
		}
		p.MoveCursor(dy)
	}
	return remaining, box, nil
}
