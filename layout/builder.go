package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/folio/binding"
	"github.com/ByLCY/folio/dsl"
	"github.com/ByLCY/folio/markup"
	"github.com/ByLCY/folio/textbox"
)

// Build 根据 DSL AST 排版所有 page 段落，生成逐页的绘制结果。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	metrics, err := opts.Typesetter.FontMetrics(res.Fonts)
	if err != nil {
		return nil, fmt.Errorf("layout: 加载字体度量失败: %w", err)
	}

	b := &builder{
		res:       res,
		data:      data,
		debug:     opts.Debug,
		collector: newPageCollector(metrics),
	}
	b.collector.defaults = b.initialDefaults()

	sections := doc.Pages()
	if len(sections) == 0 {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}
	for _, section := range sections {
		if err := b.buildPage(section); err != nil {
			return nil, err
		}
	}

	return &Result{
		Pages:     b.collector.pages(),
		Resources: res,
		Meta:      collectMeta(doc),
		Overflow:  b.overflow,
	}, nil
}

// builder 保存一次 Build 的共享状态。
type builder struct {
	res       ResourceSet
	data      any
	debug     DebugOptions
	collector *pageCollector

	// pending 为上一个 box 放不下的文本，等待 continue 的 box 承接。
	pending     []markup.Run
	pendingLine int
	overflow    []Overflow
}

// flowContext 是页面内的一个栏：在分页协作者的基础上收窄可用宽度。
type flowContext struct {
	*pageCollector
	left  float64
	width float64
	// align 继承自父 flow，用于未显式声明 align 的子命令。
	align string
}

func (ctx *flowContext) Region() textbox.Region {
	r := ctx.pageCollector.Region()
	r.Left = ctx.left
	r.Width = ctx.width
	return r
}

func (b *builder) initialDefaults() textbox.Defaults {
	return textbox.Defaults{
		Font:      defaultFontName(b.res.Fonts),
		Size:      defaultFontSize,
		Color:     defaultTextColor,
		Kerning:   true,
		Direction: textbox.LTR,
	}
}

const defaultFontSize = 12.0

var defaultTextColor = markup.RGB(30, 30, 30)

func (b *builder) buildPage(section *dsl.PageSection) error {
	width, height, err := resolvePageSize(section)
	if err != nil {
		return err
	}
	b.collector.startPage(width, height, resolveMargin(section.Margin()))

	r := b.collector.contentRect()
	root := &flowContext{pageCollector: b.collector, left: r.Left, width: r.Width()}
	if err := b.processBody(section.Body, root); err != nil {
		return err
	}
	b.flushPending()
	return nil
}

// processBody 依次处理 page 或 flow 内的元素。
func (b *builder) processBody(body []*dsl.Element, ctx *flowContext) error {
	for _, el := range body {
		var err error
		switch {
		case el.Defaults != nil:
			err = b.handleDefaults(el.Defaults)
		case el.Flow != nil:
			err = b.handleFlow(el.Flow, ctx)
		case el.Text != nil:
			err = b.handleText(el.Text, ctx)
		case el.Box != nil:
			err = b.handleBox(el.Box, ctx)
		case el.PageBreak != nil:
			if err = ctx.NextRegion(); err != nil {
				err = fmt.Errorf("第 %d 行 pagebreak: %w", el.Line(), err)
			}
		case el.Shape != nil:
			b.handleShape(el.Shape)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) handleDefaults(block *dsl.DefaultsBlock) error {
	d := &b.collector.defaults
	for _, prop := range block.Props {
		val := prop.Value.Text()
		switch strings.ToLower(prop.Key) {
		case "font":
			if _, ok := b.res.Fonts[val]; !ok {
				return fmt.Errorf("第 %d 行 defaults 引用了未定义的字体 %s", prop.Pos.Line, val)
			}
			d.Font = val
		case "size":
			if size := parsePoints(val); size > 0 {
				d.Size = size
			}
		case "color":
			if c, ok := resolveColor(val, b.res); ok {
				d.Color = c
			}
		case "leading":
			d.Leading = parsePoints(val)
		case "line-height":
			if spec, ok := ParseLineHeight(val); ok {
				d.Leading = spec.Leading(d.Size)
			}
		case "kerning":
			d.Kerning = parseBool(val, d.Kerning)
		case "character-spacing":
			d.CharacterSpacing = parsePoints(val)
		case "fallback":
			d.FallbackFonts = prop.Value.Strings()
		case "direction":
			d.Direction = parseDirection(val)
		}
	}
	return nil
}

func (b *builder) handleFlow(flow *dsl.FlowBlock, parent *flowContext) error {
	attrs := mergeStyleAttributes(flow.Attrs.StyleName(), flow.Attrs.Map(), b.res.Styles)

	width := parent.width
	if v := attrs["width"]; v != "" {
		if w := parseDimension(v, parent.width); w > 0 && w <= parent.width {
			width = w
		}
	}
	align := normalizeAlign(attrs["align"])
	child := &flowContext{
		pageCollector: parent.pageCollector,
		left:          parent.left + alignOffset(parent.width, width, align),
		width:         width,
		align:         parent.align,
	}
	if align != "" {
		child.align = align
	}
	return b.processBody(flow.Body, child)
}

func (b *builder) handleText(text *dsl.TextBlock, ctx *flowContext) error {
	line := text.Pos.Line
	attrs := mergeStyleAttributes(text.Attrs.StyleName(), text.Attrs.Map(), b.res.Styles)
	runs, err := b.bodyRuns(text.Body, line, "text")
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("第 %d 行 text 语句缺少文本内容", line)
	}
	opts, err := b.textOptions(attrs, ctx)
	if err != nil {
		return fmt.Errorf("第 %d 行 text: %w", line, err)
	}

	flow := textbox.FlowOptions{
		Options:          opts,
		IndentParagraphs: parsePoints(attrs["indent"]),
		OmitFinalGap:     !parseBool(attrs["final-gap"], true),
	}
	startPage, startCursor := ctx.current, ctx.cursor
	if err := textbox.FormattedText(ctx, runs, flow); err != nil {
		return fmt.Errorf("第 %d 行 text 排版失败: %w", line, err)
	}
	if gap := parsePoints(attrs["space-after"]); gap != 0 {
		ctx.MoveCursor(gap)
	}

	if b.debug.Blocks {
		top := startCursor
		if ctx.current != startPage {
			top = ctx.contentTop()
		}
		r := ctx.Region()
		b.logBlock(BlockLog{
			Kind:     "text",
			Line:     line,
			Frame:    textbox.Rect{Left: r.Left, Bottom: ctx.cursor, Right: r.Left + r.Width, Top: top},
			Printed:  markup.Text(runs),
			FontSize: opts.Size,
		})
	}
	return nil
}

func (b *builder) handleBox(box *dsl.BoxBlock, ctx *flowContext) error {
	line := box.Pos.Line
	attrs := mergeStyleAttributes(box.Attrs.StyleName(), box.Attrs.Map(), b.res.Styles)
	runs, err := b.bodyRuns(box.Body, line, "box")
	if err != nil {
		return err
	}
	if parseBool(attrs["continue"], false) {
		runs = append(b.pending, runs...)
		b.pending = nil
	} else {
		b.flushPending()
	}
	if len(runs) == 0 {
		if box.Body == nil && !parseBool(attrs["continue"], false) {
			return fmt.Errorf("第 %d 行 box 语句缺少文本内容", line)
		}
		return nil
	}

	opts, err := b.textOptions(attrs, ctx)
	if err != nil {
		return fmt.Errorf("第 %d 行 box: %w", line, err)
	}
	x := parseDimension(attrs["x"], ctx.width)
	y := parseDimension(attrs["y"], ctx.contentTop()-ctx.contentBottom())
	opts.At = &textbox.Point{X: ctx.left + x, Y: ctx.contentTop() - y}
	opts.Width = parseDimension(attrs["width"], ctx.width)
	if opts.Width <= 0 {
		opts.Width = ctx.width - x
	}
	opts.Height = parseDimension(attrs["height"], ctx.contentTop()-ctx.contentBottom())
	opts.VAlign = parseVAlign(attrs["valign"])
	opts.Overflow = parseOverflow(attrs["overflow"])
	opts.MinFontSize = parsePoints(attrs["min-size"])
	opts.SingleLine = parseBool(attrs["single-line"], false)
	if v := attrs["rotate"]; v != "" {
		angle, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("第 %d 行 box: rotate 取值 %s 无法解析", line, v)
		}
		opts.Rotate = angle
	}
	opts.RotateAround = parsePivot(attrs["rotate-around"])

	tb := textbox.NewBox(ctx, runs, opts)
	leftover, err := tb.Render(false)
	if err != nil {
		return fmt.Errorf("第 %d 行 box 排版失败: %w", line, err)
	}
	b.pending, b.pendingLine = leftover, line

	if b.debug.Blocks {
		at := tb.At()
		b.logBlock(BlockLog{
			Kind:     "box",
			Line:     line,
			Frame:    textbox.Rect{Left: at.X, Bottom: at.Y - tb.BoxHeight(), Right: at.X + tb.Width(), Top: at.Y},
			Printed:  tb.Text(),
			Leftover: markup.Serialize(leftover),
			FontSize: tb.FontSize(),
		})
	}
	return nil
}

// flushPending 把无人承接的剩余文本记入 Overflow。
func (b *builder) flushPending() {
	if len(b.pending) == 0 {
		return
	}
	text := markup.Serialize(b.pending)
	b.overflow = append(b.overflow, Overflow{Page: b.collector.current + 1, Line: b.pendingLine, Text: text})
	textbox.Logger().Warn("layout: box 放不下的文本被丢弃", "line", b.pendingLine, "text", text)
	b.pending = nil
}

func (b *builder) logBlock(entry BlockLog) {
	acc := b.collector.curr()
	acc.blocks = append(acc.blocks, entry)
}

// bodyRuns 取出文本体，插值后解析为 Run 序列。
func (b *builder) bodyRuns(body *dsl.TextBody, line int, kind string) ([]markup.Run, error) {
	content := body.Text()
	if content == "" {
		return nil, nil
	}
	if b.data != nil {
		content = binding.Interpolate(content, b.data)
	}
	runs, err := markup.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("第 %d 行 %s 标记解析失败: %w", line, kind, err)
	}
	return runs, nil
}

// textOptions 把 text/box 共有的属性转换为文本框选项。
func (b *builder) textOptions(attrs map[string]string, ctx *flowContext) (textbox.Options, error) {
	var opts textbox.Options
	if name := attrs["font"]; name != "" {
		if _, ok := b.res.Fonts[name]; !ok {
			return opts, fmt.Errorf("字体 %s 未定义", name)
		}
		opts.Font = name
	}
	opts.Size = parsePoints(attrs["size"])
	if v := attrs["color"]; v != "" {
		c, ok := resolveColor(v, b.res)
		if !ok {
			return opts, fmt.Errorf("颜色 %s 无法解析", v)
		}
		opts.Color = &c
	}

	align := normalizeAlign(attrs["align"])
	if align == "" {
		align = ctx.align
	}
	opts.Align = textbox.Align(align)
	opts.Direction = parseDirection(attrs["direction"])

	if v := attrs["leading"]; v != "" {
		opts.Leading = textbox.Float(parsePoints(v))
	} else if v := attrs["line-height"]; v != "" {
		spec, ok := ParseLineHeight(v)
		if !ok {
			return opts, fmt.Errorf("行高 %s 无法解析", v)
		}
		size := opts.Size
		if size <= 0 {
			size = ctx.Defaults().Size
		}
		opts.Leading = textbox.Float(spec.Leading(size))
	}
	if v := attrs["kerning"]; v != "" {
		opts.Kerning = textbox.Bool(parseBool(v, true))
	}
	if v := attrs["character-spacing"]; v != "" {
		opts.CharacterSpacing = textbox.Float(parsePoints(v))
	}
	if v := attrs["fallback"]; v != "" {
		opts.FallbackFonts = splitList(v)
	}
	opts.DisableWrapByChar = !parseBool(attrs["char-wrap"], true)
	return opts, nil
}

func normalizeAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "start", "left":
		return string(textbox.AlignLeft)
	case "end", "right":
		return string(textbox.AlignRight)
	case "center", "middle":
		return string(textbox.AlignCenter)
	case "justify":
		return string(textbox.AlignJustify)
	default:
		return ""
	}
}

func parseDirection(v string) textbox.Direction {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "rtl":
		return textbox.RTL
	case "ltr":
		return textbox.LTR
	default:
		return ""
	}
}

func parseVAlign(v string) textbox.VAlign {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle":
		return textbox.VAlignCenter
	case "bottom":
		return textbox.VAlignBottom
	case "top":
		return textbox.VAlignTop
	default:
		return ""
	}
}

func parsePivot(v string) textbox.Pivot {
	p := textbox.Pivot(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), "-", "_"))
	switch p {
	case textbox.PivotUpperLeft, textbox.PivotUpperRight, textbox.PivotLowerRight, textbox.PivotLowerLeft, textbox.PivotCenter:
		return p
	default:
		return ""
	}
}

func parseOverflow(v string) textbox.Overflow {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "expand":
		return textbox.OverflowExpand
	case "shrink-to-fit", "shrink_to_fit", "shrink":
		return textbox.OverflowShrinkToFit
	case "truncate":
		return textbox.OverflowTruncate
	default:
		return ""
	}
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	default:
		return fallback
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolvePageSize(page *dsl.PageSection) (float64, float64, error) {
	base, ok := pagePresets[strings.ToUpper(page.Size)]
	if !ok {
		return 0, 0, fmt.Errorf("第 %d 行暂不支持的纸张尺寸：%s", page.Pos.Line, page.Size)
	}

	width := Length{Value: base[0], Unit: UnitMM}.ToPT()
	height := Length{Value: base[1], Unit: UnitMM}.ToPT()
	if page.Landscape() {
		width, height = height, width
	}
	return width, height, nil
}

// pagePresets 以毫米记录常用纸张尺寸。
var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

// resolveMargin 解析 page 头部 margin 之后的 1~4 个长度，语义与 CSS 相同，
// 但 3 个值时左边距为 0。多于 4 个的值被忽略，默认四边 20mm。
func resolveMargin(values []string) Margin {
	d := Length{Value: 20, Unit: UnitMM}.ToPT()
	var vals []float64
	for _, v := range values {
		if len(vals) == 4 {
			break
		}
		if _, ok := ParseLength(v); !ok {
			break
		}
		vals = append(vals, parseLength(v))
	}
	switch len(vals) {
	case 1:
		v := vals[0]
		return Margin{Top: v, Right: v, Bottom: v, Left: v}
	case 2:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
	case 3:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: 0}
	case 4:
		return Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
	default:
		return Margin{Top: d, Right: d, Bottom: d, Left: d}
	}
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]Style) map[string]string {
	out := make(map[string]string)
	if s, ok := styles[style]; ok {
		for k, v := range s.Props {
			out[k] = v
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

// parseLength 把长度换算为 pt，未写单位时按毫米处理。
func parseLength(value string) float64 {
	l, ok := ParseLength(value)
	if !ok {
		return 0
	}
	if l.Unit == UnitNone {
		l.Unit = UnitMM
	}
	return l.ToPT()
}

// parsePoints 用于字号、行距等排印量，未写单位时按 pt 处理。
func parsePoints(value string) float64 {
	l, ok := ParseLength(value)
	if !ok {
		return 0
	}
	return l.ToPT()
}

// parseDimension 支持相对 reference 的百分比。
func parseDimension(value string, reference float64) float64 {
	if num, ok := strings.CutSuffix(value, "%"); ok {
		if f, err := strconv.ParseFloat(num, 64); err == nil {
			return reference * f / 100
		}
		return 0
	}
	return parseLength(value)
}

func alignOffset(container, width float64, align string) float64 {
	if container <= width {
		return 0
	}
	switch align {
	case string(textbox.AlignCenter):
		return (container - width) / 2
	case string(textbox.AlignRight):
		return container - width
	default:
		return 0
	}
}
