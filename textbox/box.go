package textbox

import (
	"errors"
	"math"
	"strings"

	"github.com/ByLCY/folio/markup"
)

const (
	defaultFontSize = 12.0
	heightEpsilon   = 0.0001
)

// Line 记录一行排版结果，供调试输出与测试使用。
type Line struct {
	Text        string
	Width       float64
	WordSpacing float64
	Baseline    float64
	Fragments   []*Fragment
}

// Box 在一个矩形内排版 Run：断行、对齐、溢出处理、回退字体、垂直对齐与旋转。
type Box struct {
	doc      Document
	original []markup.Run

	at                Point
	width             float64
	height            float64
	font              string
	fontSize          float64
	minFontSize       float64
	leading           float64
	kerning           bool
	characterSpacing  float64
	direction         Direction
	align             Align
	valign            VAlign
	overflow          Overflow
	rotate            float64
	rotateAround      Pivot
	fallbackFonts     []string
	color             markup.Color
	singleLine        bool
	disableWrapByChar bool
	drawText          func(Canvas, TextDraw) error

	valignProcessed bool
	inked           bool

	arranger   *Arranger
	lineWrap   *LineWrap
	baselineY  float64
	ascender   float64
	descender  float64
	lineHeight float64
	lastDesc   float64

	printed           []string
	lines             []Line
	text              string
	nothingPrinted    bool
	everythingPrinted bool
}

// NewBox 按选项与文档默认值创建文本框。
func NewBox(doc Document, runs []markup.Run, opts Options) *Box {
	d := doc.Defaults()
	b := &Box{
		doc:               doc,
		original:          markup.Clone(runs),
		align:             opts.Align,
		valign:            opts.VAlign,
		overflow:          opts.Overflow,
		minFontSize:       opts.MinFontSize,
		rotate:            opts.Rotate,
		rotateAround:      opts.RotateAround,
		direction:         opts.Direction,
		fallbackFonts:     opts.FallbackFonts,
		singleLine:        opts.SingleLine,
		disableWrapByChar: opts.DisableWrapByChar,
		font:              opts.Font,
		fontSize:          opts.Size,
		leading:           d.Leading,
		kerning:           d.Kerning,
		characterSpacing:  d.CharacterSpacing,
		color:             d.Color,
		drawText:          opts.DrawText,
		nothingPrinted:    true,
	}

	bounds := d.Bounds
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	}
	b.at = Point{X: bounds.Left, Y: bounds.Top}
	if opts.At != nil {
		b.at = *opts.At
	}
	b.width = opts.Width
	if b.width <= 0 {
		b.width = bounds.Right - b.at.X
	}
	b.height = opts.Height
	if b.height <= 0 {
		b.height = b.at.Y - bounds.Bottom
	}

	if b.direction == "" {
		b.direction = d.Direction
	}
	if b.direction == "" {
		b.direction = LTR
	}
	if b.align == "" {
		b.align = AlignLeft
		if b.direction == RTL {
			b.align = AlignRight
		}
	}
	if b.valign == "" {
		b.valign = VAlignTop
	}
	if b.overflow == "" {
		b.overflow = OverflowTruncate
	}
	if b.overflow == OverflowExpand {
		b.height = b.at.Y - bounds.Bottom
		b.overflow = OverflowTruncate
	}
	if b.minFontSize <= 0 {
		b.minFontSize = defaultMinFontSize
	}
	if b.rotateAround == "" {
		b.rotateAround = PivotUpperLeft
	}
	if b.fallbackFonts == nil {
		b.fallbackFonts = d.FallbackFonts
	}
	if b.font == "" {
		b.font = d.Font
	}
	if b.fontSize <= 0 {
		b.fontSize = d.Size
	}
	if b.fontSize <= 0 {
		b.fontSize = defaultFontSize
	}
	if opts.Leading != nil {
		b.leading = *opts.Leading
	}
	if opts.Kerning != nil {
		b.kerning = *opts.Kerning
	}
	if opts.CharacterSpacing != nil {
		b.characterSpacing = *opts.CharacterSpacing
	}
	if opts.Color != nil {
		b.color = *opts.Color
	}
	return b
}

// Render 排版并（dryRun 为 false 时）绘制文本，返回放不下的剩余 Run。
// 同一参数下的试排与实排给出完全一致的断行。
func (b *Box) Render(dryRun bool) ([]markup.Run, error) {
	runs, err := b.normalizedRuns()
	if err != nil {
		return nil, err
	}
	if b.overflow == OverflowShrinkToFit {
		if err := b.shrinkToFit(runs); err != nil {
			return nil, err
		}
	}
	if err := b.processVerticalAlignment(runs); err != nil {
		return nil, err
	}

	b.inked = !dryRun
	defer func() { b.inked = false }()

	if b.rotate == 0 || !b.inked {
		return b.wrap(runs)
	}
	var leftover []markup.Run
	err = withRotation(b.doc, b.rotate, b.rotationOrigin(), func() error {
		var err error
		leftover, err = b.wrap(runs)
		return err
	})
	return leftover, err
}

func (b *Box) rotationOrigin() Point {
	switch b.rotateAround {
	case PivotCenter:
		return Point{X: b.at.X + b.width*0.5, Y: b.at.Y - b.height*0.5}
	case PivotUpperRight:
		return Point{X: b.at.X + b.width, Y: b.at.Y}
	case PivotLowerRight:
		return Point{X: b.at.X + b.width, Y: b.at.Y - b.height}
	case PivotLowerLeft:
		return Point{X: b.at.X, Y: b.at.Y - b.height}
	default:
		return b.at
	}
}

// shrinkToFit 以 0.5pt 为步长缩小字号，直到全部放下或到达最小字号。
func (b *Box) shrinkToFit(runs []markup.Run) error {
	for {
		if _, err := b.wrap(runs); err != nil {
			// 仍可继续缩小时，禁止按字符断行导致的放不下不算失败
			if !(b.disableWrapByChar && b.fontSize > b.minFontSize && errors.Is(err, ErrCannotFit)) {
				return err
			}
		}
		if b.everythingPrinted || b.fontSize <= b.minFontSize {
			return nil
		}
		b.fontSize = math.Max(b.fontSize-shrinkStep, b.minFontSize)
		Logger().Debug("textbox: 缩小字号", "size", b.fontSize, "min", b.minFontSize)
	}
}

// processVerticalAlignment 先试排一次量出文本高度，再移动原点并把高度收紧到该值。
// 只在第一次 Render 时生效。
func (b *Box) processVerticalAlignment(runs []markup.Run) error {
	if b.valign == VAlignTop || b.valignProcessed {
		return nil
	}
	b.valignProcessed = true
	if _, err := b.wrap(runs); err != nil {
		return err
	}
	h := b.Height()
	switch b.valign {
	case VAlignCenter:
		b.at.Y -= (b.height - h + b.descender) * 0.5
	case VAlignBottom:
		b.at.Y -= b.height - h + b.descender
	}
	Logger().Debug("textbox: 垂直对齐", "valign", string(b.valign), "measured", h, "height", b.height)
	b.height = h
	return nil
}

func (b *Box) wrap(runs []markup.Run) ([]markup.Run, error) {
	b.arranger = NewArranger(b.doc, ArrangerConfig{
		Font:             b.font,
		Size:             b.fontSize,
		CharacterSpacing: b.characterSpacing,
		Kerning:          b.kerning,
		Direction:        b.direction,
		Color:            b.color,
	})
	b.arranger.SetRuns(runs)
	b.lineWrap = &LineWrap{}
	b.printed = nil
	b.lines = nil
	b.text = ""
	b.nothingPrinted = true
	b.everythingPrinted = false
	b.baselineY, b.ascender, b.descender, b.lineHeight, b.lastDesc = 0, 0, 0, 0, 0

	opts := WrapOptions{Width: b.width, Kerning: b.kerning, DisableWrapByChar: b.disableWrapByChar}
	for !b.arranger.Finished() {
		if _, err := b.lineWrap.WrapLine(opts, b.arranger); err != nil {
			return nil, err
		}
		if frags, _ := b.arranger.Fragments(); len(frags) == 0 && b.arranger.Finished() {
			break
		}
		if !b.enoughHeightForThisLine() {
			break
		}
		b.moveBaselineDown()
		if err := b.printLine(); err != nil {
			return nil, err
		}
		if b.singleLine {
			break
		}
	}
	b.text = strings.Join(b.printed, "\n")
	b.everythingPrinted = b.arranger.Finished()
	return b.arranger.Unconsumed(), nil
}

func (b *Box) enoughHeightForThisLine() bool {
	b.lineHeight = b.arranger.MaxLineHeight()
	b.descender = b.arranger.MaxDescender()
	b.ascender = b.arranger.MaxAscender()
	diff := b.descender + b.lineHeight + b.leading
	if len(b.printed) == 0 {
		diff = b.ascender + b.descender
	}
	if math.Abs(b.baselineY)+diff > b.height+heightEpsilon {
		b.arranger.RepackUnretrieved()
		return false
	}
	return true
}

func (b *Box) moveBaselineDown() {
	if len(b.printed) == 0 {
		b.baselineY = -b.ascender
	} else {
		b.baselineY -= b.lineHeight + b.leading
	}
	b.lastDesc = b.descender
}

func (b *Box) wordSpacingForThisLine() float64 {
	sc := b.lineWrap.SpaceCount()
	if b.align == AlignJustify && sc > 0 && !b.lineWrap.ParagraphFinished() {
		return (b.width - b.lineWrap.Width()) / float64(sc)
	}
	return 0
}

func (b *Box) printLine() error {
	b.nothingPrinted = false
	ws := b.wordSpacingForThisLine()

	var printed strings.Builder
	var frags []*Fragment
	for {
		f, ok, err := b.arranger.RetrieveFragment()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		f.WordSpacing = ws
		if f.IsBreak() {
			break
		}
		printed.WriteString(f.Text())
		frags = append(frags, f)
	}

	lineWidth := b.lineWrap.Width() + ws*float64(b.lineWrap.SpaceCount())
	order := frags
	if b.direction == RTL {
		order = make([]*Fragment, len(frags))
		for i, f := range frags {
			order[len(frags)-1-i] = f
		}
	}
	var accumulated float64
	for _, f := range order {
		if err := b.drawFragment(f, accumulated, lineWidth, ws); err != nil {
			return err
		}
		accumulated += f.Width()
	}

	b.printed = append(b.printed, printed.String())
	b.lines = append(b.lines, Line{
		Text:        printed.String(),
		Width:       lineWidth,
		WordSpacing: ws,
		Baseline:    b.at.Y + b.baselineY,
		Fragments:   frags,
	})
	return nil
}

// drawFragment 按对齐方式定位片段，非试排时绘制文本、装饰线、注释与回调。
func (b *Box) drawFragment(f *Fragment, accumulated, lineWidth, ws float64) error {
	var x float64
	switch b.align {
	case AlignCenter:
		x = b.at.X + b.width*0.5 - lineWidth*0.5
	case AlignRight:
		x = b.at.X + b.width - lineWidth
	case AlignJustify:
		x = b.at.X
		if b.direction == RTL {
			x = b.at.X + b.width - lineWidth
		}
	default:
		x = b.at.X
	}
	x += accumulated
	y := b.at.Y + b.baselineY + f.YOffset()
	f.Left = x
	f.Baseline = y
	if !b.inked {
		return nil
	}

	for _, cb := range f.Run.Callbacks {
		if r, ok := cb.(BehindRenderer); ok {
			if err := r.RenderBehind(b.doc, f); err != nil {
				return err
			}
		}
	}
	if f.Text() != "" {
		draw := TextDraw{
			Text:             f.DrawnText(),
			At:               Point{X: x, Y: y},
			Face:             f.Face,
			Color:            f.Color,
			CharacterSpacing: f.CharacterSpacing,
			WordSpacing:      ws,
			Kerning:          b.kerning,
		}
		var err error
		if b.drawText != nil {
			err = b.drawText(b.doc, draw)
		} else {
			err = b.doc.DrawText(draw)
		}
		if err != nil {
			return err
		}
	}
	if err := b.drawOverlays(f); err != nil {
		return err
	}
	for _, cb := range f.Run.Callbacks {
		if r, ok := cb.(InFrontRenderer); ok {
			if err := r.RenderInFront(b.doc, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Box) drawOverlays(f *Fragment) error {
	if f.Run.Styles.Has(markup.Underline) {
		from, to := f.UnderlinePoints()
		if err := b.doc.StrokeLine(from, to, f.Color, decorationLineWidth); err != nil {
			return err
		}
	}
	if f.Run.Styles.Has(markup.Strikethrough) {
		from, to := f.StrikethroughPoints()
		if err := b.doc.StrokeLine(from, to, f.Color, decorationLineWidth); err != nil {
			return err
		}
	}
	var ann []Annotation
	if f.Run.Link != "" {
		ann = append(ann, Annotation{Kind: AnnotationLink, Target: f.Run.Link})
	}
	if f.Run.Anchor != "" {
		ann = append(ann, Annotation{Kind: AnnotationAnchor, Target: f.Run.Anchor})
	}
	if f.Run.Local != "" {
		ann = append(ann, Annotation{Kind: AnnotationLocal, Target: f.Run.Local})
	}
	for _, a := range ann {
		if err := b.doc.Annotate(f.BoundingBox(), a); err != nil {
			return err
		}
	}
	return nil
}

// Height 是已打印文本从框顶到最后一行下降线的高度。
func (b *Box) Height() float64 {
	if b.nothingPrinted {
		return 0
	}
	return math.Abs(b.baselineY - b.lastDesc)
}

// Text 返回已打印的各行，以换行连接。
func (b *Box) Text() string { return b.text }

func (b *Box) NothingPrinted() bool    { return b.nothingPrinted }
func (b *Box) EverythingPrinted() bool { return b.everythingPrinted }

// FontSize 是最终使用的字号（shrink_to_fit 可能改变它）。
func (b *Box) FontSize() float64 { return b.fontSize }

func (b *Box) Ascender() float64  { return b.ascender }
func (b *Box) Descender() float64 { return b.descender }
func (b *Box) Leading() float64   { return b.leading }

// LineGap 是最后一行的行间隙。
func (b *Box) LineGap() float64 { return b.lineHeight - (b.ascender + b.descender) }

func (b *Box) At() Point          { return b.at }
func (b *Box) Width() float64     { return b.width }
func (b *Box) BoxHeight() float64 { return b.height }

// Lines 返回最近一次排版的各行。
func (b *Box) Lines() []Line { return b.lines }
