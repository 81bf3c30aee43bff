package textbox

import (
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/folio/markup"
)

// scriptSizeRatio 是上标/下标相对正文的字号比例。
const scriptSizeRatio = 0.583

// ArrangerConfig 是 Arranger 在未被 Run 覆盖时使用的格式。
type ArrangerConfig struct {
	Font             string
	Size             float64
	CharacterSpacing float64
	Kerning          bool
	Direction        Direction
	Color            markup.Color
}

// measureContext 是当前生效的测量格式。
type measureContext struct {
	face             Face
	characterSpacing float64
}

// Arranger 管理一行的已消费/未消费 Run 队列，并把已消费的 Run 定稿为 Fragment。
// 每行经历两个阶段：累积（可调用修改方法）与定稿（可调用查询方法）。
type Arranger struct {
	metrics FontMetrics
	cfg     ArrangerConfig

	pending   runQueue
	consumed  []markup.Run
	fragments []*Fragment
	finalized bool

	current   markup.Run
	active    measureContext
	maxAsc    float64
	maxDesc   float64
	maxHeight float64
}

func NewArranger(metrics FontMetrics, cfg ArrangerConfig) *Arranger {
	a := &Arranger{metrics: metrics, cfg: cfg}
	a.active = measureContext{face: Face{Font: cfg.Font, Size: cfg.Size}, characterSpacing: cfg.CharacterSpacing}
	a.InitializeLine()
	return a
}

// SetRuns 装载待排版的 Run，并把每个 Run 按硬换行拆开。
func (a *Arranger) SetRuns(runs []markup.Run) {
	a.InitializeLine()
	var pieces []markup.Run
	for _, r := range runs {
		for _, piece := range markup.SplitBreaks(r.Text) {
			pieces = append(pieces, r.WithText(piece))
		}
	}
	a.pending = newRunQueue(pieces)
}

// InitializeLine 开始新的一行，回到累积阶段。
func (a *Arranger) InitializeLine() {
	a.finalized = false
	a.consumed = nil
	a.fragments = nil
	a.current = markup.Run{}
	a.maxAsc, a.maxDesc, a.maxHeight = 0, 0, 0
}

// Finished 表示没有待消费的 Run。
func (a *Arranger) Finished() bool { return a.pending.Len() == 0 }

// Unconsumed 返回剩余 Run 的副本。
func (a *Arranger) Unconsumed() []markup.Run { return markup.Clone(a.pending.Items()) }

// NextString 取出下一个 Run，同时把它记入已消费队列并作为当前格式。
func (a *Arranger) NextString() (string, bool, error) {
	if a.finalized {
		return "", false, ErrFinalized
	}
	next, ok := a.pending.PopFront()
	if !ok {
		return "", false, nil
	}
	a.consumed = append(a.consumed, next)
	a.current = next.WithText("")
	return next.Text, true, nil
}

// PreviewNextString 查看下一个 Run 的文本但不消费。
func (a *Arranger) PreviewNextString() (string, bool) {
	next, ok := a.pending.Front()
	return next.Text, ok
}

// CurrentFormat 返回最近一次消费的 Run 的格式（Text 为空）。
func (a *Arranger) CurrentFormat() markup.Run { return a.current }

// UpdateLastString 是回溯原语：把最后一个已消费 Run 的文本替换为 fitted
// （为空则移除该条目），并把 remainder 以相同格式放回未消费队列的队首。
func (a *Arranger) UpdateLastString(fitted, remainder string) error {
	if a.finalized {
		return ErrFinalized
	}
	if n := len(a.consumed); n > 0 {
		if fitted == "" {
			a.consumed = a.consumed[:n-1]
		} else {
			a.consumed[n-1].Text = fitted
		}
	}
	if remainder != "" {
		a.pending.PushFront(a.current.WithText(remainder))
	}
	if fitted == "" {
		a.loadPreviousFormat()
	}
	return nil
}

func (a *Arranger) loadPreviousFormat() {
	if n := len(a.consumed); n > 0 {
		a.current = a.consumed[n-1].WithText("")
		return
	}
	a.current = markup.Run{}
}

// FinalizeLine 把已消费的 Run 转换为 Fragment 并汇总本行的纵向度量。
func (a *Arranger) FinalizeLine() error {
	if a.finalized {
		return ErrFinalized
	}
	a.finalized = true
	exclude := a.trailingWhitespace()
	a.fragments = make([]*Fragment, 0, len(a.consumed))
	for i, run := range a.consumed {
		f := newFragment(run, exclude[i])
		if err := a.measure(f); err != nil {
			return err
		}
		a.fragments = append(a.fragments, f)
		a.maxAsc = max(a.maxAsc, f.Ascender)
		a.maxDesc = max(a.maxDesc, f.Descender)
		a.maxHeight = max(a.maxHeight, f.LineHeight)
	}
	return nil
}

// trailingWhitespace 标记行尾需要排除宽度的条目：从行尾向前，
// 全空白的条目整体排除，遇到第一个含非空白字符的条目排除其尾部空白后停止。
// 行尾的硬换行会被跳过，其它位置的硬换行终止扫描。
func (a *Arranger) trailingWhitespace() []bool {
	exclude := make([]bool, len(a.consumed))
	last := len(a.consumed) - 1
	if last >= 0 && a.consumed[last].IsBreak() {
		last--
	}
	for i := last; i >= 0; i-- {
		text := a.consumed[i].Text
		if text == "\n" {
			break
		}
		if isBlank(text) && len(a.consumed) > 1 {
			exclude[i] = true
			continue
		}
		exclude[i] = true
		break
	}
	return exclude
}

func (a *Arranger) measure(f *Fragment) error {
	full, drawn, cs, err := a.resolve(f.Run)
	if err != nil {
		return err
	}
	f.Face = drawn
	f.CharacterSpacing = cs
	f.Direction = a.cfg.Direction
	f.Color = a.cfg.Color
	if f.Run.Color != nil {
		f.Color = *f.Run.Color
	}
	vm, err := a.metrics.VerticalMetrics(full)
	if err != nil {
		return err
	}
	f.Ascender = vm.Ascender
	f.Descender = vm.Descender
	f.LineHeight = vm.Height()
	if f.IsBreak() {
		return nil
	}
	w, err := a.widthOf(drawn, cs, f.Text(), a.cfg.Kerning)
	if err != nil {
		return err
	}
	f.width = w
	return nil
}

// resolve 计算 Run 的字体：full 为正文字号（用于纵向度量），
// drawn 为实际绘制字号（上标/下标缩小）。
func (a *Arranger) resolve(run markup.Run) (full, drawn Face, cs float64, err error) {
	full = Face{
		Font:   a.cfg.Font,
		Size:   a.cfg.Size,
		Bold:   run.Styles.Has(markup.Bold),
		Italic: run.Styles.Has(markup.Italic),
	}
	if run.Font != "" {
		full.Font = run.Font
	}
	if run.Size > 0 {
		full.Size = run.Size
	}
	if full.Bold || full.Italic {
		if _, ok := a.metrics.Family(full.Font); !ok {
			return Face{}, Face{}, 0, ErrBadFontFamily
		}
	}
	drawn = full
	if run.Styles.Has(markup.Subscript) || run.Styles.Has(markup.Superscript) {
		drawn.Size = full.Size * scriptSizeRatio
	}
	cs = a.cfg.CharacterSpacing
	if run.CharacterSpacing != nil {
		cs = *run.CharacterSpacing
	}
	return full, drawn, cs, nil
}

func (a *Arranger) widthOf(face Face, cs float64, text string, kerning bool) (float64, error) {
	if text == "" {
		return 0, nil
	}
	w, err := a.metrics.Width(face, text, kerning)
	if err != nil {
		return 0, err
	}
	return w + cs*float64(utf8.RuneCountInString(text)), nil
}

// ApplyFontSettings 在当前格式下执行 fn，返回时恢复之前的测量格式。
func (a *Arranger) ApplyFontSettings(fn func() error) error {
	_, drawn, cs, err := a.resolve(a.current)
	if err != nil {
		return err
	}
	saved := a.active
	a.active = measureContext{face: drawn, characterSpacing: cs}
	defer func() { a.active = saved }()
	return fn()
}

// WidthOf 用当前测量格式计算文本宽度（含字间距）。
func (a *Arranger) WidthOf(text string, kerning bool) (float64, error) {
	return a.widthOf(a.active.face, a.active.characterSpacing, text, kerning)
}

func (a *Arranger) Fragments() ([]*Fragment, error) {
	if !a.finalized {
		return nil, ErrNotFinalized
	}
	return a.fragments, nil
}

// RetrieveFragment 按顺序取出一个定稿片段。
func (a *Arranger) RetrieveFragment() (*Fragment, bool, error) {
	if !a.finalized {
		return nil, false, ErrNotFinalized
	}
	if len(a.fragments) == 0 {
		return nil, false, nil
	}
	f := a.fragments[0]
	a.fragments = a.fragments[1:]
	return f, true, nil
}

// LineWidth 是本行宽度，已排除行尾空白。
func (a *Arranger) LineWidth() (float64, error) {
	if !a.finalized {
		return 0, ErrNotFinalized
	}
	var w float64
	for _, f := range a.fragments {
		w += f.Width()
	}
	return w, nil
}

func (a *Arranger) SpaceCount() (int, error) {
	if !a.finalized {
		return 0, ErrNotFinalized
	}
	n := 0
	for _, f := range a.fragments {
		n += f.SpaceCount()
	}
	return n, nil
}

// Line 返回本行拼接后的文本。
func (a *Arranger) Line() (string, error) {
	if !a.finalized {
		return "", ErrNotFinalized
	}
	var b strings.Builder
	for _, f := range a.fragments {
		b.WriteString(f.Text())
	}
	return b.String(), nil
}

func (a *Arranger) MaxAscender() float64   { return a.maxAsc }
func (a *Arranger) MaxDescender() float64  { return a.maxDesc }
func (a *Arranger) MaxLineHeight() float64 { return a.maxHeight }

// RepackUnretrieved 撤销定稿：尚未取出的片段恢复行尾空白后放回未消费队列队首。
// 用于放不下的行，以及字号变化使已定稿的行失效时。
func (a *Arranger) RepackUnretrieved() {
	repacked := make([]markup.Run, 0, len(a.fragments))
	for _, f := range a.fragments {
		f.IncludeTrailingWhitespace()
		repacked = append(repacked, f.unconsumed())
	}
	a.fragments = nil
	a.pending.PushFrontAll(repacked)
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !isBreakingSpace(r) }) < 0
}
