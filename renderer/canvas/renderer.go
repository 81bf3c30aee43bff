// Package canvasrenderer 借助 github.com/tdewolff/canvas 测量字体并输出 PDF。
package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/markup"
	"github.com/ByLCY/folio/renderer"
	"github.com/ByLCY/folio/textbox"
)

// Renderer 既是排版所需的字体度量后端，也是 PDF 输出端。
type Renderer struct {
	baseDir   string
	fontBlobs map[string][]byte

	fontMu sync.Mutex
	loaded map[string]*loadedFont
	faces  map[faceKey]*canvas.FontFace
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	// Fonts 以 src 为键注入字体数据，优先于内置字体与文件。
	Fonts map[string]Resource
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected fonts and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:   opts.BaseDir,
		fontBlobs: map[string][]byte{},
		loaded:    map[string]*loadedFont{},
		faces:     map[faceKey]*canvas.FontFace{},
	}
	for src, res := range opts.Fonts {
		if src == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[src] = res.Bytes
			continue
		}
		if res.Path != "" {
			// 读取失败留到真正使用该字体时报告
			if data, err := os.ReadFile(res.Path); err == nil {
				r.fontBlobs[src] = data
			}
		}
	}
	return r
}

// Render renders the result into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	first := result.Pages[0]
	writer := pdf.New(&buf, toMm(first.Width), toMm(first.Height), nil)
	applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(toMm(page.Width), toMm(page.Height))
		}
		c := canvas.New(toMm(page.Width), toMm(page.Height))
		ctx := canvas.NewContext(c)
		// 布局结果处于 PDF 用户空间：原点在左下，y 轴向上
		ctx.SetCoordSystem(canvas.CartesianI)

		if err := r.drawPage(ctx, page, result.Resources); err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// drawPage 先画形状作为背景，再画文本。
func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, resources layout.ResourceSet) error {
	for _, rc := range page.Rects {
		drawRect(ctx, rc)
	}
	for _, c := range page.Circles {
		drawCircle(ctx, c)
	}
	for _, ln := range page.Lines {
		withTransform(ctx, ln.Transform, func() { drawLine(ctx, ln) })
	}
	for _, run := range page.Texts {
		var err error
		withTransform(ctx, run.Transform, func() { err = r.drawText(ctx, run, resources.Fonts) })
		if err != nil {
			return err
		}
	}
	if n := len(page.Links); n > 0 {
		textbox.Logger().Debug("canvas: 链接注释仅记录在布局结果中", "count", n)
	}
	return nil
}

// withTransform 依次套用记录下来的旋转，fn 执行完后恢复。
func withTransform(ctx *canvas.Context, transform []layout.Rotation, fn func()) {
	if len(transform) == 0 {
		fn()
		return
	}
	ctx.Push()
	defer ctx.Pop()
	for _, rot := range transform {
		ctx.RotateAbout(rot.Angle, toMm(rot.Origin.X), toMm(rot.Origin.Y))
	}
	fn()
}

func (r *Renderer) drawText(ctx *canvas.Context, run layout.TextRun, fontSet map[string]layout.FontResource) error {
	res, ok := fontSet[run.Font]
	if !ok {
		return fmt.Errorf("字体 %s 未声明", run.Font)
	}
	face, err := r.face(res.Variant(run.Bold, run.Italic), run.Size, run.Color)
	if err != nil {
		return err
	}

	x, y := toMm(run.X), toMm(run.Y)
	if run.Kerning && run.CharacterSpacing == 0 && run.WordSpacing == 0 {
		ctx.DrawText(x, y, canvas.NewTextLine(face, run.Text, canvas.Left))
		return nil
	}
	// 字间距与词间距需要逐字符推进
	cs, ws := toMm(run.CharacterSpacing), toMm(run.WordSpacing)
	for _, ch := range run.Text {
		s := string(ch)
		ctx.DrawText(x, y, canvas.NewTextLine(face, s, canvas.Left))
		x += face.TextWidth(s) + cs
		if ch == ' ' {
			x += ws
		}
	}
	return nil
}

func drawLine(ctx *canvas.Context, ln layout.Line) {
	ctx.SetFillColor(color.RGBA{})
	ctx.SetStrokeColor(paint(ln.Color))
	ctx.SetStrokeWidth(strokeWidth(ln.Width))
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(ln.X2-ln.X1), toMm(ln.Y2-ln.Y1))
	ctx.DrawPath(toMm(ln.X1), toMm(ln.Y1), p)
}

func drawRect(ctx *canvas.Context, rc layout.Rect) {
	setFill(ctx, rc.FillColor)
	ctx.SetStrokeColor(paint(rc.StrokeColor))
	ctx.SetStrokeWidth(strokeWidth(rc.StrokeWidth))
	ctx.DrawPath(toMm(rc.X), toMm(rc.Y), canvas.Rectangle(toMm(rc.Width), toMm(rc.Height)))
}

func drawCircle(ctx *canvas.Context, c layout.Circle) {
	setFill(ctx, c.FillColor)
	ctx.SetStrokeColor(paint(c.StrokeColor))
	ctx.SetStrokeWidth(strokeWidth(c.StrokeWidth))
	ctx.DrawPath(toMm(c.CX), toMm(c.CY), canvas.Circle(toMm(c.R)))
}

func setFill(ctx *canvas.Context, fill *markup.Color) {
	if fill == nil {
		ctx.SetFillColor(color.RGBA{})
		return
	}
	ctx.SetFillColor(paint(*fill))
}

// strokeWidth 把 pt 线宽换算为 mm，缺省为 0.5pt。
func strokeWidth(w float64) float64 {
	if w <= 0 {
		w = 0.5
	}
	return toMm(w)
}

func paint(c markup.Color) color.Color {
	red, green, blue := c.RGB()
	return canvas.RGBA(red, green, blue, 1.0)
}

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
