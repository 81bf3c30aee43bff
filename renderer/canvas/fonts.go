package canvasrenderer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font/sfnt"

	"github.com/ByLCY/folio/fonts"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/markup"
	"github.com/ByLCY/folio/textbox"
)

// loadedFont 是按 src 缓存的一份字体：canvas 用于测量与绘制，sfnt 用于查询字形覆盖。
type loadedFont struct {
	family *canvas.FontFamily
	glyphs *sfnt.Font
}

type faceKey struct {
	src  string
	size float64
}

// FontMetrics 实现 layout.Typesetter：预先加载每个字体的常规字形，变体在首次使用时加载。
func (r *Renderer) FontMetrics(fontSet map[string]layout.FontResource) (textbox.FontMetrics, error) {
	for name, res := range fontSet {
		if _, err := r.load(res.Src); err != nil {
			return nil, fmt.Errorf("字体 %s: %w", name, err)
		}
	}
	return &metrics{r: r, fonts: fontSet}, nil
}

func (r *Renderer) load(src string) (*loadedFont, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if lf, ok := r.loaded[src]; ok {
		return lf, nil
	}
	data, err := r.fontBytes(src)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily(src)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", src, err)
	}
	glyphs, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 的字形表失败: %w", src, err)
	}
	lf := &loadedFont{family: family, glyphs: glyphs}
	r.loaded[src] = lf
	return lf, nil
}

// fontBytes 依次查找注入的字体、内置 Go 字体与 baseDir 下的文件。
func (r *Renderer) fontBytes(src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("字体缺少 src")
	}
	if blob, ok := r.fontBlobs[src]; ok {
		return blob, nil
	}
	if fonts.IsBuiltin(src) {
		return fonts.Load(src)
	}
	path := src
	if !filepath.IsAbs(path) {
		if r.baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许使用相对字体路径：%s（请改用 builtin:）", src)
		}
		path = filepath.Join(r.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}

// face 取得 src 在给定字号（pt）下的字体面，颜色只影响绘制。
func (r *Renderer) face(src string, size float64, col markup.Color) (*canvas.FontFace, error) {
	lf, err := r.load(src)
	if err != nil {
		return nil, err
	}
	if col != (markup.Color{}) {
		return lf.family.Face(size, paint(col), canvas.FontRegular, canvas.FontNormal), nil
	}

	key := faceKey{src: src, size: size}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	f := lf.family.Face(size, canvas.Black, canvas.FontRegular, canvas.FontNormal)
	r.faces[key] = f
	return f, nil
}

// metrics 把 textbox 的度量请求换算到 canvas：canvas 的长度单位为 mm，字号为 pt。
type metrics struct {
	r     *Renderer
	fonts map[string]layout.FontResource
}

func (m *metrics) source(face textbox.Face) (string, error) {
	res, ok := m.fonts[face.Font]
	if !ok {
		return "", fmt.Errorf("字体 %s 未声明", face.Font)
	}
	src := res.Variant(face.Bold, face.Italic)
	if src != res.Src {
		if _, err := m.r.load(src); err != nil {
			textbox.Logger().Warn("canvas: 字体变体加载失败，改用常规字形", "font", face.Font, "src", src, "err", err)
			return res.Src, nil
		}
	}
	return src, nil
}

func (m *metrics) Width(face textbox.Face, text string, kerning bool) (float64, error) {
	src, err := m.source(face)
	if err != nil {
		return 0, err
	}
	f, err := m.r.face(src, face.Size, markup.Color{})
	if err != nil {
		return 0, err
	}
	if kerning || utf8.RuneCountInString(text) < 2 {
		return f.TextWidth(text) * layout.MmToPt, nil
	}
	var w float64
	for _, r := range text {
		w += f.TextWidth(string(r))
	}
	return w * layout.MmToPt, nil
}

func (m *metrics) VerticalMetrics(face textbox.Face) (textbox.Metrics, error) {
	src, err := m.source(face)
	if err != nil {
		return textbox.Metrics{}, err
	}
	f, err := m.r.face(src, face.Size, markup.Color{})
	if err != nil {
		return textbox.Metrics{}, err
	}
	fm := f.Metrics()
	ascent, descent := math.Abs(fm.Ascent), math.Abs(fm.Descent)
	return textbox.Metrics{
		Ascender:  ascent * layout.MmToPt,
		Descender: descent * layout.MmToPt,
		LineGap:   math.Max(fm.LineHeight-ascent-descent, 0) * layout.MmToPt,
	}, nil
}

func (m *metrics) HasGlyph(font string, r rune) bool {
	res, ok := m.fonts[font]
	if !ok {
		return false
	}
	lf, err := m.r.load(res.Src)
	if err != nil {
		return false
	}
	idx, err := lf.glyphs.GlyphIndex(nil, r)
	return err == nil && idx != 0
}

func (m *metrics) Normalize(face textbox.Face, text string) (string, error) {
	return textbox.NormalizeUTF8(text)
}

func (m *metrics) Family(font string) (string, bool) {
	res, ok := m.fonts[font]
	if !ok || res.Family == "" {
		return "", false
	}
	return res.Family, true
}
