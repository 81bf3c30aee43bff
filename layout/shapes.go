package layout

import (
	"strings"

	"github.com/ByLCY/folio/dsl"
	"github.com/ByLCY/folio/markup"
)

// 形状命令的坐标以页面左上角为原点、向下为正，写入结果前换算为 PDF 用户空间。

const defaultStrokeWidth = 0.5

func (b *builder) handleShape(shape *dsl.Shape) {
	attrs := shape.Attrs.Map()
	acc := b.collector.curr()
	top := b.collector.height
	switch strings.ToLower(shape.Kind) {
	case "line":
		if ln, ok := parseLineShape(attrs, b.res, top); ok {
			acc.lines = append(acc.lines, ln)
		}
	case "rect":
		if rc, ok := parseRectShape(attrs, b.res, top); ok {
			acc.rects = append(acc.rects, rc)
		}
	case "circle":
		if c, ok := parseCircleShape(attrs, b.res, top); ok {
			acc.circles = append(acc.circles, c)
		}
	}
}

func shapeColor(v string, res ResourceSet) markup.Color {
	if c, ok := resolveColor(v, res); ok {
		return c
	}
	return markup.RGB(0, 0, 0)
}

func strokeWidth(v string) float64 {
	if w := parseLength(v); w > 0 {
		return w
	}
	return defaultStrokeWidth
}

// parseLineShape 支持完整写法（x1/y1/x2/y2）与简写：
//
//	line x <len> y <len> length <len> [dir h|v] [color <..>] [width <len>]
func parseLineShape(attrs map[string]string, res ResourceSet, pageHeight float64) (Line, bool) {
	ln := Line{Color: shapeColor(attrs["color"], res), Width: strokeWidth(attrs["width"])}
	if attrs["x1"] != "" || attrs["x2"] != "" {
		ln.X1, ln.X2 = parseLength(attrs["x1"]), parseLength(attrs["x2"])
		ln.Y1 = pageHeight - parseLength(attrs["y1"])
		ln.Y2 = pageHeight - parseLength(attrs["y2"])
		return ln, true
	}
	length := parseLength(attrs["length"])
	if length <= 0 {
		return Line{}, false
	}
	x, y := parseLength(attrs["x"]), pageHeight-parseLength(attrs["y"])
	ln.X1, ln.Y1 = x, y
	switch strings.ToLower(strings.TrimSpace(attrs["dir"])) {
	case "", "h", "hor", "horizontal":
		ln.X2, ln.Y2 = x+length, y
	case "v", "ver", "vertical":
		ln.X2, ln.Y2 = x, y-length
	default:
		return Line{}, false
	}
	return ln, true
}

func parseRectShape(attrs map[string]string, res ResourceSet, pageHeight float64) (Rect, bool) {
	rc := Rect{
		X:      parseLength(attrs["x"]),
		Width:  parseLength(attrs["width"]),
		Height: parseLength(attrs["height"]),
	}
	if rc.Width <= 0 || rc.Height <= 0 {
		return Rect{}, false
	}
	rc.Y = pageHeight - parseLength(attrs["y"]) - rc.Height
	rc.StrokeColor = shapeColor(attrs["stroke"], res)
	rc.StrokeWidth = strokeWidth(attrs["stroke-width"])
	if v := attrs["fill"]; v != "" {
		c := shapeColor(v, res)
		rc.FillColor = &c
	}
	return rc, true
}

func parseCircleShape(attrs map[string]string, res ResourceSet, pageHeight float64) (Circle, bool) {
	c := Circle{
		CX: parseLength(attrs["cx"]),
		CY: pageHeight - parseLength(attrs["cy"]),
		R:  parseLength(attrs["r"]),
	}
	if c.R <= 0 {
		return Circle{}, false
	}
	c.StrokeColor = shapeColor(attrs["stroke"], res)
	c.StrokeWidth = strokeWidth(attrs["stroke-width"])
	if v := attrs["fill"]; v != "" {
		col := shapeColor(v, res)
		c.FillColor = &col
	}
	return c, true
}
