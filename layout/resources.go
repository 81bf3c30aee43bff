package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ByLCY/folio/dsl"
	"github.com/ByLCY/folio/markup"
)

// builtinBody 是未声明任何字体时使用的内置 Go 字体族。
var builtinBody = FontResource{
	Name:       "Body",
	Src:        "builtin:go-regular",
	Bold:       "builtin:go-bold",
	Italic:     "builtin:go-italic",
	BoldItalic: "builtin:go-bold-italic",
	Family:     "Go",
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]markup.Color{},
		Styles: map[string]Style{},
	}
	rawStyles := map[string]Style{}

	for _, section := range doc.Sections {
		if section.Resources == nil {
			continue
		}
		for _, decl := range section.Resources.Decls {
			switch {
			case decl.Font != nil:
				font, err := parseFontResource(decl.Font)
				if err != nil {
					return res, err
				}
				res.Fonts[font.Name] = font
			case decl.Color != nil:
				c, err := markup.ParseHex(decl.Color.Value)
				if err != nil {
					return res, fmt.Errorf("第 %d 行 color %s: %w", decl.Color.Pos.Line, decl.Color.Name, err)
				}
				res.Colors[decl.Color.Name] = c
			case decl.Style != nil:
				style := parseStyleResource(decl.Style)
				rawStyles[style.Name] = style
			}
		}
	}

	if len(res.Fonts) == 0 {
		res.Fonts[builtinBody.Name] = builtinBody
	}

	resolvedStyles, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = resolvedStyles
	return res, nil
}

// defaultFontName 优先使用 Body，否则取名称排序后的第一个字体。
func defaultFontName(fonts map[string]FontResource) string {
	if _, ok := fonts["Body"]; ok || len(fonts) == 0 {
		return "Body"
	}
	names := make([]string, 0, len(fonts))
	for name := range fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{Creator: "Folio"}
	for _, section := range doc.Sections {
		if section.Meta == nil {
			continue
		}
		for _, prop := range section.Meta.Props {
			switch strings.ToLower(prop.Key) {
			case "title":
				meta.Title = prop.Value.Text()
			case "author":
				meta.Author = prop.Value.Text()
			case "subject":
				meta.Subject = prop.Value.Text()
			case "creator":
				meta.Creator = prop.Value.Text()
			case "keywords":
				meta.Keywords = prop.Value.Strings()
			}
		}
	}
	return meta
}

// parseFontResource 解析 font 声明。family 默认为字体名，family: false 表示没有字体族。
func parseFontResource(decl *dsl.FontDecl) (FontResource, error) {
	font := FontResource{Name: decl.Name, Family: decl.Name}
	for _, prop := range decl.Props {
		val := prop.Value.Text()
		switch prop.Key {
		case "src":
			font.Src = val
		case "bold":
			font.Bold = val
		case "italic":
			font.Italic = val
		case "bold-italic":
			font.BoldItalic = val
		case "family":
			if strings.EqualFold(val, "false") || strings.EqualFold(val, "none") {
				font.Family = ""
			} else {
				font.Family = val
			}
		}
	}
	if font.Src == "" {
		return FontResource{}, fmt.Errorf("第 %d 行字体 %s 缺少 src", decl.Pos.Line, decl.Name)
	}
	return font, nil
}

func parseStyleResource(decl *dsl.StyleDecl) Style {
	style := Style{
		Name:    decl.Name,
		Extends: decl.Extends,
		Props:   map[string]string{},
	}
	for _, prop := range decl.Props {
		if val := prop.Value.Text(); val != "" {
			style.Props[prop.Key] = val
		}
	}
	return style
}

// resolveStyles 展开 extends 继承链，子样式覆盖父样式。
func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// resolveColor 依次查找命名颜色与十六进制写法。
func resolveColor(value string, res ResourceSet) (markup.Color, bool) {
	if c, ok := res.Colors[value]; ok {
		return c, true
	}
	c, err := markup.ParseHex(value)
	if err != nil {
		return markup.Color{}, false
	}
	return c, true
}
