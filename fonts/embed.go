// Package fonts 提供随程序分发的 Go 字体族。
package fonts

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Prefix 标记内置字体，例如 "builtin:go-bold"。
const Prefix = "builtin:"

var builtin = map[string][]byte{
	"go-regular":     goregular.TTF,
	"go-bold":        gobold.TTF,
	"go-italic":      goitalic.TTF,
	"go-bold-italic": gobolditalic.TTF,
	"go-medium":      gomedium.TTF,
	"go-mono":        gomono.TTF,
}

// IsBuiltin 判断 src 是否引用内置字体。
func IsBuiltin(src string) bool { return strings.HasPrefix(strings.ToLower(src), Prefix) }

// Load 返回内置字体的 TTF 数据，name 可带或不带 "builtin:" 前缀。
func Load(name string) ([]byte, error) {
	key := strings.TrimPrefix(strings.ToLower(name), Prefix)
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("内置字体 %s 不存在", name)
	}
	return data, nil
}

// Names 按字母序列出全部内置字体。
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
