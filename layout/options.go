package layout

import "github.com/ByLCY/folio/textbox"

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	Debug      DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Blocks bool // 在每页的 blocks 中记录 text/box 命令的排版摘要
}

// Typesetter 为文档声明的字体提供度量服务。
type Typesetter interface {
	FontMetrics(fonts map[string]FontResource) (textbox.FontMetrics, error)
}
