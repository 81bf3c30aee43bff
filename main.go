package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ByLCY/folio/dsl"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/renderer"
	canvasrenderer "github.com/ByLCY/folio/renderer/canvas"
	"github.com/ByLCY/folio/textbox"
)

func main() {
	var (
		input, output, debugPath, dataJSON string
		debugBlocks, verbose               bool
	)
	flags := pflag.NewFlagSet("folio", pflag.ExitOnError)
	flags.StringVarP(&input, "in", "i", "examples/demo.folio", "DSL 文件路径")
	flags.StringVarP(&output, "out", "o", "output/demo.pdf", "PDF 输出路径")
	flags.StringVar(&debugPath, "debug", "", "布局调试 JSON 输出路径")
	flags.BoolVar(&debugBlocks, "debug-blocks", false, "在调试 JSON 中记录每个 text/box 的排版摘要")
	flags.StringVar(&dataJSON, "data", "", "绑定到 DSL 的 JSON 数据")
	flags.BoolVarP(&verbose, "verbose", "v", false, "输出排版过程的调试日志")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: folio [flags]\n\nFlags:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	textbox.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var inputData any
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &inputData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	r := canvasrenderer.NewRenderer(filepath.Dir(input))
	opts := layout.BuildOptions{Typesetter: r, Debug: layout.DebugOptions{Blocks: debugBlocks}}
	if err := run(input, output, debugPath, inputData, opts, r); err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", output)
}

// run 串联解析、布局与渲染。
func run(inputPath, outputPath, debugPath string, data any, opts layout.BuildOptions, r renderer.Renderer) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("无法打开 DSL 文件 %s: %w", inputPath, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("解析 DSL 失败: %w", err)
	}

	result, err := layout.Build(doc, data, opts)
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	if debugPath != "" {
		if err := writeDebug(result, debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
