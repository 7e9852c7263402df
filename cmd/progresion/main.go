package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"github.com/juanifmera/progresion/internal/config"
	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/report"
	"github.com/juanifmera/progresion/internal/server"
	"github.com/juanifmera/progresion/internal/store"
	"github.com/juanifmera/progresion/internal/util"
)

var (
	configPath = flag.String("config", "", "配置文件路径（默认为可执行文件同目录的 config.toml）")
	port       = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode    = flag.Bool("dev", false, "开发模式")
	dataDir    = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")

	reportKind = flag.String("report", "", "离线生成报表：monthly/accumulated/comparison/consolidated；为空时启动 HTTP 服务")
	sales      = flag.String("ventas", "", "ventas + volumen CSV")
	tickets    = flag.String("debitos", "", "debitos CSV")
	registry   = flag.String("padron", "", "padrón XLSX")
	month      = flag.String("month", "", "mes comparable (p. ej. Agosto)")
	year       = flag.Int("year", 0, "año actual (0 = el mayor de los datos)")
	format     = flag.String("format", "", "xlsx/zip/csv (默认取配置)")
	scope      = flag.String("scope", "", "comparable/total (仅 consolidated)")
	output     = flag.String("o", "", "输出文件或目录（默认当前目录）")
	openResult = flag.Bool("open", false, "生成后用默认程序打开")
)

func main() {
	flag.Parse()

	cfg, info, err := loadConfig()
	if err != nil {
		tl.Log(tl.Error, palette.RedBold, "Failed to load config: %v", err)
		os.Exit(1)
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	if *reportKind != "" {
		os.Exit(runOffline(cfg))
	}
	os.Exit(serve(cfg))
}

func loadConfig() (*config.AppConfig, config.LoadConfigInfo, error) {
	if *configPath != "" {
		return config.LoadFile(*configPath)
	}
	return config.LoadConfigWithInfo()
}

func serve(cfg *config.AppConfig) int {
	fmt.Println("==========================================")
	fmt.Println("  Progresiones - reportes de superficie comparable")
	fmt.Println("==========================================")

	srv, err := server.NewServer(cfg)
	if err != nil {
		tl.Log(tl.Error, palette.RedBold, "Failed to start server: %v", err)
		return 1
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(addr)
	}()
	tl.Log(tl.Info, palette.Cyan, "API available at http://localhost:%d/api/status", cfg.Server.Port)

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			tl.Log(tl.Error, palette.RedBold, "Server stopped: %v", err)
			return 1
		}
	case <-quit:
	}

	tl.Log(tl.Notice, palette.Yellow, "Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		tl.Log(tl.Warning, palette.Yellow, "Shutdown: %v", err)
	}
	return 0
}

func runOffline(cfg *config.AppConfig) int {
	kind, err := report.ParseKind(*reportKind)
	if err != nil {
		tl.Log(tl.Error, palette.Red, "-report: %v", err)
		return 2
	}
	m, err := model.ParseMonth(*month)
	if err != nil {
		tl.Log(tl.Error, palette.Red, "-month: %v", err)
		return 2
	}
	req := report.Request{
		Kind:        kind,
		Month:       m,
		CurrentYear: *year,
		Format:      model.ArtifactFormat(*format),
		Scope:       report.Scope(*scope),
	}
	if req.Format == "" {
		req.Format = model.ArtifactFormat(cfg.Export.Format)
	}

	in, closeAll, err := openInputs()
	if err != nil {
		tl.Log(tl.Error, palette.Red, "%v", err)
		return 2
	}
	defer closeAll()

	// 运行记录写入数据目录；失败时不影响离线生成
	var recorder report.Recorder
	if dir, err := config.EnsureDataDir(cfg); err == nil {
		if st, err := store.New(filepath.Join(dir, store.DefaultFileName)); err == nil {
			defer st.Close()
			recorder = st
		} else {
			tl.Log(tl.Warning, palette.Yellow, "Run log disabled: %v", err)
		}
	}

	runner, err := server.NewRunner(cfg, recorder)
	if err != nil {
		tl.Log(tl.Error, palette.Red, "%v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := runner.Run(ctx, req, in, func(e importer.ProgressEvent) {
		if e.Type == "stage" {
			tl.Log(tl.Verbose, palette.CyanDim, "[%s] %s", e.Stage, e.Message)
		}
	})
	if !out.OK() {
		tl.Log(tl.Error, palette.RedBold, "Report failed at stage '%s': %s", out.Stage, out.Reason)
		return 1
	}

	path := outputPath(out.Artifact.FileName)
	if err := os.WriteFile(path, out.Artifact.Data, 0644); err != nil {
		tl.Log(tl.Error, palette.Red, "Failed to write %s: %v", path, err)
		return 1
	}
	tl.Log(tl.Notice, palette.Green, "Wrote %s (%d sheets, %d rows, %d unmatched fact rows)", path, out.Stats.SheetCount, out.Stats.RowCount, out.Stats.UnmatchedRows)

	if *openResult {
		if err := util.OpenArtifact(path); err != nil {
			tl.Log(tl.Warning, palette.Yellow, "Could not open %s: %v", path, err)
		}
	}
	return 0
}

func openInputs() (importer.Inputs, func(), error) {
	var (
		in    importer.Inputs
		files []*os.File
	)
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, item := range []struct {
		flag string
		path string
		dst  *importer.Source
	}{
		{"-ventas", *sales, &in.Sales},
		{"-debitos", *tickets, &in.Tickets},
		{"-padron", *registry, &in.Registry},
	} {
		if item.path == "" {
			closeAll()
			return in, func() {}, fmt.Errorf("%s is required", item.flag)
		}
		f, err := os.Open(item.path)
		if err != nil {
			closeAll()
			return in, func() {}, err
		}
		files = append(files, f)
		*item.dst = importer.Source{Name: filepath.Base(item.path), Reader: f}
	}
	return in, closeAll, nil
}

// outputPath -o 为目录（或为空）时使用产物文件名
func outputPath(fileName string) string {
	if *output == "" {
		return fileName
	}
	if st, err := os.Stat(*output); err == nil && st.IsDir() {
		return filepath.Join(*output, fileName)
	}
	return *output
}
