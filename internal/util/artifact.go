package util

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// spreadsheetExts 可以直接交给表格软件的产物
var spreadsheetExts = map[string]bool{".xlsx": true, ".csv": true}

// OpenArtifact 用系统程序打开生成的报表文件
// 依次尝试 openers 给出的命令，全部失败时返回第一个错误
func OpenArtifact(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", abs)
	}

	var firstErr error
	for _, argv := range openers(runtime.GOOS, abs) {
		if err := exec.Command(argv[0], argv[1:]...).Start(); err == nil {
			return nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no opener for %s on %s", abs, runtime.GOOS)
	}
	return firstErr
}

// openers 按平台列出打开命令；xlsx / csv 在 Linux 上最后退回 LibreOffice Calc，zip 交给文件管理器
func openers(goos, path string) [][]string {
	ext := strings.ToLower(filepath.Ext(path))
	switch goos {
	case "windows":
		// rundll32 不受路径中空格影响
		out := [][]string{{"rundll32", "url.dll,FileProtocolHandler", path}}
		if ext == ".zip" {
			out = append(out, []string{"explorer", path})
		} else {
			out = append(out, []string{"explorer", "/select,", path})
		}
		return out
	case "darwin":
		out := [][]string{{"open", path}}
		if !spreadsheetExts[ext] {
			out = append(out, []string{"open", "-R", path})
		}
		return out
	}
	out := [][]string{{"xdg-open", path}, {"gio", "open", path}}
	if spreadsheetExts[ext] {
		out = append(out, []string{"libreoffice", "--calc", path})
	} else {
		out = append(out, []string{"xdg-open", filepath.Dir(path)})
	}
	return out
}
