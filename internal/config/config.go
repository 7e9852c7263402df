package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName 配置文件名（与可执行文件同目录）
const FileName = "config.toml"

// 环境变量覆盖
const (
	EnvDataDir = "PROGRESION_DATA_DIR"
	EnvPort    = "PROGRESION_PORT"
)

// AppConfig 应用配置
type AppConfig struct {
	Server     ServerConfig      `toml:"server" json:"server"`
	Data       DataConfig        `toml:"data" json:"data"`
	Business   BusinessConfig    `toml:"business" json:"business"`
	Extract    ExtractConfig     `toml:"extract" json:"extract"`
	Registry   RegistryConfig    `toml:"registry" json:"registry"`
	Export     ExportConfig      `toml:"export" json:"export"`
	Limits     LimitsConfig      `toml:"limits" json:"limits"`
	Breakdowns []BreakdownConfig `toml:"breakdowns" json:"breakdowns,omitempty"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port" json:"port"`
	DevMode bool `toml:"dev_mode" json:"devMode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir" json:"dataDir"`
}

// BusinessConfig 业务配置
type BusinessConfig struct {
	ComparableFlag       string `toml:"comparable_flag" json:"comparableFlag"`
	ExcludedFamily       string `toml:"excluded_family" json:"excludedFamily"`
	UndefinedProgression string `toml:"undefined_progression" json:"undefinedProgression"` // blank / zero / ieee
	CurrentYear          int    `toml:"current_year" json:"currentYear"`                   // 0 表示取数据中的最大年份
	CompanyName          string `toml:"company_name" json:"companyName"`
}

// ExtractConfig POS 导出文件读取配置
type ExtractConfig struct {
	HeaderRow int    `toml:"header_row" json:"headerRow"` // 表头行（从 0 开始）
	Encoding  string `toml:"encoding" json:"encoding"`
}

// RegistryConfig 登记表读取配置
type RegistryConfig struct {
	HeaderRow int      `toml:"header_row" json:"headerRow"`
	Sheet     string   `toml:"sheet" json:"sheet"`
	IDColumns []string `toml:"id_columns" json:"idColumns"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	Format             string `toml:"format" json:"format"`
	DownloadTTLMinutes int    `toml:"download_ttl_minutes" json:"downloadTtlMinutes"`
}

// LimitsConfig 报表接口的每 IP 限流
type LimitsConfig struct {
	RatePerSecond float64 `toml:"rate_per_second" json:"ratePerSecond"`
	Burst         int     `toml:"burst" json:"burst"`
}

// BreakdownConfig 追加到某个报表类型的自定义工作表
type BreakdownConfig struct {
	Kind       string   `toml:"kind" json:"kind"`
	Name       string   `toml:"name" json:"name"`
	Dimensions []string `toml:"dimensions" json:"dimensions"`
	Categories []string `toml:"categories" json:"categories,omitempty"`
	Layout     string   `toml:"layout" json:"layout"`
	SortKeys   []string `toml:"sort_keys" json:"sortKeys,omitempty"`
	Where      string   `toml:"where" json:"where,omitempty"`
	When       string   `toml:"when" json:"when,omitempty"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Business: BusinessConfig{
			ComparableFlag:       "SC",
			ExcludedFamily:       "ENVASES",
			UndefinedProgression: "blank",
			CompanyName:          "Carrefour",
		},
		Extract: ExtractConfig{
			HeaderRow: 1,
			Encoding:  "auto",
		},
		Registry: RegistryConfig{
			HeaderRow: 17,
			IDColumns: []string{"N°", "GSX"},
		},
		Export: ExportConfig{
			Format:             "xlsx",
			DownloadTTLMinutes: 10,
		},
		Limits: LimitsConfig{
			RatePerSecond: 1,
			Burst:         5,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 默认配置文件路径
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, FileName)
}

// LoadFile 从指定路径加载配置；文件不存在时使用默认配置
func LoadFile(path string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, info, err
	}

	// 环境变量覆盖
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		config.Data.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, info, fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		config.Server.Port = port
		info.PortSpecified = true
	}

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadFile(DefaultPath())
}

// SaveConfig 保存配置到指定路径
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate 校验取值范围；报表相关的名称（维度、类别、表达式）在构建目录时校验
func (c *AppConfig) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Business.UndefinedProgression {
	case "", "blank", "zero", "ieee":
	default:
		return fmt.Errorf("business.undefined_progression: unknown policy %q", c.Business.UndefinedProgression)
	}
	switch c.Export.Format {
	case "", "xlsx", "zip", "csv":
	default:
		return fmt.Errorf("export.format: unknown format %q", c.Export.Format)
	}
	if c.Extract.HeaderRow < 0 {
		return fmt.Errorf("extract.header_row must be >= 0")
	}
	if c.Registry.HeaderRow < 0 {
		return fmt.Errorf("registry.header_row must be >= 0")
	}
	if c.Limits.RatePerSecond < 0 || c.Limits.Burst < 0 {
		return fmt.Errorf("limits must be >= 0")
	}
	for i, b := range c.Breakdowns {
		if strings.TrimSpace(b.Kind) == "" || strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("breakdowns[%d]: kind and name are required", i)
		}
	}
	return nil
}

// EnsureDataDir 确保数据目录存在；相对路径以可执行文件目录为基准
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}
