// Package config 负责发现、合并与校验 cardfinder 的配置。
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultFileName 是未指定 --config 时在 cwd 下查找的可选配置文件。
	DefaultFileName = "cardfinder.yaml"
	// EnvPrefix 是环境变量前缀，例如 CARDFINDER_WATCH_RETRY_BASE -> watch.retry_base。
	EnvPrefix = "CARDFINDER_"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// CLIArgs 是 CLI 暴露的覆盖项，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --debug=false 必须能覆盖 CARDFINDER_DEBUG=true。
type CLIArgs struct {
	// ConfigPath 非空时文件必须存在。
	ConfigPath string

	Debug    bool
	DebugSet bool

	Addr    string
	AddrSet bool

	PageURL    string
	PageURLSet bool

	PageFile    string
	PageFileSet bool

	ServerURL    string
	ServerURLSet bool
}

type Config struct {
	// Debug 打开逐条决策的诊断日志。
	Debug bool `koanf:"debug"`

	Log       LogConfig       `koanf:"log"`
	Server    ServerConfig    `koanf:"server"`
	Page      PageConfig      `koanf:"page"`
	Watch     WatchConfig     `koanf:"watch"`
	Highlight HighlightConfig `koanf:"highlight"`
	Client    ClientConfig    `koanf:"client"`

	// Source 是实际读取的配置文件；没有读取文件时为空。
	Source string `koanf:"-"`
}

type LogConfig struct {
	Format string `koanf:"format"` // console | json
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimit 是 /api/v1 每个客户端每秒请求数；0 表示不限速。
	RateLimit float64 `koanf:"rate_limit"`
}

type PageConfig struct {
	// URL 是快照对应的看板地址（用于 /health 与 Legalboards 检查）。
	URL string `koanf:"url"`
	// File 非空时监听该快照文件，PUT /board 也会写入它。
	File       string `koanf:"file"`
	LineHeight int    `koanf:"line_height"`
}

type WatchConfig struct {
	Debounce  time.Duration `koanf:"debounce"`
	RetryBase time.Duration `koanf:"retry_base"`
	RetryMax  int           `koanf:"retry_max"`
}

type HighlightConfig struct {
	Duration time.Duration `koanf:"duration"`
}

type ClientConfig struct {
	URL      string        `koanf:"url"`
	Timeout  time.Duration `koanf:"timeout"`
	RetryMax int           `koanf:"retry_max"`
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s: config file %q not found", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s: %v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s: config file %q is invalid: %v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: config file %q is invalid", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Load 合并各层配置并校验。
//
// 覆盖优先级（固定）：CLI 显式参数 > CARDFINDER_* 环境变量 > 配置文件 > 内置默认。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/cardfinder.yaml（可选）
func Load(cwd string, cli CLIArgs) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("builtin defaults: %w", err)}
	}

	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, DefaultFileName)
	required := false
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		required = true
	}

	b, exists, err := readFile(cfgPath)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && required {
		return Config{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if exists {
		if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
			return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("environment: %w", err)}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: sourceOf(cfgPath, exists), Err: err}
	}
	if exists {
		cfg.Source = cfgPath
	}

	applyCLI(&cfg, cwdAbs, cli)

	if err := cfg.Validate(); err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cfg.Source, Err: err}
	}
	if cfg.Page.File != "" {
		cfg.Page.File = absCleanFrom(cwdAbs, cfg.Page.File)
	}
	return cfg, nil
}

// envKey 把 CARDFINDER_WATCH_RETRY_BASE 映射为 watch.retry_base：
// 第一个下划线分隔 section，其余下划线属于字段名。
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyCLI(cfg *Config, cwdAbs string, cli CLIArgs) {
	if cli.DebugSet {
		cfg.Debug = cli.Debug
	}
	if cli.AddrSet {
		cfg.Server.Addr = strings.TrimSpace(cli.Addr)
	}
	if cli.PageURLSet {
		cfg.Page.URL = strings.TrimSpace(cli.PageURL)
	}
	if cli.PageFileSet {
		cfg.Page.File = absCleanFrom(cwdAbs, cli.PageFile)
	}
	if cli.ServerURLSet {
		cfg.Client.URL = strings.TrimSpace(cli.ServerURL)
	}
}

// Validate 检查合并后的配置。
func (c Config) Validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0, got %s", c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0, got %v", c.Server.RateLimit)
	}
	if c.Page.LineHeight < 0 {
		return fmt.Errorf("page.line_height must be >= 0, got %d", c.Page.LineHeight)
	}
	if c.Page.URL != "" {
		if err := validateHTTPURL("page.url", c.Page.URL); err != nil {
			return err
		}
	}
	if c.Watch.Debounce <= 0 || c.Watch.RetryBase <= 0 {
		return fmt.Errorf("watch.debounce and watch.retry_base must be > 0")
	}
	if c.Watch.RetryMax < 1 {
		return fmt.Errorf("watch.retry_max must be >= 1, got %d", c.Watch.RetryMax)
	}
	if c.Highlight.Duration <= 0 {
		return fmt.Errorf("highlight.duration must be > 0, got %s", c.Highlight.Duration)
	}
	if err := validateHTTPURL("client.url", c.Client.URL); err != nil {
		return err
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be > 0, got %s", c.Client.Timeout)
	}
	if c.Client.RetryMax < 0 {
		return fmt.Errorf("client.retry_max must be >= 0, got %d", c.Client.RetryMax)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not a valid URL: %q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be http or https: %q", field, raw)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFile 读取配置文件；exists 表示文件是否存在（不存在不算错误）。
func readFile(path string) (b []byte, exists bool, err error) {
	b, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func sourceOf(path string, exists bool) string {
	if exists {
		return path
	}
	return ""
}
