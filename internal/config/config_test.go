package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if cfg.Debug {
		t.Fatalf("debug 默认应为 false")
	}
	if cfg.Server.Addr != "127.0.0.1:7878" || cfg.Log.Format != "console" {
		t.Fatalf("默认值不正确：%+v", cfg)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond || cfg.Watch.RetryBase != time.Second || cfg.Watch.RetryMax != 5 {
		t.Fatalf("watch 默认值不正确：%+v", cfg.Watch)
	}
	if cfg.Highlight.Duration != 5*time.Second {
		t.Fatalf("highlight 默认值不正确：%v", cfg.Highlight.Duration)
	}
	if cfg.Source != "" {
		t.Fatalf("没有配置文件时 Source 应为空：%q", cfg.Source)
	}
}

func TestLoad_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := Load(cwd, CLIArgs{ConfigPath: "missing.yaml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte("watch: [unclosed"))

	_, err := Load(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"log.format":     "log:\n  format: xml\n",
		"retry_max":      "watch:\n  retry_max: 0\n",
		"page.url":       "page:\n  url: ftp://board\n",
		"client.url":     "client:\n  url: not a url\n",
		"negative delay": "watch:\n  debounce: -1s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(body))

			_, err := Load(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
			}
		})
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(`
debug: true
page:
  url: https://firm.legalboards.io/board/7
  file: snapshots/board.html
watch:
  debounce: 250ms
`))

	cfg, err := Load(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !cfg.Debug || cfg.Watch.Debounce != 250*time.Millisecond {
		t.Fatalf("配置文件没有生效：%+v", cfg)
	}
	if cfg.Watch.RetryBase != time.Second {
		t.Fatalf("未覆盖的字段应保留默认值：%v", cfg.Watch.RetryBase)
	}
	if want := filepath.Join(cwd, "snapshots", "board.html"); cfg.Page.File != want {
		t.Fatalf("page.file 应相对 cwd 解析：期望 %q，实际 %q", want, cfg.Page.File)
	}
	if cfg.Source != filepath.Join(cwd, DefaultFileName) {
		t.Fatalf("Source 不正确：%q", cfg.Source)
	}
}

func TestLoad_PrecedenceFlagsEnvFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte("debug: true\nserver:\n  addr: 0.0.0.0:1\nwatch:\n  retry_base: 3s\n"))

	t.Setenv("CARDFINDER_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("CARDFINDER_WATCH_RETRY_BASE", "2s")
	t.Setenv("CARDFINDER_DEBUG", "true")

	cfg, err := Load(cwd, CLIArgs{
		Debug:    false,
		DebugSet: true, // --debug=false
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if cfg.Debug {
		t.Fatalf("--debug=false 必须覆盖环境变量与配置文件")
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("环境变量应覆盖配置文件：%q", cfg.Server.Addr)
	}
	if cfg.Watch.RetryBase != 2*time.Second {
		t.Fatalf("带下划线的字段名应正确映射：%v", cfg.Watch.RetryBase)
	}

	cfg, err = Load(cwd, CLIArgs{Addr: "127.0.0.1:1234", AddrSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:1234" || !cfg.Debug {
		t.Fatalf("CLI 只覆盖显式指定的字段：%+v", cfg)
	}
}

func TestLoad_ExplicitConfigPath(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "conf", "cf.yaml"), []byte("client:\n  url: https://127.0.0.1:9443\n"))
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte("client:\n  url: http://ignored:1\n"))

	cfg, err := Load(cwd, CLIArgs{ConfigPath: "conf/cf.yaml"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if cfg.Client.URL != "https://127.0.0.1:9443" {
		t.Fatalf("显式 --config 应替代默认文件：%q", cfg.Client.URL)
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"CARDFINDER_DEBUG":            "debug",
		"CARDFINDER_LOG_FORMAT":       "log.format",
		"CARDFINDER_PAGE_LINE_HEIGHT": "page.line_height",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Fatalf("envKey(%q) 期望 %q，实际 %q", in, want, got)
		}
	}
}
