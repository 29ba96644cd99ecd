package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/John-Robertt/cardfinder/internal/client"
	"github.com/John-Robertt/cardfinder/internal/config"
)

func main() {
	c := &cli{
		stdout: os.Stdout,
		stderr: os.Stderr,
		tty:    isTTY(os.Stdout),
		getwd:  os.Getwd,
	}
	os.Exit(c.execute(os.Args[1:]))
}

// cli 持有一次命令执行的 I/O 与全局 flag；测试用 buffer 替换 stdout/stderr。
type cli struct {
	stdout io.Writer
	stderr io.Writer
	// tty 决定输出形态：终端给人看；否则 stdout 只输出一个 JSON 文档。
	tty   bool
	getwd func() (string, error)

	configPath string
	debug      bool
	serverURL  string

	addr     string
	pageURL  string
	pageFile string
}

func (c *cli) execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		c.emitError(err)
		return 1
	}
	return 0
}

// errorDoc 是非 TTY 模式下失败时 stdout 上唯一的 JSON 文档。
type errorDoc struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func (c *cli) emitError(err error) {
	fmt.Fprintln(c.stderr, err.Error())
	if c.tty {
		return
	}
	enc := json.NewEncoder(c.stdout)
	_ = enc.Encode(errorDoc{Error: err.Error(), ErrorCode: errorCode(err)})
}

func errorCode(err error) string {
	if code := config.Code(err); code != "" {
		return code
	}
	var apiErr *client.APIError
	switch {
	case client.IsUnreachable(err):
		return "unreachable"
	case errors.Is(err, client.ErrNotLegalboards):
		return "not_legalboards"
	case errors.Is(err, client.ErrNoResponse):
		return "no_response"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}
