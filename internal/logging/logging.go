// Package logging 构造 zap logger。
//
// 约束：
// - 日志只写 stderr：stdout 留给 CLI 的结果输出（非 TTY 时是单个 JSON 文档）
// - debug=false 时 Debug 级别整体关闭，逐卡/逐次决策的诊断日志不会产生开销
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Debug  bool
	Format string // console | json；空串等同 console
}

// New 构造写到 stderr 的 logger。
func New(opts Options) (*zap.Logger, error) {
	return NewWithWriter(opts, os.Stderr)
}

func NewWithWriter(opts Options, w io.Writer) (*zap.Logger, error) {
	enc, err := newEncoder(opts.Format)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)

	zopts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if opts.Debug {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(core, zopts...).With(zap.String("service", "cardfinder")), nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case "", "console":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	case "json":
		return zapcore.NewJSONEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
