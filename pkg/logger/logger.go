package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

// Log 在 Init 之前也可用，默认输出到 stderr
var Log = logrus.New()

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init 按配置设置级别、格式和输出；output 为文件路径时以追加方式打开
func Init(level, format, output string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	formatter, err := newFormatter(format)
	if err != nil {
		return err
	}
	w, file, err := openOutput(output)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = file

	Log.SetLevel(lvl)
	Log.SetFormatter(formatter)
	Log.SetOutput(w)
	return nil
}

func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}, nil
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}, nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func openOutput(output string) (io.Writer, *os.File, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return file, file, nil
}

// Close 关闭 Init 打开的日志文件，输出回到 stderr
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	Log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// SetOutput 替换日志输出，测试中用于静默日志
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return Log.WithError(err)
}

func Info(args ...interface{}) {
	Log.Info(args...)
}

func Error(args ...interface{}) {
	Log.Error(args...)
}

func Warn(args ...interface{}) {
	Log.Warn(args...)
}

func Debug(args ...interface{}) {
	Log.Debug(args...)
}

func Fatal(args ...interface{}) {
	Log.Fatal(args...)
}
