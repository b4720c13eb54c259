// Package logx is the block tree's internal logger: a rotating file
// logger with leveled, component-tagged helpers, in the shape the
// teacher's own logx package uses.
package logx

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	output = &lumberjack.Logger{
		Filename: logFilename(),
		MaxSize:  64, // megabytes
		MaxAge:   14, // days
	}

	logger = log.New(output, "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

func logFilename() string {
	if f := os.Getenv("BLOCKTREE_LOGFILE"); f != "" {
		return f
	}
	return "./logs/blocktree.log"
}

func Info(component, msg string) {
	logger.Printf("INFO  [%s] %s", component, msg)
}

func Warn(component, msg string) {
	logger.Printf("WARN  [%s] %s", component, msg)
}

func Error(component, msg string, err error) {
	logger.Printf("ERROR [%s] %s: %v", component, msg, err)
}

func Infof(component, format string, args ...any) {
	Info(component, fmt.Sprintf(format, args...))
}

func Warnf(component, format string, args ...any) {
	Warn(component, fmt.Sprintf(format, args...))
}
