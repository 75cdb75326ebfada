package logging

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/ziflex/lecho/v3"
)

// Logger builds the shared lecho logger used by the service, the echo
// request middleware and the CLIs. Output goes to stdout unless a file
// path is configured; a startup timestamp is woven into the file name so
// restarts never clobber an earlier log.
func Logger(logFilePath string) *lecho.Logger {
	logger := lecho.New(
		os.Stdout,
		lecho.WithLevel(log.DEBUG),
		lecho.WithTimestamp(),
	)
	if logFilePath == "" {
		return logger
	}
	file, err := openLogFile(logFilePath)
	if err != nil {
		logger.Errorf("Failed to open log file %s: %v", logFilePath, err)
		return logger
	}
	logger.SetOutput(file)
	return logger
}

func openLogFile(path string) (*os.File, error) {
	stamp := time.Now().Format("2006-01-02_15-04-05")
	if ext := filepath.Ext(path); ext != "" {
		path = strings.TrimSuffix(path, ext) + "-" + stamp + ext
	} else {
		path = path + "-" + stamp
	}
	return os.Create(path)
}
