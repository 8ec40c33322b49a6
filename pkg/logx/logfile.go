package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// LogFileName is the active log file inside the log directory.
const LogFileName = "knowledgebot.log"

//nolint:gochecknoglobals // Single process-wide log file
var (
	logFile   *os.File
	logFileMu sync.Mutex
)

// InitializeLogFile opens dir/knowledgebot.log for writing, rotating any previous file into
// knowledgebot.log.1 .. knowledgebot.log.<keep>. With tee, lines go to stderr as well.
func InitializeLogFile(dir string, keep int, tee bool) error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, LogFileName)
	if err := rotate(path, keep); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	logFile = f

	if tee {
		SetOutput(io.MultiWriter(os.Stderr, f))
	} else {
		SetOutput(f)
	}
	return nil
}

// CloseLogFile restores stderr output and closes the log file.
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	SetOutput(nil)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// rotate shifts path.N-1 to path.N down to path -> path.1, dropping anything past keep.
func rotate(path string, keep int) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if keep <= 0 {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove old log file: %w", err)
		}
		return nil
	}

	_ = os.Remove(fmt.Sprintf("%s.%d", path, keep))
	for i := keep - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", path, i)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, fmt.Sprintf("%s.%d", path, i+1)); err != nil {
				return fmt.Errorf("failed to rotate %s: %w", from, err)
			}
		}
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("failed to rotate %s: %w", path, err)
	}
	return nil
}
