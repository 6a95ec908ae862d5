package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFile is the file name written by WriteStartupErrorFile.
const StartupErrorFile = "startup-error.log"

// WriteStartupErrorFile records a startup failure in logDir, replacing any
// earlier record. Used when the logger could not be initialized.
func WriteStartupErrorFile(logDir string, err error) {
	_ = os.MkdirAll(logDir, 0755)

	f, ferr := os.Create(filepath.Join(logDir, StartupErrorFile))
	if ferr != nil {
		return
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] %s STARTUP ERROR\n%v\n", ts, Name, err)
}
