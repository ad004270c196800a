// Package logging sets up the process logger and the command journal.
package logging

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// LogFilePath names a session log file inside logsDir. Path separators in
// name are replaced so the file stays inside logsDir.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, sessionStart.UTC().Format("20060102_150405")))
}

// JournalFilePath names the command journal for a session.
func JournalFilePath(logsDir, name string, sessionStart time.Time) string {
	return strings.TrimSuffix(LogFilePath(logsDir, name, sessionStart), ".log") + ".commands.jsonl"
}
