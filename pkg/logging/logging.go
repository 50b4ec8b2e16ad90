package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// LogJSON writes one structured record through the standard logger.
func LogJSON(record map[string]any) {
	record["timestamp"] = time.Now().Format(time.RFC3339Nano)
	bytes, err := json.Marshal(record)
	if err != nil {
		log.Printf("failed to marshal log record: %v", err)
		return
	}
	log.Println(string(bytes))
}

// TeeToFile sends the standard logger to stdout and to path (appended).
// The returned closer restores nothing; callers defer it to flush the file.
func TeeToFile(path, prefix string) (io.Closer, error) {
	logFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	if prefix != "" {
		log.SetPrefix(prefix + ": ")
	}
	return logFile, nil
}
