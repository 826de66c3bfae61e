package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits a structured JSON log line with common HTTP fields.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"ts":"error","level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}

// Info logs an informational event.
func Info(msg string, fields map[string]any) { emit("info", msg, nil, fields) }

// Debug logs a low-importance event.
func Debug(msg string, fields map[string]any) { emit("debug", msg, nil, fields) }

// Error logs a failure; err may be nil.
func Error(msg string, err error, fields map[string]any) { emit("error", msg, err, fields) }

func emit(level, msg string, err error, fields map[string]any) {
	entry := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["msg"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}
	LogRequest(entry)
}
