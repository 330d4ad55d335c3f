package log

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

// Logger writes structured entries to the console and, optionally, a log file
// in JSON and/or text form.
type Logger struct {
	console *logrus.Logger
	sinks   []*logrus.Logger
	file    *os.File
}

// New opens logFilePath for appending. An empty path logs to the console only.
func New(logFilePath string, logJSON, logText bool) (*Logger, error) {
	l := &Logger{console: newConsole(os.Stdout)}

	if logFilePath == "" || (!logJSON && !logText) {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l.file = file

	if logJSON {
		l.sinks = append(l.sinks, newSink(file, &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		}))
	}
	if logText {
		l.sinks = append(l.sinks, newSink(file, &logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}))
	}
	return l, nil
}

func newConsole(w io.Writer) *logrus.Logger {
	c := logrus.New()
	c.SetOutput(w)
	c.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	c.SetLevel(logrus.InfoLevel)
	return c
}

func newSink(w io.Writer, f logrus.Formatter) *logrus.Logger {
	s := logrus.New()
	s.SetOutput(w)
	s.SetFormatter(f)
	s.SetLevel(logrus.DebugLevel)
	return s
}

// SetConsole redirects console output.
func (l *Logger) SetConsole(w io.Writer) {
	l.console = newConsole(w)
}

// SetDebug toggles debug entries on the console. File sinks always keep them.
func (l *Logger) SetDebug(on bool) {
	if l.console == nil {
		return
	}
	if on {
		l.console.SetLevel(logrus.DebugLevel)
	} else {
		l.console.SetLevel(logrus.InfoLevel)
	}
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Info(msg string) {
	l.log(logrus.InfoLevel, msg, nil)
}

func (l *Logger) Debug(msg string) {
	l.log(logrus.DebugLevel, msg, nil)
}

func (l *Logger) Error(msg string, err error) {
	fields := logrus.Fields{}
	if err != nil {
		fields[logrus.ErrorKey] = err.Error()
	}
	l.log(logrus.ErrorLevel, msg, fields)
}

// LogInspection records one processed file.
func (l *Logger) LogInspection(entry types.FileEntry, result types.ExtractionResult, duration time.Duration) {
	fields := logrus.Fields{
		"file":     entry.Name,
		"class":    string(entry.Class),
		"size":     entry.Size,
		"source":   string(result.Source),
		"fields":   result.Metadata.Len(),
		"duration": duration.String(),
	}

	if result.Metadata.IsEmpty() || result.Metadata.IsErrorOnly() {
		msg, _ := result.Metadata.Get(types.ErrorKey)
		if msg == "" {
			msg = "no metadata"
		}
		fields[logrus.ErrorKey] = msg
		l.log(logrus.ErrorLevel, "inspection failed: "+entry.Name, fields)
		return
	}
	l.log(logrus.InfoLevel, "inspected: "+entry.Name, fields)
}

func (l *Logger) log(level logrus.Level, msg string, fields logrus.Fields) {
	if l.console != nil {
		l.console.WithFields(fields).Log(level, msg)
	}
	for _, s := range l.sinks {
		s.WithFields(fields).Log(level, msg)
	}
}
