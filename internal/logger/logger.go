package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rivo/tview"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Types int

const (
	Info Types = iota
	Error
	Warn
	Fatal
)

type Message struct {
	Timestamp time.Time
	Tag       string
	Message   string
	LogTypes  Types
}

// manager owns the sinks shared by every tagged Logger.
type manager struct {
	view    io.Writer
	dev     bool
	logFile io.WriteCloser
	logChan chan Message
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

type Logger struct {
	tag string
}

var (
	logManager = &manager{}
	once       sync.Once
)

// InitLogger configures the shared sinks. In dev mode messages go to view,
// or to the standard logger when view is nil. With a logPath every message
// is also appended to a rotating file in that directory.
func InitLogger(dev bool, logPath string, view *tview.TextView) {
	once.Do(func() {
		var out io.Writer
		if view != nil {
			out = view
		}
		m, err := newManager(dev, logPath, out)
		if err != nil {
			log.Fatalf("Failed to create log directory: %s", err)
		}
		logManager = m
	})
}

func newManager(dev bool, logPath string, view io.Writer) (*manager, error) {
	m := &manager{dev: dev, view: view}
	if logPath == "" {
		return m, nil
	}
	if err := os.MkdirAll(logPath, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	m.logFile = &lumberjack.Logger{
		Filename:   filepath.Join(logPath, fmt.Sprintf("leanne_log_%s.log", timestamp)),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	m.logChan = make(chan Message, 100)
	m.wg.Add(1)
	go m.processLogs()
	return m, nil
}

// NewLogger returns a logger that prefixes messages with tag. It is safe to
// call before InitLogger; such loggers stay silent.
func NewLogger(tag string) *Logger {
	return &Logger{tag: tag}
}

func (m *manager) processLogs() {
	defer m.wg.Done()
	for msg := range m.logChan {
		timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")
		logMessage := fmt.Sprintf("%s [%s] %s: %s\n", timestamp, msg.Tag, msg.LogTypes.toString(), msg.Message)
		m.logFile.Write([]byte(logMessage))
	}
}

func (l *Logger) log(logTypes Types, v ...interface{}) {
	m := logManager
	message := fmt.Sprintln(v...)
	message = message[:len(message)-1]

	if m.dev {
		if m.view != nil {
			var format string
			switch logTypes {
			case Info:
				format = "[green]DEBUG (%s): %s[-]\n"
			case Error:
				format = "[red]DEBUG (%s): %s[-]\n"
			case Warn:
				format = "[yellow]DEBUG (%s): %s[-]\n"
			case Fatal:
				format = "[red]DEBUG (%s): %s[-]\n"
			}
			fmt.Fprintf(m.view, format, l.tag, tview.Escape(message))
		} else {
			log.Printf("[%s] %s: %s", l.tag, logTypes.toString(), message)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.logChan != nil && !m.closed {
		m.logChan <- Message{
			Timestamp: time.Now(),
			Tag:       l.tag,
			Message:   message,
			LogTypes:  logTypes,
		}
	}
}

func (l *Logger) Info(v ...interface{}) {
	l.log(Info, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.log(Error, v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.log(Warn, v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.log(Fatal, v...)
	Close()
	os.Exit(1)
}

// Close flushes pending messages and closes the log file.
func Close() {
	m := logManager
	m.mu.Lock()
	if m.closed || m.logChan == nil {
		m.closed = true
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.logChan)
	m.mu.Unlock()

	m.wg.Wait()
	m.logFile.Close()
}

func (t Types) toString() string {
	switch t {
	case Info:
		return "INFO"
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
