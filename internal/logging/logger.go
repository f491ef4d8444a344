package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из строки конфигурации ("debug", "INFO", ...).
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
	}
}

// Options настраивает логгер компонента.
type Options struct {
	Dir             string   // Каталог для файлов логов; пусто - только консоль
	ConsoleLevel    LogLevel // Минимальный уровень для консоли
	FileLevel       LogLevel // Минимальный уровень для файла
	MaxSizeMB       int      // Ротация по размеру (lumberjack)
	MaxBackups      int
	ConsoleOverride io.Writer // Для тестов; по умолчанию os.Stdout
}

// DefaultOptions возвращает настройки по умолчанию: консоль INFO, файл DEBUG.
func DefaultOptions() Options {
	return Options{
		Dir:          "logs",
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
		MaxSizeMB:    50,
		MaxBackups:   5,
	}
}

// Logger представляет систему логирования одного компонента
type Logger struct {
	mu              sync.RWMutex
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            io.Closer
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// NewLogger создаёт логгер компонента. Файл пишется через lumberjack
// с ротацией, если в opts задан каталог.
func NewLogger(component string, opts Options) (*Logger, error) {
	console := opts.ConsoleOverride
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		component:       component,
		consoleLogger:   log.New(console, "", log.LstdFlags),
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    opts.FileLevel,
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Dir, err)
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, component+".log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		l.fileLogger = log.New(rotator, "", log.LstdFlags)
		l.file = rotator
	}

	return l, nil
}

// Component возвращает имя компонента логгера
func (l *Logger) Component() string {
	return l.component
}

// SetLevels меняет минимальные уровни консоли и файла
func (l *Logger) SetLevels(console, file LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minConsoleLevel = console
	l.minFileLevel = file
}

// Enabled сообщает, будет ли записано сообщение уровня level хоть куда-то.
func (l *Logger) Enabled(level LogLevel) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if level >= l.minConsoleLevel {
		return true
	}
	return l.fileLogger != nil && level >= l.minFileLevel
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Trace(format string, args ...interface{}) { l.logf(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.logf(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.logf(ERROR, format, args...) }

// logf внутренняя функция для логирования
func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.RLock()
	consoleMin, fileMin := l.minConsoleLevel, l.minFileLevel
	l.mu.RUnlock()

	if level < consoleMin && (l.fileLogger == nil || level < fileMin) {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	if l.fileLogger != nil && level >= fileMin {
		l.fileLogger.Println(message)
	}
	if level >= consoleMin {
		l.consoleLogger.Println(message)
	}
}

// Глобальный экземпляр логгера
var (
	defaultMu     sync.RWMutex
	defaultLogger = &Logger{
		component:       "default",
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		minConsoleLevel: INFO,
		minFileLevel:    ERROR,
	}
)

// InitDefaultLogger инициализирует глобальный логгер процесса
func InitDefaultLogger(component string, opts Options) error {
	l, err := NewLogger(component, opts)
	if err != nil {
		return err
	}

	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	_ = l.Close()
}

// Default возвращает глобальный логгер
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует сообщение уровня TRACE в глобальный логгер
func Trace(format string, args ...interface{}) { Default().logf(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG в глобальный логгер
func Debug(format string, args ...interface{}) { Default().logf(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO в глобальный логгер
func Info(format string, args ...interface{}) { Default().logf(INFO, format, args...) }

// Warn логирует сообщение уровня WARN в глобальный логгер
func Warn(format string, args ...interface{}) { Default().logf(WARN, format, args...) }

// Error логирует сообщение уровня ERROR в глобальный логгер
func Error(format string, args ...interface{}) { Default().logf(ERROR, format, args...) }
