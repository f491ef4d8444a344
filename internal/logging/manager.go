package logging

import (
	"fmt"
	"sync"
)

// LoggerManager управляет логгерами разных компонентов (mesher, storage, api...)
type LoggerManager struct {
	mu      sync.RWMutex
	opts    Options
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = NewLoggerManager(Options{ConsoleLevel: INFO, FileLevel: ERROR})
	})
	return globalManager
}

// NewLoggerManager создаёт менеджер с общими настройками для новых логгеров
func NewLoggerManager(opts Options) *LoggerManager {
	return &LoggerManager{
		opts:    opts,
		loggers: make(map[string]*Logger),
	}
}

// Configure меняет настройки, применяемые к логгерам, созданным после вызова
func (lm *LoggerManager) Configure(opts Options) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.opts = opts
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger, nil
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Проверяем еще раз на случай race condition
	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component, lm.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или fallback в stdout при ошибке
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return &Logger{
			component:       component,
			consoleLogger:   Default().consoleLogger,
			minConsoleLevel: INFO,
			minFileLevel:    ERROR,
		}
	}
	return logger
}

// CloseAll закрывает все логгеры
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}

	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// SetLogLevel устанавливает уровень логирования для компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("logger for component %s not found", component)
	}

	logger.SetLevels(consoleLevel, fileLevel)
	return nil
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetMesherLogger() *Logger {
	return GetComponentLogger("mesher")
}

func GetStorageLogger() *Logger {
	return GetComponentLogger("storage")
}

func GetAPILogger() *Logger {
	return GetComponentLogger("api")
}
