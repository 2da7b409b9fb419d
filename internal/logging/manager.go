package logging

import (
	"fmt"
	"sync"
)

// Компоненты сервиса посадки, у каждого свой файл логов
const (
	ComponentSeating = "seating"
	ComponentAPI     = "api"
)

// LoggerManager хранит логгеры компонентов и общий уровень консоли
type LoggerManager struct {
	mu           sync.RWMutex
	loggers      map[string]*Logger
	consoleLevel LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers:      make(map[string]*Logger),
			consoleLevel: INFO,
		}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, при первом обращении открывая его файл
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()
	if exists {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер компонента %s: %w", component, err)
	}
	logger.SetConsoleLevel(lm.consoleLevel)
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента; без файла пишет только в консоль
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	lm.mu.RLock()
	level := lm.consoleLevel
	lm.mu.RUnlock()
	return &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: level,
		minFileLevel:    ERROR,
	}
}

// SetConsoleLevel задаёт уровень консоли всем компонентам, включая ещё не созданные
func (lm *LoggerManager) SetConsoleLevel(level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.consoleLevel = level
	for _, logger := range lm.loggers {
		logger.SetConsoleLevel(level)
	}
}

// RegisterLogger подменяет логгер компонента (например, NewWriterLogger в тестах)
func (lm *LoggerManager) RegisterLogger(component string, logger *Logger) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.loggers[component] = logger
}

// CloseAll закрывает файлы всех компонентов
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("закрытие логгера %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// GetSeatingLogger логгер ядра посадки
func GetSeatingLogger() *Logger {
	return GetLoggerManager().MustGetLogger(ComponentSeating)
}

// GetAPILogger логгер REST API и webhook'ов
func GetAPILogger() *Logger {
	return GetLoggerManager().MustGetLogger(ComponentAPI)
}
