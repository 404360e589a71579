// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// ConfigureLogger replaces the global logger. Development gets a text
// handler at debug level, everything else JSON at info.
func ConfigureLogger(env string) *Logger {
	var handler slog.Handler
	switch strings.ToLower(env) {
	case "development", "dev", "":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	GlobalLogger = &Logger{Logger: slog.New(handler)}
	slog.SetDefault(GlobalLogger.Logger)
	return GlobalLogger
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
	SessionID     LogContextKey = "session_id"
)

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableSessionLogging bool
	EnableWSLogging      bool
}

var (
	// Config holds the current logging configuration.
	Config = LoggingConfig{
		EnableSessionLogging: true,
		EnableWSLogging:      true,
	}
)

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// WithSessionID returns a new context carrying the session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionID, id)
}

// ExtractSessionID retrieves the session id from the context.
func ExtractSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionID).(string); ok {
		return id
	}
	return ""
}

// SessionLogger provides structured logging for session workflows.
type SessionLogger struct {
	sessionID string
	logger    *Logger
}

// NewSessionLogger creates a SessionLogger for one session.
func NewSessionLogger(sessionID string) *SessionLogger {
	return &SessionLogger{
		sessionID: sessionID,
		logger:    GlobalLogger,
	}
}

func (l *SessionLogger) attrs(ctx context.Context, workflow string, fields map[string]interface{}) []any {
	attrs := []any{
		slog.String("session_id", l.sessionID),
		slog.String("workflow", workflow),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// LogEvent logs a state transition of the session.
func (l *SessionLogger) LogEvent(ctx context.Context, workflow, event string, fields map[string]interface{}) {
	if !Config.EnableSessionLogging {
		return
	}
	attrs := append(l.attrs(ctx, workflow, fields), slog.String("event", event))
	l.logger.InfoContext(ctx, "session event", attrs...)
}

// LogDiscard logs a result dropped because the session moved on.
func (l *SessionLogger) LogDiscard(ctx context.Context, workflow, reason string, fields map[string]interface{}) {
	if !Config.EnableSessionLogging {
		return
	}
	attrs := append(l.attrs(ctx, workflow, fields), slog.String("reason", reason))
	l.logger.DebugContext(ctx, "session result discarded", attrs...)
}

// LogError logs a failed workflow step.
func (l *SessionLogger) LogError(ctx context.Context, workflow string, err error, fields map[string]interface{}) {
	if !Config.EnableSessionLogging {
		return
	}
	attrs := append(l.attrs(ctx, workflow, fields), slog.String("error", err.Error()))
	l.logger.ErrorContext(ctx, "session error", attrs...)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
	logger  *Logger
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{
		hubName: hubName,
		logger:  GlobalLogger,
	}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, sessionID string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("session_id", sessionID),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, sessionID string, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, sessionID string, err error, eventType string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("session_id", sessionID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogAsyncOperationStart logs the start of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
		slog.String("session_id", ExtractSessionID(ctx)),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.DebugContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
		slog.String("session_id", ExtractSessionID(ctx)),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation completed", attrs...)
}

// LogAsyncOperationError logs an error in an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
		slog.String("session_id", ExtractSessionID(ctx)),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.ErrorContext(ctx, "async operation failed", attrs...)
}

// LogServiceCall logs a call to an external collaborator.
func LogServiceCall(ctx context.Context, service, method string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("service", service),
		slog.String("method", method),
		slog.String("type", "service_call"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.DebugContext(ctx, "service call", attrs...)
}
