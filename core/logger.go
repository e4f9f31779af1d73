package core

import "context"

// Logger is the application logger.
// args may contain errors, extra data (map[string]interface{}) and the user concerned.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Notifier records an in-app notification for a user. Failures are logged, not returned.
type Notifier interface {
	Notify(ctx context.Context, userID, message string)
}
