package types

type RunMode string

const (
	// ModeLocal runs the worker with a console logger and an in-process schedule
	ModeLocal RunMode = "local"
	// ModeWorker runs the renewal worker
	ModeWorker RunMode = "worker"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
