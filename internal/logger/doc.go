// Package logger provides structured logging for spidex on top of the Zap logging library.
// It keeps a process-wide logger with an adjustable level, lets callers carry a
// logger through a context, and offers plain, formatted and key-value helpers.
// Library code only logs at debug level, so the default info level keeps it quiet.
package logger
