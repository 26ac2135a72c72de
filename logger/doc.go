// Package logger provides structured logging for the search engine
// using zerolog.
//
// It supports JSON and console formats, rotating file output through
// lumberjack, log level configuration, and component-scoped loggers with
// structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "file"
//	  file: "/var/log/automl/search.log"
//
// # Usage
//
//	log := logger.Get("engine")
//	log.Info("batch submitted", logger.Fields(logger.FieldBatch, 2, "tasks", 5))
package logger
