package main

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// temporalLogger routes the SDK's key-value logging into zap
type temporalLogger struct {
	sugar *zap.SugaredLogger
}

func newTemporalLogger(logger *zap.Logger) log.Logger {
	return &temporalLogger{sugar: logger.With(zap.String("component", "temporal")).Sugar()}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) { l.sugar.Debugw(msg, keyvals...) }
func (l *temporalLogger) Info(msg string, keyvals ...interface{})  { l.sugar.Infow(msg, keyvals...) }
func (l *temporalLogger) Warn(msg string, keyvals ...interface{})  { l.sugar.Warnw(msg, keyvals...) }
func (l *temporalLogger) Error(msg string, keyvals ...interface{}) { l.sugar.Errorw(msg, keyvals...) }
