package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTemporalLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := newTemporalLogger(zap.New(core))

	logger.Info("Started Worker", "TaskQueue", "flight-surety-oracles", "WorkerID", "w1")
	logger.Warn("Failed to poll", "Error", "unavailable")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "Started Worker", entries[0].Message)
		assert.Equal(t, "flight-surety-oracles", fields["TaskQueue"])
		assert.Equal(t, "temporal", fields["component"])
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}
}
