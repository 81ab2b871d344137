package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.NoError(err)
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)
	suite.True(logger.Core().Enabled(zapcore.InfoLevel))
	suite.False(logger.Core().Enabled(zapcore.DebugLevel))
}

func (suite *LoggerTestSuite) TestNewLoggerWithLevel() {
	tests := []struct {
		name    string
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{name: "debug", level: "debug", enabled: zapcore.DebugLevel, muted: zapcore.DebugLevel - 1},
		{name: "warn", level: "WARN", enabled: zapcore.WarnLevel, muted: zapcore.InfoLevel},
		{name: "error", level: "error", enabled: zapcore.ErrorLevel, muted: zapcore.WarnLevel},
		{name: "unknown falls back to info", level: "verbose", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			logger, err := NewLoggerWithLevel(tc.level)
			suite.Require().NoError(err)
			suite.True(logger.Core().Enabled(tc.enabled))
			suite.False(logger.Core().Enabled(tc.muted))
		})
	}
}

func (suite *LoggerTestSuite) TestLoggerSyncNilLogger() {
	logger := &Logger{Logger: nil}

	err := logger.Sync()
	suite.NoError(err)
}

func (suite *LoggerTestSuite) TestNopLoggerWithFields() {
	logger := NewNopLogger().Named("risk")
	suite.NotNil(logger)

	// Should not panic
	logger.Info("order rejected", zap.String("reason", "daily_loss_limit"))
	logger.With(zap.String("bracket_id", "b-1")).Warn("kill switch engaged")
	suite.NoError(logger.Sync())
}
