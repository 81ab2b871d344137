package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeMissingStop, "signal has no stop")
	suite.NotNil(err)
	suite.Equal(ErrCodeMissingStop, err.Code)
	suite.Equal("signal has no stop", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeUnknownInstrument, "no contract spec for %s", "NQ")
	suite.Equal(ErrCodeUnknownInstrument, err.Code)
	suite.Equal("no contract spec for NQ", err.Message)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeConnectivity, "failed to submit entry leg", cause)
	suite.Equal(ErrCodeConnectivity, err.Code)
	suite.Equal(cause, err.Cause)
	suite.Equal("[400] failed to submit entry leg: connection reset", err.Error())
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("timeout")
	err := Wrapf(ErrCodeConnectivity, cause, "status query for leg %s", "abc")
	suite.Equal("status query for leg abc", err.Message)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidSignal, "invalid signal")
	suite.Equal("[100] invalid signal", err.Error())
}

func (suite *ErrorTestSuite) TestGetCode() {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "coded error", err: New(ErrCodeWrongSideStop, "x"), expected: ErrCodeWrongSideStop},
		{name: "outermost code wins", err: Wrap(ErrCodeRetriesExhausted, "x", New(ErrCodeConnectivity, "y")), expected: ErrCodeRetriesExhausted},
		{name: "fmt wrapped", err: fmt.Errorf("context: %w", New(ErrCodeLegNotFound, "x")), expected: ErrCodeLegNotFound},
		{name: "rejection", err: NewRejectionError(ErrCodeRiskRejection, "b1", "daily_loss_limit", ""), expected: ErrCodeRiskRejection},
		{name: "standard error", err: errors.New("plain"), expected: ErrCodeUnknown},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, GetCode(tc.err))
		})
	}
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeConnectivity, "down")
	suite.True(HasCode(err, ErrCodeConnectivity))
	suite.False(HasCode(err, ErrCodeOrderRejected))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	cause := errors.New("underlying")
	err := Wrap(ErrCodeJournalWriteFailed, "insert failed", cause)
	suite.True(Is(err, cause))

	var coded *Error
	suite.True(As(err, &coded))
	suite.Equal(ErrCodeJournalWriteFailed, coded.Code)
}

func (suite *ErrorTestSuite) TestRejectionError() {
	err := NewRejectionError(ErrCodeKillSwitchEngaged, "b-1", "kill_switch", "kill switch engaged")
	suite.Equal("[301] order rejected: kill_switch: kill switch engaged", err.Error())

	wrapped := fmt.Errorf("submit: %w", err)
	rejection, ok := IsRejection(wrapped)
	suite.True(ok)
	suite.Equal("b-1", rejection.OrderID)
	suite.Equal("kill_switch", RejectionReason(wrapped))

	_, ok = IsRejection(New(ErrCodeInvalidSignal, "x"))
	suite.False(ok)
	suite.Equal("", RejectionReason(nil))
}

func (suite *ErrorTestSuite) TestRejectionErrorWithoutMessage() {
	err := NewRejectionError(ErrCodeRiskRejection, "b-2", "position_cap", "")
	suite.Equal("[300] order rejected: position_cap", err.Error())
}

func (suite *ErrorTestSuite) TestErrorCodeValues() {
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(100), ErrCodeInvalidSignal)
	suite.Equal(ErrorCode(200), ErrCodeOutsideSession)
	suite.Equal(ErrorCode(300), ErrCodeRiskRejection)
	suite.Equal(ErrorCode(400), ErrCodeConnectivity)
	suite.Equal(ErrorCode(500), ErrCodeJournalWriteFailed)
	suite.Equal(ErrorCode(600), ErrCodeInternal)
}
