package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidSignal        ErrorCode = 100
	ErrCodeMissingStop          ErrorCode = 101
	ErrCodeWrongSideStop        ErrorCode = 102
	ErrCodeWrongSideTarget      ErrorCode = 103
	ErrCodeInvalidQuantity      ErrorCode = 104
	ErrCodeUnknownInstrument    ErrorCode = 105
	ErrCodeUnknownStrategy      ErrorCode = 106
	ErrCodeInvalidConfiguration ErrorCode = 107
	ErrCodeInvalidTransition    ErrorCode = 108
	ErrCodeInvalidVersion       ErrorCode = 109
	ErrCodeVersionMismatch      ErrorCode = 110

	// Session errors (200-299)
	ErrCodeOutsideSession ErrorCode = 200
	ErrCodeInvalidClock   ErrorCode = 201
	ErrCodeInvalidZone    ErrorCode = 202

	// Risk errors (300-399)
	ErrCodeRiskRejection          ErrorCode = 300
	ErrCodeKillSwitchEngaged      ErrorCode = 301
	ErrCodeReconciliationMismatch ErrorCode = 302

	// Connectivity and broker errors (400-499)
	ErrCodeConnectivity      ErrorCode = 400
	ErrCodeOrderRejected     ErrorCode = 401
	ErrCodeLegNotFound       ErrorCode = 402
	ErrCodeLegNotCancellable ErrorCode = 403
	ErrCodeRetriesExhausted  ErrorCode = 404
	ErrCodeDuplicateLeg      ErrorCode = 405
	ErrCodeBracketNotFound   ErrorCode = 406
	ErrCodeBrokerUnavailable ErrorCode = 407
	ErrCodeThrottleCancelled ErrorCode = 408

	// Storage and journal errors (500-599)
	ErrCodeJournalWriteFailed ErrorCode = 500
	ErrCodeJournalInitFailed  ErrorCode = 501
	ErrCodeDataSourceFailed   ErrorCode = 502
	ErrCodeDataNotFound       ErrorCode = 503
	ErrCodeResultsWriteFailed ErrorCode = 504

	// System errors (600-699)
	ErrCodeInternal       ErrorCode = 600
	ErrCodeNotImplemented ErrorCode = 601
	ErrCodeLoopStopped    ErrorCode = 602
)
