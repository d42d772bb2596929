package gate

import "errors"

// ErrorCode identifies why a scan ended without a match.
type ErrorCode string

const (
	ErrCodeNoFace          ErrorCode = "NO_FACE"
	ErrCodeLivenessBlocked ErrorCode = "LIVENESS_BLOCKED"
	ErrCodeCamera          ErrorCode = "CAMERA_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodeNotMatched      ErrorCode = "NOT_MATCHED"
	ErrCodeCancelled       ErrorCode = "CANCELLED"
	ErrCodeCooldown        ErrorCode = "COOLDOWN"
	ErrCodeEndOfStream     ErrorCode = "END_OF_STREAM"
)

// ScanError is a structured scan failure.
type ScanError struct {
	Code    ErrorCode
	Message string
	Retry   bool
	// Reason carries the engine's last reason line, if any.
	Reason string
}

func (e *ScanError) Error() string {
	return e.Message
}

// User-friendly error messages
var errorMessages = map[ErrorCode]string{
	ErrCodeNoFace:          "Please position your face in front of the camera",
	ErrCodeLivenessBlocked: "Liveness check failed. Use a real camera and blink once",
	ErrCodeCamera:          "Camera error. Please check your camera connection",
	ErrCodeTimeout:         "Scan timed out. Please try again",
	ErrCodeNotMatched:      "Face not recognized",
	ErrCodeCancelled:       "Scan cancelled",
	ErrCodeCooldown:        "Please wait a moment before scanning again",
	ErrCodeEndOfStream:     "Recording ended before a decision was reached",
}

// GetErrorMessage returns a user-friendly message for an error code.
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Scan failed"
}

// NewScanError creates a new scan error.
func NewScanError(code ErrorCode, retry bool, reason string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: GetErrorMessage(code),
		Retry:   retry,
		Reason:  reason,
	}
}

// CodeOf returns the code of a ScanError, or "" for any other error.
func CodeOf(err error) ErrorCode {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
