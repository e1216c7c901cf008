package relay

// Envelope is the body of every non-streaming response.
type Envelope struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"requestId"`
	Data      any    `json:"data,omitempty"`
	Code      Code   `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

func Success(requestID string, data any) Envelope {
	return Envelope{OK: true, RequestID: requestID, Data: data}
}

// SuccessWithWarning attaches a degradation note to an otherwise good result.
func SuccessWithWarning(requestID string, data any, warning string) Envelope {
	return Envelope{OK: true, RequestID: requestID, Data: data, Warning: warning}
}

// Failure builds an error envelope. An empty message uses the code's fixed
// text.
func Failure(requestID string, code Code, message string) Envelope {
	if message == "" {
		message = code.Message()
	}
	return Envelope{OK: false, RequestID: requestID, Code: code, Message: message}
}
