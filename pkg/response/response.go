package response

// Envelope represents the standard API response format shared by the
// gateway and every service behind it. Success responses carry Data;
// failures carry Message and a machine-readable Code.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK returns a standard success envelope wrapping the payload
func OK(data interface{}) Envelope {
	return Envelope{
		Success: true,
		Data:    data,
	}
}

// Fail returns a standard error envelope with a taxonomy code and message
func Fail(code, message string) Envelope {
	return Envelope{
		Success: false,
		Message: message,
		Code:    code,
	}
}
