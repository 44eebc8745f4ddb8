// Package handler holds the pieces shared by every HTTP handler: the
// response envelope and the operational endpoints.
package handler

// Response is the envelope every front-desk endpoint answers with.
// Status is "success" or "error"; Message carries the error text and
// Data the payload, never both.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}
