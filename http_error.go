package main

import (
	"net/http"
)

type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// apiError is an error which is sent back to a client. Message is
// shown as is, Cause goes into context if present.
type apiError struct {
	Status  int
	Message string
	Cause   error
}

func (a *apiError) Error() string {
	if a.Cause == nil {
		return a.Message
	}

	return a.Message + ": " + a.Cause.Error()
}

func (a *apiError) Unwrap() error {
	return a.Cause
}

func (a *apiError) StatusCode() int {
	if a.Status == 0 {
		return http.StatusInternalServerError
	}

	return a.Status
}

func (a *apiError) Response() errorResponse {
	resp := errorResponse{
		Error: errorBody{
			Status:  a.StatusCode(),
			Message: a.Message,
		},
	}

	if a.Cause != nil {
		resp.Error.Context = a.Cause.Error()
	}

	return resp
}

func sendError(w http.ResponseWriter, err error, message string, statusCode int) {
	apiErr := &apiError{
		Status:  statusCode,
		Message: message,
		Cause:   err,
	}

	writeJSON(w, apiErr.StatusCode(), apiErr.Response())
}
