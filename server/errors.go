package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/prior-it/geodata/core"
)

const (
	titleValidation = "Validation Error"
	titleNotFound   = "Resource Not Found"
	titleConflict   = "Business Rule Violation"
	titleInternal   = "Internal Server Error"
)

// Problem is the JSON body of every error response.
type Problem struct {
	StatusCode  int                 `json:"statusCode"`
	Title       string              `json:"title"`
	Detail      string              `json:"detail"`
	TraceID     string              `json:"traceId"`
	Errors      []string            `json:"errors,omitempty"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
}

func newProblem(request *Request, code int, title string, detail string) Problem {
	return Problem{
		StatusCode: code,
		Title:      title,
		Detail:     detail,
		TraceID:    request.TraceID(),
	}
}

// Problem renders p as the response.
func (request *Request) Problem(p Problem) {
	render.Status(request.Request, p.StatusCode)
	render.JSON(request.Writer, request.Request, p)
}

// DefaultErrorHandler translates handler errors into a JSON problem response.
// Details of unexpected errors are only exposed in the dev environment.
func DefaultErrorHandler(request *Request, err error) {
	dev := request.cfg != nil && request.cfg.IsDev()
	var validationErr *core.ValidationError
	var p Problem
	switch {
	case errors.As(err, &validationErr):
		p = newProblem(request, http.StatusBadRequest, titleValidation, validationErr.Error())
		p.Errors = validationErr.Errors
		p.FieldErrors = validationErr.FieldErrors
	case errors.Is(err, core.ErrIDMismatch), errors.Is(err, core.ErrValidation):
		p = newProblem(request, http.StatusBadRequest, titleValidation, err.Error())
	case errors.Is(err, core.ErrNotFound):
		p = newProblem(request, http.StatusNotFound, titleNotFound, "The requested resource was not found")
		if id := request.GetPath("id"); id != "" {
			p.Errors = []string{fmt.Sprintf("record with ID %s was not found", id)}
		}
	case errors.Is(err, core.ErrConflict):
		detail := "A business rule was violated"
		if dev {
			detail = err.Error()
		}
		p = newProblem(request, http.StatusConflict, titleConflict, detail)
	default:
		detail := "An internal server error occurred"
		if dev {
			detail = err.Error()
		}
		p = newProblem(request, http.StatusInternalServerError, titleInternal, detail)
	}

	if p.StatusCode >= http.StatusInternalServerError {
		request.Error("Server error", "error", err, "trace_id", p.TraceID)
	} else {
		request.Info("Request failed", "status", p.StatusCode, "error", err, "trace_id", p.TraceID)
	}
	request.Problem(p)
}
