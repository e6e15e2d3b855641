package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/gorilla/schema"
	"github.com/prior-it/geodata/config"
	"github.com/prior-it/geodata/core"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return decoder
}

// Request wraps a single HTTP request and its response writer.
type Request struct {
	Writer  http.ResponseWriter
	Request *http.Request
	logger  *slog.Logger
	cfg     *config.Config
}

// Log the specified error message. args is a list of structured fields to add to the error message.
// The arguments should alternate between a field's name (string) and its value (any).
// This behaves the same as [log/slog.Error]
//
// # Example
//
//	request.Error("Something went wrong", "error", err, "id", id)
func (request *Request) Error(msg string, args ...any) {
	request.logger.ErrorContext(request.Context(), msg, args...)
}

// Info logs the specified message, see [Request.Error].
func (request *Request) Info(msg string, args ...any) {
	request.logger.InfoContext(request.Context(), msg, args...)
}

// Debug logs the specified debug message, see [Request.Error].
func (request *Request) Debug(msg string, args ...any) {
	request.logger.DebugContext(request.Context(), msg, args...)
}

// LogString will add the specified field and its value to the current request's log entry
func (request *Request) LogString(field string, value string) {
	request.LogField(field, slog.StringValue(value))
}

// LogField will add the specified field and its value to the current request's log entry
//
// # Example
//
//	request.LogField("record_id", slog.IntValue(id))
func (request *Request) LogField(field string, value slog.Value) {
	httplog.LogEntrySetField(request.Context(), field, value)
}

// Context returns the request's context.
//
// The context is canceled when the client's connection closes, the request is canceled (with
// HTTP/2), or when the ServeHTTP method returns.
func (request *Request) Context() context.Context {
	return request.Request.Context()
}

// Path returns the full path of the request.
func (request *Request) Path() string {
	return request.Request.URL.Path
}

// TraceID returns the identifier of the current request, as assigned by the RequestID middleware.
func (request *Request) TraceID() string {
	return middleware.GetReqID(request.Context())
}

// GetPath returns the value for the named path wildcard in the router pattern
// that matched the request.
//
// E.g.: A route defined as `/records/{id}` can call `GetPath("id")` to return the
// value for "id" in the current path.
func (request *Request) GetPath(key string) string {
	return chi.URLParam(request.Request, key)
}

// PathID parses the named path wildcard as a record identity. Malformed identities are reported as
// a validation error on the "id" field.
func (request *Request) PathID(key string) (core.RecordID, error) {
	raw := request.GetPath(key)
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		result := core.Success()
		result.AddFieldError("id", fmt.Sprintf("%q is not a valid ID", raw))
		return 0, result.Err()
	}
	return core.RecordID(id), nil
}

// ParseBody decodes the JSON request body into v. Bodies that are empty or that cannot be
// decoded are reported as validation errors.
//
// # Example:
//
//	var data SomeStruct
//	if err := request.ParseBody(&data); err != nil {
//		return err
//	}
func (request *Request) ParseBody(v any) error {
	err := render.DecodeJSON(request.Request.Body, v)
	if errors.Is(err, io.EOF) {
		return core.NewValidationError("request body is required")
	}
	if err != nil {
		return errors.Join(core.NewValidationError("request body is not valid JSON"), err)
	}
	return nil
}

// ParseQuery decodes the url query parameters into v using the `schema` struct tags.
// Values that cannot be converted are reported as field errors.
func (request *Request) ParseQuery(v any) error {
	err := queryDecoder.Decode(v, request.Request.URL.Query())
	if err == nil {
		return nil
	}
	result := core.Success()
	var multi schema.MultiError
	if errors.As(err, &multi) {
		for key := range multi {
			result.AddFieldError(key, fmt.Sprintf("invalid value %q", request.GetQuery(key)))
		}
	} else {
		result.AddError(err.Error())
	}
	return errors.Join(result.Err(), err)
}

// GetQuery returns the first value associated with the given query parameter in the request url.
// If there are no values set for the query param, this returns the empty string.
func (request *Request) GetQuery(param string) string {
	return request.Request.URL.Query().Get(param)
}

// GetHeader returns the first value associated with the given header in the request.
// If there are no values set for the header, this returns the empty string.
func (request *Request) GetHeader(header string) string {
	return request.Request.Header.Get(header)
}

// AddHeader adds the header, value pair to the response header. It appends to any existing values associated with key.
func (request *Request) AddHeader(header string, value string) {
	request.Writer.Header().Add(header, value)
}

// Protocol returns the currently used protocol (either "http://" or "https://").
// A proxy in front of the server can report TLS termination through X-Forwarded-Proto.
func (request *Request) Protocol() string {
	if request.cfg != nil && request.cfg.App.SSL {
		return "https://"
	}
	if request.Request.TLS != nil || strings.EqualFold(request.GetHeader("X-Forwarded-Proto"), "https") {
		return "https://"
	}
	return "http://"
}

// CreateURL will return the url for the given endpoint on the current host, without protocol.
func (request *Request) CreateURL(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return fmt.Sprintf("%s%s", request.Request.Host, endpoint)
}

// CreateProtocolURL will return the full url for the given endpoint, including its protocol.
func (request *Request) CreateProtocolURL(endpoint string) string {
	return request.Protocol() + request.CreateURL(endpoint)
}

// JSON renders v as the JSON response body with the specified status code.
func (request *Request) JSON(code int, v any) error {
	render.Status(request.Request, code)
	render.JSON(request.Writer, request.Request, v)
	return nil
}

// Created renders v with status 201 and points the Location header at the absolute url of
// endpoint on the current host.
func (request *Request) Created(endpoint string, v any) error {
	request.AddHeader("Location", request.CreateProtocolURL(endpoint))
	return request.JSON(http.StatusCreated, v)
}

// NoContent responds with status 204 and an empty body.
func (request *Request) NoContent() error {
	render.NoContent(request.Writer, request.Request)
	return nil
}
