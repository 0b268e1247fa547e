// Package apperrors defines the portal's closed failure taxonomy and maps
// arbitrary runtime errors onto a record family and severity.
package apperrors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
)

// Kind is one member of the closed exception taxonomy.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindDatabase        Kind = "DATABASE_ERROR"
	KindExternalService Kind = "EXTERNAL_SERVICE_ERROR"
	KindInternal        Kind = "INTERNAL_ERROR"
)

// critical kinds escalate to CRITICAL regardless of message content.
func (k Kind) critical() bool {
	return k == KindDatabase || k == KindExternalService || k == KindInternal
}

// AppError is a classified failure. Construction captures the call stack so
// the recorder can report the innermost call site even after the error has
// crossed several layers.
type AppError struct {
	Kind       Kind
	Code       string
	HTTPStatus int
	Message    string
	Details    map[string]interface{}
	Err        error

	pcs []uintptr
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// newError captures the stack two frames above the exported constructor.
func newError(kind Kind, status int, message string, cause error) *AppError {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return &AppError{
		Kind:       kind,
		Code:       string(kind),
		HTTPStatus: status,
		Message:    message,
		Err:        cause,
		pcs:        pcs[:n],
	}
}

func Validation(message string) *AppError {
	return newError(KindValidation, fiber.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *AppError {
	return newError(KindUnauthorized, fiber.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return newError(KindForbidden, fiber.StatusForbidden, message, nil)
}

func NotFound(resource string) *AppError {
	return newError(KindNotFound, fiber.StatusNotFound, resource+" not found", nil)
}

func Conflict(message string) *AppError {
	return newError(KindConflict, fiber.StatusConflict, message, nil)
}

func Database(cause error) *AppError {
	return newError(KindDatabase, fiber.StatusInternalServerError, "data store failure", cause)
}

func ExternalService(service string, cause error) *AppError {
	return newError(KindExternalService, fiber.StatusBadGateway, "upstream service failure: "+service, cause)
}

func Internal(cause error) *AppError {
	return newError(KindInternal, fiber.StatusInternalServerError, "internal failure", cause)
}

// Callsite returns the innermost application frame of the captured stack.
func (e *AppError) Callsite() (file string, line int, function string) {
	if len(e.pcs) == 0 {
		return "", 0, ""
	}
	frames := runtime.CallersFrames(e.pcs)
	f, _ := frames.Next()
	return f.File, f.Line, f.Function
}

// StackTrace renders the captured stack in the runtime's usual format.
func (e *AppError) StackTrace() string {
	if len(e.pcs) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// Classify maps any error onto the family/level pair that decides where the
// resulting record is persisted. Routing is a hard invariant: WARNING and
// INFO results land in the Application family, ERROR and CRITICAL in the
// Error family, never both.
//
// 401/403/404 are expected client outcomes and classify as INFO so routine
// authorization misses do not pollute error telemetry; other 4xx are
// WARNING; the critical kinds (data store, upstream service, unclassified
// internal) are CRITICAL; anything else, including errors no one declared a
// status for, defaults to ERROR.
func Classify(err error) (models.Family, string) {
	status := 0
	var ae *AppError
	if errors.As(err, &ae) {
		status = ae.HTTPStatus
	} else {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}

	switch status {
	case fiber.StatusUnauthorized, fiber.StatusForbidden, fiber.StatusNotFound:
		return models.FamilyApplication, logging.LevelInfo
	}
	if status >= 400 && status < 500 {
		return models.FamilyApplication, logging.LevelWarning
	}
	if ae != nil && ae.Kind.critical() {
		return models.FamilyError, logging.LevelCritical
	}
	return models.FamilyError, logging.LevelError
}
