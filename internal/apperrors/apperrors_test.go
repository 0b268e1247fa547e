package apperrors

import (
	"errors"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantFamily models.Family
		wantLevel  string
	}{
		{"not found is routine", NotFound("member"), models.FamilyApplication, logging.LevelInfo},
		{"unauthorized is routine", Unauthorized("missing token"), models.FamilyApplication, logging.LevelInfo},
		{"forbidden is routine", Forbidden("admin only"), models.FamilyApplication, logging.LevelInfo},
		{"validation warns", Validation("bad payload"), models.FamilyApplication, logging.LevelWarning},
		{"conflict warns", Conflict("duplicate id"), models.FamilyApplication, logging.LevelWarning},
		{"database is critical", Database(errors.New("ora-03113")), models.FamilyError, logging.LevelCritical},
		{"upstream is critical", ExternalService("gov-api", errors.New("timeout")), models.FamilyError, logging.LevelCritical},
		{"internal is critical", Internal(errors.New("nil deref")), models.FamilyError, logging.LevelCritical},
		{"plain error defaults", errors.New("something broke"), models.FamilyError, logging.LevelError},
		{"fiber 404 is routine", fiber.ErrNotFound, models.FamilyApplication, logging.LevelInfo},
		{"fiber 422 warns", fiber.ErrUnprocessableEntity, models.FamilyApplication, logging.LevelWarning},
		{"fiber 500 is an error", fiber.ErrInternalServerError, models.FamilyError, logging.LevelError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			family, level := Classify(tc.err)
			if family != tc.wantFamily || level != tc.wantLevel {
				t.Errorf("Classify(%v) = (%s, %s), want (%s, %s)",
					tc.err, family, level, tc.wantFamily, tc.wantLevel)
			}
		})
	}
}

func TestClassifyWrappedAppError(t *testing.T) {
	wrapped := errors.New("handler: " + NotFound("profile").Error())
	// A textual copy is not an AppError; only real wrapping classifies.
	if family, level := Classify(wrapped); family != models.FamilyError || level != logging.LevelError {
		t.Errorf("textual copy classified as (%s, %s), want default (error, ERROR)", family, level)
	}

	real := func() error {
		return NotFound("profile")
	}()
	if family, level := Classify(real); family != models.FamilyApplication || level != logging.LevelInfo {
		t.Errorf("AppError classified as (%s, %s), want (application, INFO)", family, level)
	}
}

func TestAppErrorCarriesCause(t *testing.T) {
	cause := errors.New("connection reset")
	ae := Database(cause)
	if !errors.Is(ae, cause) {
		t.Error("Unwrap chain lost the cause")
	}
	if !strings.Contains(ae.Error(), "connection reset") {
		t.Errorf("Error() omits the cause: %s", ae.Error())
	}
	if ae.HTTPStatus != fiber.StatusInternalServerError {
		t.Errorf("database error status %d, want 500", ae.HTTPStatus)
	}
}

func TestCallsitePointsAtConstructorCaller(t *testing.T) {
	ae := Validation("bad input")
	file, line, fn := ae.Callsite()
	if !strings.HasSuffix(file, "apperrors_test.go") || line == 0 {
		t.Errorf("callsite %s:%d, want this test file", file, line)
	}
	if !strings.Contains(fn, "TestCallsitePointsAtConstructorCaller") {
		t.Errorf("callsite function %q, want the test function", fn)
	}
}

func TestStackTraceIsNonEmptyForConstructedErrors(t *testing.T) {
	ae := Internal(errors.New("x"))
	st := ae.StackTrace()
	if st == "" {
		t.Fatal("constructed error has no stack")
	}
	if !strings.Contains(st, "apperrors_test.go") {
		t.Errorf("stack omits the construction site:\n%s", st)
	}
}
