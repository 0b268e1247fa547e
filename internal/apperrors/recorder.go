package apperrors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
)

// Recorder converts failures into records and pushes them through the
// pipeline. Recording never raises: a failure while recording degrades to a
// stderr report and the original error keeps propagating untouched.
type Recorder struct {
	pipeline *logging.Pipeline
	source   string
}

func NewRecorder(pipeline *logging.Pipeline, source string) *Recorder {
	if source == "" {
		source = "portal"
	}
	return &Recorder{pipeline: pipeline, source: source}
}

// Record classifies err, builds an exception record merged with the ambient
// correlation context and callerData, and writes it to exactly one of the
// Application or Error families through both writers.
func (r *Recorder) Record(ctx context.Context, err error, callerData map[string]interface{}) {
	if err == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] exception recorder panicked: %v (original error: %v)\n", p, err)
		}
	}()

	family, level := Classify(err)
	exc := r.buildException(err, level, callerData)
	r.pipeline.Log(ctx, toRecord(exc, family), family)
}

// buildException captures type, status, stack and the innermost call site.
// A classified AppError carries its own construction-time stack; for
// anything else the recorder's caller is the best frame available.
func (r *Recorder) buildException(err error, level string, callerData map[string]interface{}) models.ExceptionRecord {
	exc := models.ExceptionRecord{
		ID:        uuid.NewString(),
		Source:    r.source,
		Level:     level,
		Message:   err.Error(),
		Context:   callerData,
		CreatedAt: time.Now().UTC(),
	}

	var ae *AppError
	if errors.As(err, &ae) {
		exc.ExceptionType = string(ae.Kind)
		exc.HTTPStatus = ae.HTTPStatus
		exc.StackTrace = ae.StackTrace()
		exc.File, exc.LineNumber, exc.Function = ae.Callsite()
		if len(ae.Details) > 0 {
			if exc.Context == nil {
				exc.Context = make(map[string]interface{}, len(ae.Details))
			}
			for k, v := range ae.Details {
				if _, taken := exc.Context[k]; !taken {
					exc.Context[k] = v
				}
			}
		}
		return exc
	}

	exc.ExceptionType = fmt.Sprintf("%T", err)
	// Two frames up: buildException <- Record <- the caller that failed.
	if pc, file, line, ok := runtime.Caller(2); ok {
		exc.File = file
		exc.LineNumber = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			exc.Function = fn.Name()
		}
	}
	return exc
}

// toRecord flattens an exception onto the wire shape of its target family.
func toRecord(exc models.ExceptionRecord, family models.Family) models.Record {
	rec := models.Record{
		Source:     exc.Source,
		Level:      exc.Level,
		Message:    exc.Message,
		Function:   exc.Function,
		LineNumber: exc.LineNumber,
		FilePath:   exc.File,
		CreatedAt:  exc.CreatedAt,
	}
	if family == models.FamilyError {
		rec.ErrorType = exc.ExceptionType
		rec.ErrorCode = exc.ExceptionType
		rec.StatusCode = exc.HTTPStatus
		rec.StackTrace = exc.StackTrace
		rec.ErrorDetails = exc.Context
		return rec
	}
	rec.ResponseStatus = exc.HTTPStatus
	rec.ExtraData = map[string]interface{}{
		"exception_id":   exc.ID,
		"exception_type": exc.ExceptionType,
	}
	for k, v := range exc.Context {
		if _, taken := rec.ExtraData[k]; !taken {
			rec.ExtraData[k] = v
		}
	}
	return rec
}
