package models

import "time"

// Family selects the storage destination (one local file, one remote table)
// for a log record.
type Family string

const (
	FamilyApplication Family = "application"
	FamilyError       Family = "error"
	FamilyAudit       Family = "audit"
	FamilyPerformance Family = "performance"
	FamilySystem      Family = "system"
)

// Families lists every known record family.
var Families = []Family{
	FamilyApplication,
	FamilyError,
	FamilyAudit,
	FamilyPerformance,
	FamilySystem,
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	switch f {
	case FamilyApplication, FamilyError, FamilyAudit, FamilyPerformance, FamilySystem:
		return true
	}
	return false
}

// Batchable reports whether records of this family may be queued and flushed
// in bulk. Error, audit and system records always take the immediate path.
func (f Family) Batchable() bool {
	return f == FamilyApplication || f == FamilyPerformance
}

// Record is one log entry of any family. The common block is shared by every
// family; the family-specific blocks are populated only for records of that
// family and omitted from the JSON line otherwise.
//
// CreatedAt is set by the pipeline at write time, never by the caller.
// TraceID and RequestID are opaque labels; nothing in the writers parses them.
type Record struct {
	ID         int64                  `json:"id,omitempty"`
	Source     string                 `json:"source"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Layer      string                 `json:"layer,omitempty"`
	Module     string                 `json:"module,omitempty"`
	Function   string                 `json:"function,omitempty"`
	LineNumber int                    `json:"line_number,omitempty"`
	FilePath   string                 `json:"file_path,omitempty"`
	TraceID    string                 `json:"trace_id,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	UserID     string                 `json:"user_id,omitempty"`
	DurationMS *float64               `json:"duration_ms,omitempty"`
	ExtraData  map[string]interface{} `json:"extra_data,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`

	// Application family
	ResponseStatus int    `json:"response_status,omitempty"`
	RequestMethod  string `json:"request_method,omitempty"`
	RequestPath    string `json:"request_path,omitempty"`

	// Error family
	ErrorType    string                 `json:"error_type,omitempty"`
	ErrorCode    string                 `json:"error_code,omitempty"`
	StatusCode   int                    `json:"status_code,omitempty"`
	StackTrace   string                 `json:"stack_trace,omitempty"`
	ErrorDetails map[string]interface{} `json:"error_details,omitempty"`

	// Audit family
	Action       string `json:"action,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Result       string `json:"result,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`

	// Performance family
	MetricName    string  `json:"metric_name,omitempty"`
	MetricValue   float64 `json:"metric_value,omitempty"`
	MetricUnit    string  `json:"metric_unit,omitempty"`
	ThresholdMS   float64 `json:"threshold_ms,omitempty"`
	IsSlow        bool    `json:"is_slow,omitempty"`
	ComponentName string  `json:"component_name,omitempty"`
}

// ExceptionRecord is the intermediate shape the exception recorder builds
// before routing a failure into the Application or Error family.
type ExceptionRecord struct {
	ID            string                 `json:"id"`
	Source        string                 `json:"source"`
	Level         string                 `json:"level"`
	ExceptionType string                 `json:"exception_type"`
	Message       string                 `json:"message"`
	StackTrace    string                 `json:"stack_trace,omitempty"`
	File          string                 `json:"file,omitempty"`
	LineNumber    int                    `json:"line_number,omitempty"`
	Function      string                 `json:"function,omitempty"`
	HTTPStatus    int                    `json:"http_status,omitempty"`
	Context       map[string]interface{} `json:"context,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
