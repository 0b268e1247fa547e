package middleware

// ContextKey is a type for fiber Locals keys to avoid collisions.
type ContextKey string

const (
	// Correlation headers. An inbound X-Trace-ID is adopted; both resolved
	// ids are echoed on the response for client-side correlation.
	TraceIDHeader   = "X-Trace-ID"
	RequestIDHeader = "X-Request-ID"

	// Locals keys.
	RequestContextKey ContextKey = "requestContext"
	RequestLoggerKey  ContextKey = "requestLogger"
	UserIDKey         ContextKey = "userID"
	UserRoleKey       ContextKey = "userRole"

	// JWT middleware.
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	RoleAdmin           = "admin"
)
