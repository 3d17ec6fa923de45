package contextkeys

type contextKey string

// CallerIDKey carries the service-JWT caller identity set by
// middleware.AuthMiddleware for the REST API surface.
const CallerIDKey contextKey = "CallerID"
