package core

// Content type and header constants
const (
	ContentTypeJSON     = "application/json"
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXAPIKey       = "x-api-key"
	AuthBearerPrefix    = "Bearer "
)

// Role constants
const (
	RoleUser   = "user"
	RoleSystem = "system"
)
