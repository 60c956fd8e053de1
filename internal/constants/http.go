package constants

// HTTP Header Names
const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderUserAgent      = "User-Agent"
	HeaderXRequestID     = "X-Request-ID"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
	HeaderCFConnectingIP = "CF-Connecting-IP"
)

// HTTP Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeText = "text/plain"
	ContentTypeHTML = "text/html"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized       = "Unauthorized access"
	MsgForbidden          = "Access forbidden"
	MsgNotFound           = "Resource not found"
	MsgBadRequest         = "Invalid request"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgConflict           = "Resource already exists"
	MsgTooManyRequests    = "Too many requests"
)

// HTTP Success Messages
const (
	MsgRegistered        = "Registration successful, please verify your email"
	MsgEmailVerified     = "Email verified successfully"
	MsgVerificationSent  = "Verification email sent"
	MsgPasswordResetSent = "Password reset email sent"
	MsgPasswordReset     = "Password reset successfully"
	MsgLoggedOut         = "Logged out successfully"
	MsgUpdated           = "Resource updated successfully"
	MsgDeleted           = "Resource deleted successfully"
	MsgSuccess           = "Operation completed successfully"
)
