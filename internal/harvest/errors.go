package harvest

// ErrorKind tags the failure classes of the request gateway.
type ErrorKind string

const (
	// ErrorKindConfiguration means no usable credentials were found at
	// call time. Never retried automatically.
	ErrorKindConfiguration ErrorKind = "configuration"

	// ErrorKindAuthorization means the provider rejected the credentials.
	ErrorKindAuthorization ErrorKind = "authorization"

	// ErrorKindTransport covers non-2xx responses and network failures.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindMalformedResponse means the response body was not valid
	// JSON.
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
)

// APIError is the typed failure returned by the request gateway. It
// propagates unchanged to the tool layer, which renders it as a structured
// error payload.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string

	cause error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func configurationError(message string) *APIError {
	return &APIError{
		Kind:       ErrorKindConfiguration,
		StatusCode: 401,
		Message:    message,
	}
}

func transportError(status int, message string, cause error) *APIError {
	return &APIError{
		Kind:       ErrorKindTransport,
		StatusCode: status,
		Message:    message,
		cause:      cause,
	}
}

// httpError maps a non-2xx response to an APIError. Credential rejections
// get the authorization kind, everything else is transport.
func httpError(status int, message string) *APIError {
	kind := ErrorKindTransport
	if status == 401 || status == 403 {
		kind = ErrorKindAuthorization
	}
	return &APIError{
		Kind:       kind,
		StatusCode: status,
		Message:    message,
	}
}

func malformedResponseError(message string, cause error) *APIError {
	return &APIError{
		Kind:       ErrorKindMalformedResponse,
		StatusCode: 500,
		Message:    message,
		cause:      cause,
	}
}
