package domain

// Общие доменные ошибки. Тип каждой ошибки определяет, каким
// статусом она отдаётся наружу; детали добавляются обёрткой %w.
var (
	ErrNotFound      = notFoundError("not found")
	ErrValidation    = validationError("invalid data")
	ErrAuthorization = authorizationError("not authorized")
	ErrConflict      = conflictError("conflicting state")
	ErrTransient     = transientError("infrastructure unavailable")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }

type authorizationError string

func (e authorizationError) Error() string { return string(e) }

type conflictError string

func (e conflictError) Error() string { return string(e) }

type transientError string

func (e transientError) Error() string { return string(e) }
