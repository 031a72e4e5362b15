// Package apperr описывает ошибки, которые резолверы возвращают клиенту.
// Каждая ошибка несет вид, HTTP-подобный код и, для ошибок валидации, список сообщений.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindValidation      Kind = "VALIDATION_FAILED"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindTokenInvalid    Kind = "TOKEN_INVALID"
	KindMismatch        Kind = "PASSWORD_MISMATCH"
	KindInternal        Kind = "INTERNAL"
)

// Message - элемент списка data у ошибки валидации.
type Message struct {
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Code    int // 0 - код не передается клиенту
	Message string
	Data    []Message
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибки по виду: errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Code: http.StatusUnauthorized, Message: "Not authenticated!"}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: http.StatusUnauthorized, Message: msg}
}

// Validation собирает все сообщения в одну ошибку с кодом 422.
func Validation(messages ...string) *Error {
	data := make([]Message, 0, len(messages))
	for _, m := range messages {
		data = append(data, Message{Message: m})
	}
	return &Error{Kind: KindValidation, Code: http.StatusUnprocessableEntity, Message: "Invalid input.", Data: data}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: http.StatusNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Code: http.StatusConflict, Message: msg}
}

func TokenInvalid() *Error {
	return &Error{Kind: KindTokenInvalid, Code: http.StatusBadRequest, Message: "Token is invalid or has expired!"}
}

func PasswordMismatch() *Error {
	return &Error{Kind: KindMismatch, Message: "Password does NOT match!"}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: http.StatusInternalServerError, Message: msg, Err: err}
}

// KindOf возвращает вид ошибки; для чужих ошибок - KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf возвращает код ошибки; для чужих ошибок - 500.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}
