package api

import (
	"errors"
	"fmt"
	"strings"
)

// RejectionError is a domain-level refusal: the API answered with a status
// (403, or 400 for media uploads) and a {"detail": ...} body.
type RejectionError struct {
	Status int
	Detail string
}

func (e *RejectionError) Error() string {
	return e.Detail
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

// Rejection extracts the rejection detail from err.
func Rejection(err error) (string, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Detail, true
	}
	return "", false
}

// IsRejectedWith reports whether err is a rejection whose detail equals detail, ignoring case.
func IsRejectedWith(err error, detail string) bool {
	got, ok := Rejection(err)
	return ok && strings.EqualFold(strings.TrimSpace(got), detail)
}

// IsStatus reports whether err is a StatusError carrying code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}
