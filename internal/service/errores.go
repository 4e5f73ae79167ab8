package service

import (
	"errors"
	"fmt"
)

// ErrValidacion matches every error caused by the request itself rather than
// by storage. Handlers map it to a 4xx status.
var ErrValidacion = errors.New("solicitud inválida")

type validacionError struct{ msg string }

func (e *validacionError) Error() string        { return e.msg }
func (e *validacionError) Is(target error) bool { return target == ErrValidacion }

func invalido(format string, args ...any) error {
	return &validacionError{msg: fmt.Sprintf(format, args...)}
}
