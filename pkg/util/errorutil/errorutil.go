package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Reason codes surfaced to clients. Kept identical to the legacy API so
// existing consumers keep matching on them.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeTicketNotFound    = "CHAMADO_NAO_ENCONTRADO"
	CodeScheduleNotFound  = "AGENDAMENTO_NAO_ENCONTRADO"
	CodeStateConflict     = "STATE_CONFLICT"
	CodePermissionDenied  = "PERMISSAO_NEGADA"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidStatus     = "STATUS_INVALIDO"
	CodeChecklistRequired = "CHECKLIST_OBRIGATORIO"
	CodeCauseRequired     = "CAUSA_OBRIGATORIA"
	CodeSolutionRequired  = "SOLUCAO_OBRIGATORIA"
	CodeUnknownUser       = "USUARIO_NAO_CADASTRADO"
	CodeUnknownMachine    = "MAQUINA_NAO_ENCONTRADA"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError flags a payload that fails a domain rule. The code is
// the machine-readable reason consumers branch on.
func NewValidationError(code, message string, details map[string]any) error {
	if code == "" {
		code = CodeValidation
	}
	return NewDomainError(code, message, http.StatusBadRequest, details)
}

func NewNotFound(code, resource string, details map[string]any) error {
	if code == "" {
		code = CodeNotFound
	}
	return &DomainError{
		Code:       code,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewStateConflict reports a status precondition that failed under lock,
// carrying the status actually observed.
func NewStateConflict(observedStatus string) error {
	return &DomainError{
		Code:       CodeStateConflict,
		Message:    "entity is not in a status that allows this transition",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"status": observedStatus},
	}
}

func NewPermissionDenied(message string) error {
	return NewDomainError(CodePermissionDenied, message, http.StatusForbidden, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnknownUser, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound(CodeNotFound, "resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
