package domain

import (
	"errors"
	"fmt"
)

// Доменные ошибки
var (
	// ErrNotFound возвращается когда ресурс не найден
	ErrNotFound = errors.New("resource not found")

	// ErrMemberNotFound возвращается когда участник не найден
	ErrMemberNotFound = fmt.Errorf("member not found: %w", ErrNotFound)

	// ErrClanNotFound возвращается когда клан не найден
	ErrClanNotFound = fmt.Errorf("clan not found: %w", ErrNotFound)

	// ErrUsernameTaken возвращается при попытке занять существующий github username
	ErrUsernameTaken = errors.New("github username already exists")

	// ErrIdempotencyConflict возвращается когда ключ идемпотентности уже использован с другим содержимым
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")

	// ErrUnauthenticated возвращается когда запрос требует сессии
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidToken возвращается когда токен сессии невалиден
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidState возвращается когда OAuth state не совпадает с cookie
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrAuthenticationFailed возвращается когда обмен кода у провайдера не удался
	ErrAuthenticationFailed = errors.New("could not authenticate with identity provider")

	// ErrAccessDenied общая ошибка отказа в доступе, см. AccessDeniedError
	ErrAccessDenied = errors.New("access denied")

	// ErrValidation общая ошибка валидации, см. ValidationError
	ErrValidation = errors.New("validation failed")
)

// DenyReason описывает причину отказа в доступе
type DenyReason string

// Причины отказа
const (
	DenyRole          DenyReason = "role"           // Роль не позволяет выполнить действие
	DenyScope         DenyReason = "scope"          // Цель вне зоны ответственности
	DenyInvalidAmount DenyReason = "invalid-amount" // Нулевая сумма или пустой список получателей
	DenyUnauthorized  DenyReason = "unauthorized"   // Пользователя нет в allow-list
)

// AccessDeniedError отказ в доступе с конкретной причиной
type AccessDeniedError struct {
	Reason DenyReason
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// Is позволяет сравнивать с ErrAccessDenied через errors.Is
func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// Deny создает AccessDeniedError с указанной причиной
func Deny(reason DenyReason) error {
	return &AccessDeniedError{Reason: reason}
}

// ValidationError ошибка валидации входных данных
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is позволяет сравнивать с ErrValidation через errors.Is
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid создает ValidationError
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ErrorCode представляет коды ошибок API
type ErrorCode string

// Коды ошибок API
const (
	CodeNotFound            ErrorCode = "NOT_FOUND"            // Ресурс не найден
	CodeUsernameTaken       ErrorCode = "USERNAME_TAKEN"       // Username уже занят
	CodeIdempotencyConflict ErrorCode = "IDEMPOTENCY_CONFLICT" // Ключ идемпотентности занят другим запросом
	CodeAccessDenied        ErrorCode = "ACCESS_DENIED"        // Недостаточно прав
	CodeValidation          ErrorCode = "VALIDATION_ERROR"     // Некорректный запрос
	CodeUnauthenticated     ErrorCode = "UNAUTHENTICATED"      // Требуется вход
	CodeInternal            ErrorCode = "INTERNAL_ERROR"       // Ошибка хранилища или внутренняя ошибка
)

// MapErrorToCode преобразует доменные ошибки в коды ошибок API
func MapErrorToCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUsernameTaken):
		return CodeUsernameTaken
	case errors.Is(err, ErrIdempotencyConflict):
		return CodeIdempotencyConflict
	case errors.Is(err, ErrAccessDenied):
		return CodeAccessDenied
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken):
		return CodeUnauthenticated
	default:
		return CodeInternal
	}
}
