package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType 오류의 종류를 나타냅니다
type ErrorType int

const (
	TypeValidation ErrorType = iota
	TypeNotFound
	TypeDuplicate
	TypePermission
	TypeSystem
)

func (t ErrorType) String() string {
	switch t {
	case TypeValidation:
		return "validation"
	case TypeNotFound:
		return "not_found"
	case TypeDuplicate:
		return "duplicate"
	case TypePermission:
		return "permission"
	default:
		return "system"
	}
}

// AppError 애플리케이션에서 발생하는 구조화된 오류를 표현합니다
type AppError struct {
	Type     ErrorType
	Code     string
	Message  string
	UserMsg  string
	Internal error
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// GetUserMessage 사용자에게 표시할 메시지를 반환합니다
func (e *AppError) GetUserMessage() string {
	if e.UserMsg != "" {
		return e.UserMsg
	}
	return e.Message
}

// 오류 생성 함수들

// NewValidationError 입력값 검증 오류를 생성합니다
func NewValidationError(code, message, userMsg string) *AppError {
	return &AppError{
		Type:    TypeValidation,
		Code:    code,
		Message: message,
		UserMsg: userMsg,
	}
}

// NewNotFoundError 리소스를 찾을 수 없는 오류를 생성합니다
func NewNotFoundError(code, message, userMsg string) *AppError {
	return &AppError{
		Type:    TypeNotFound,
		Code:    code,
		Message: message,
		UserMsg: userMsg,
	}
}

// NewDuplicateError 중복 리소스 오류를 생성합니다
func NewDuplicateError(code, message, userMsg string) *AppError {
	return &AppError{
		Type:    TypeDuplicate,
		Code:    code,
		Message: message,
		UserMsg: userMsg,
	}
}

// NewPermissionError 권한 관련 오류를 생성합니다
func NewPermissionError(code, message, userMsg string) *AppError {
	return &AppError{
		Type:    TypePermission,
		Code:    code,
		Message: message,
		UserMsg: userMsg,
	}
}

// NewSystemError 시스템 내부 오류를 생성합니다
func NewSystemError(code, message string, err error) *AppError {
	return &AppError{
		Type:     TypeSystem,
		Code:     code,
		Message:  message,
		UserMsg:  "Something went wrong on our side. Please try again later.",
		Internal: err,
	}
}

// AsAppError err 체인에서 AppError를 찾습니다
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType err가 주어진 종류의 AppError인지 확인합니다
func IsType(err error, t ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == t
}

// IsValidation 검증 오류인지 확인합니다
func IsValidation(err error) bool { return IsType(err, TypeValidation) }

// IsNotFound 리소스 없음 오류인지 확인합니다
func IsNotFound(err error) bool { return IsType(err, TypeNotFound) }

// IsDuplicate 중복 오류인지 확인합니다
func IsDuplicate(err error) bool { return IsType(err, TypeDuplicate) }

// IsUserFacing 사용자 입력으로 발생한 오류인지 확인합니다. 시스템 오류와 일반 error는 false입니다
func IsUserFacing(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type != TypeSystem
}
