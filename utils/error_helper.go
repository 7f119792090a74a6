package utils

import (
	"github.com/pkg/errors"
)

// ErrorHelper 작업 이름을 붙여 일관된 에러 메시지를 만듭니다
type ErrorHelper struct {
	operation string
}

// NewErrorHelper 새로운 ErrorHelper를 생성합니다
func NewErrorHelper(operation string) *ErrorHelper {
	return &ErrorHelper{
		operation: operation,
	}
}

// WrapError 기존 에러에 컨텍스트를 추가하여 래핑합니다
func (e *ErrorHelper) WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	if message != "" {
		return errors.Wrapf(err, "[%s] %s", e.operation, message)
	}
	return errors.Wrapf(err, "[%s]", e.operation)
}

// LogError 에러를 로그에 출력합니다
func (e *ErrorHelper) LogError(err error, context string) {
	if err == nil {
		return
	}

	if context != "" {
		Error("%s - %s: %v", e.operation, context, err)
	} else {
		Error("%s: %v", e.operation, err)
	}
}
