package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func Validation(message string) *AppError {
	return New(ErrValidation, message, nil)
}

func NotFound(message string) *AppError {
	return New(ErrNotFound, message, nil)
}

func Gone(message string) *AppError {
	return New(ErrGone, message, nil)
}

func Upstream(message string, err error) *AppError {
	return New(ErrUpstream, message, err)
}

func Configuration(message string) *AppError {
	return New(ErrConfiguration, message, nil)
}

var (
	ErrConfigLoad      = "CONFIG_LOAD_ERROR"
	ErrDatabaseConnect = "DATABASE_CONNECT_ERROR"
	ErrRPConnect       = "RPC_CONNECT_ERROR"
	ErrContractCall    = "CONTRACT_CALL_ERROR"
	ErrValidation      = "VALIDATION_ERROR"
	ErrNotFound        = "NOT_FOUND"
	ErrGone            = "GONE"
	ErrUpstream        = "UPSTREAM_ERROR"
	ErrConfiguration   = "CONFIGURATION_ERROR"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrStorage         = "STORAGE_ERROR"
)

// As 从错误链中取出 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode 判断错误链中是否含有指定错误码
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// HTTPStatus 将错误码映射为HTTP状态码，未知错误一律按500处理
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrGone:
		return http.StatusGone
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message 返回适合直接返回给调用方的错误描述
func Message(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// Details 返回被包装的底层错误信息，便于排查
func Details(err error) string {
	if appErr, ok := As(err); ok {
		if appErr.Err != nil {
			return appErr.Err.Error()
		}
		return ""
	}
	return err.Error()
}
