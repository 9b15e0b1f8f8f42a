package apierrors

import (
	"errors"
	"fmt"
	"strings"
)

// 远端拒绝的分类（按状态码 / 错误码映射），调用方用 errors.Is 判断。
var (
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTransport           = errors.New("transport failure")
	ErrRemote              = errors.New("remote rejection")
)

// ErrNonceConflictPersisted 重试一次后仍然 nonce 冲突。
var ErrNonceConflictPersisted = errors.New("nonce conflict persisted after resync")

// ValidationError 本地校验失败：不会发往网络，也不会重试。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validationf 构造 ValidationError。
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation 判断错误链中是否存在本地校验错误。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NonceConflictError 服务端声明的期望 nonce，是唯一可恢复的提交错误。
type NonceConflictError struct {
	ExpectedNonce int64
	Message       string
}

func (e *NonceConflictError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "nonce conflict"
	}
	return fmt.Sprintf("%s (server expects nonce %d)", msg, e.ExpectedNonce)
}

// AsNonceConflict 取出错误链中的 nonce 冲突。
func AsNonceConflict(err error) (*NonceConflictError, bool) {
	var nc *NonceConflictError
	if errors.As(err, &nc) {
		return nc, true
	}
	return nil, false
}

// RemoteError 远端拒绝（限流、余额不足、认证失败、网络失败等），原样上抛。
type RemoteError struct {
	Status  int
	Code    string
	Message string
	Kind    error
	Cause   error // 网络层原始错误（可能是 context.DeadlineExceeded / context.Canceled）
}

func (e *RemoteError) Error() string {
	kind := e.Kind
	if kind == nil {
		kind = ErrRemote
	}
	if e.Status > 0 {
		return fmt.Sprintf("%v (http %d): %s", kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%v: %s", kind, e.Message)
}

func (e *RemoteError) Unwrap() []error {
	kind := e.Kind
	if kind == nil {
		kind = ErrRemote
	}
	if e.Cause == nil {
		return []error{kind}
	}
	return []error{kind, e.Cause}
}

// FromResponse 按错误码优先、状态码其次映射远端错误。
func FromResponse(status int, code, message string) *RemoteError {
	re := &RemoteError{Status: status, Code: code, Message: message}

	switch strings.ToUpper(code) {
	case "RATE_LIMITED", "TOO_MANY_REQUESTS":
		re.Kind = ErrRateLimited
		return re
	case "INSUFFICIENT_BALANCE", "INSUFFICIENT_FUNDS":
		re.Kind = ErrInsufficientBalance
		return re
	case "UNAUTHORIZED", "INVALID_API_KEY":
		re.Kind = ErrUnauthorized
		return re
	}

	switch status {
	case 429:
		re.Kind = ErrRateLimited
	case 401, 403:
		re.Kind = ErrUnauthorized
	case 402:
		re.Kind = ErrInsufficientBalance
	default:
		if strings.Contains(strings.ToLower(message), "insufficient") {
			re.Kind = ErrInsufficientBalance
		} else {
			re.Kind = ErrRemote
		}
	}
	return re
}

// Transport 包装网络层失败。
func Transport(err error) *RemoteError {
	return &RemoteError{Message: err.Error(), Kind: ErrTransport, Cause: err}
}

// DurabilityWarning 本地持久化失败：进程继续使用内存中的值。
type DurabilityWarning struct {
	Path string
	Op   string
	Err  error
}

func (w *DurabilityWarning) Error() string {
	return fmt.Sprintf("durability degraded: %s %s: %v (in-memory value remains authoritative)", w.Op, w.Path, w.Err)
}

func (w *DurabilityWarning) Unwrap() error { return w.Err }
