package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code      string `json:"code"`                 // 錯誤代碼
	Message   string `json:"message"`              // 錯誤信息
	Details   string `json:"details,omitempty"`    // 詳細信息（僅在開發模式顯示）
	RequestID string `json:"request_id,omitempty"` // 請求 ID
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比較，讓包裝後的預定義錯誤仍可用 errors.Is 判斷
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap 以預定義錯誤為模板包裝原始錯誤
func (e *CustomError) Wrap(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// WithMessage 以預定義錯誤為模板替換訊息
func (e *CustomError) WithMessage(message string) *CustomError {
	return NewError(e.Code, message, e.Status, e.Err)
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	Field   string
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.message
	}
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

// NewFieldError 創建指定欄位的驗證錯誤
func NewFieldError(field, message string) error {
	return &ValidationError{Field: field, message: message}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeForbidden       = "FORBIDDEN"         // 403
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 業務錯誤
	ErrCodeInvalidBarcode       = "INVALID_BARCODE"
	ErrCodeUnsupportedUnit      = "UNSUPPORTED_UNIT"
	ErrCodeUnitCategoryMismatch = "UNIT_CATEGORY_MISMATCH"
	ErrCodeInvalidServings      = "INVALID_SERVINGS"
	ErrCodeNonPositiveInput     = "NON_POSITIVE_INPUT"

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "未授權的訪問", http.StatusUnauthorized, nil)
	ErrForbidden       = NewError(ErrCodeForbidden, "禁止訪問", http.StatusForbidden, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrConflict        = NewError(ErrCodeConflict, "資源衝突", http.StatusConflict, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrInvalidBarcode       = NewError(ErrCodeInvalidBarcode, "無效的條碼", http.StatusBadRequest, nil)
	ErrUnsupportedUnit      = NewError(ErrCodeUnsupportedUnit, "不支援的單位", http.StatusBadRequest, nil)
	ErrUnitCategoryMismatch = NewError(ErrCodeUnitCategoryMismatch, "單位類別不一致", http.StatusUnprocessableEntity, nil)
	ErrInvalidServings      = NewError(ErrCodeInvalidServings, "份數必須至少為 1", http.StatusBadRequest, nil)
	ErrNonPositiveInput     = NewError(ErrCodeNonPositiveInput, "數量與價格必須大於 0", http.StatusBadRequest, nil)
)

// AsCustomError 取出錯誤鏈中的 CustomError；驗證錯誤轉為 400
func AsCustomError(err error) *CustomError {
	if err == nil {
		return nil
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	if IsValidationError(err) {
		return ErrInvalidRequest.WithMessage(err.Error())
	}
	return ErrInternalError.Wrap(err)
}
