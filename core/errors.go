package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Scorer 错误：NOT_APPLICABLE（冷启动、数据不足）
//   - Profile 错误：STALE_DATA（超过新鲜度窗口）
//   - Learning 错误：VALIDATION_FAILED（候选快照校验不通过）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "NOT_APPLICABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "scorer", "learning"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound         = "NOT_FOUND"         // 资源不存在
	ErrorCodeNotSupported     = "NOT_SUPPORTED"     // 操作不支持
	ErrorCodeNotApplicable    = "NOT_APPLICABLE"    // 打分器对该实体不适用（冷启动/数据不足）
	ErrorCodeStaleData        = "STALE_DATA"        // 数据超过新鲜度窗口
	ErrorCodeInvalidInput     = "INVALID_INPUT"     // 输入无效
	ErrorCodeValidationFailed = "VALIDATION_FAILED" // 候选快照校验不通过
	ErrorCodeUnavailable      = "UNAVAILABLE"       // 服务不可用
	ErrorCodeInternalError    = "INTERNAL_ERROR"    // 内部错误
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleProfile  = "profile"  // 画像模块
	ModuleScorer   = "scorer"   // 打分模块
	ModuleLearning = "learning" // 持续学习模块
	ModuleEngine   = "engine"   // 编排模块
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotApplicable 检查错误是否为 NOT_APPLICABLE
func IsNotApplicable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotApplicable
	}
	return false
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidInput
	}
	return false
}

// IsValidationFailed 检查错误是否为 VALIDATION_FAILED
func IsValidationFailed(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeValidationFailed
	}
	return false
}
