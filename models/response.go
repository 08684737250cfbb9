package models

// 响应码定义
const (
	// 成功
	CodeSuccess = 0

	// 客户端错误 (1000-1999)
	CodeInvalidParams        = 1000 // 无效的参数
	CodeMissingParams        = 1001 // 缺少必要参数
	CodeUnauthorized         = 1002 // 未识别的用户
	CodeRoadmapNotFound      = 1003 // 路线图不存在
	CodeNoStatistics         = 1004 // 路线图没有统计数据
	CodeRecommendDomainError = 1005 // 推荐进程返回业务错误
	CodeRateLimited          = 1006 // 请求过于频繁

	// 服务端错误 (2000-2999)
	CodeServerError      = 2000 // 服务器内部错误
	CodeDatabaseError    = 2001 // 数据库错误
	CodeDatasetGenError  = 2002 // 数据集生成错误
	CodeRecommenderError = 2003 // 推荐进程调用错误
)

// 错误码对应的消息
var CodeMessages = map[int]string{
	CodeSuccess:              "success",
	CodeInvalidParams:        "invalid parameters",
	CodeMissingParams:        "missing required parameter",
	CodeUnauthorized:         "unauthenticated",
	CodeRoadmapNotFound:      "roadmap not found",
	CodeNoStatistics:         "roadmap not found or has no statistics",
	CodeRecommendDomainError: "error processing recommendation",
	CodeRateLimited:          "too many requests",
	CodeServerError:          "internal server error",
	CodeDatabaseError:        "database error",
	CodeDatasetGenError:      "dataset generation failed",
	CodeRecommenderError:     "recommender unavailable",
}

// ErrorResponse 统一错误响应
type ErrorResponse struct {
	Error string `json:"error" example:"internal server error"`
	Code  int    `json:"code" example:"2000"`
}

// DomainErrorResponse 推荐业务错误响应，附带可用标签提示
type DomainErrorResponse struct {
	Error         string   `json:"error" example:"no roadmaps found for tag: rust"`
	AvailableTags []string `json:"available_tags"`
	Code          int      `json:"code" example:"1005"`
}

// NewErrorResponse 创建错误响应，message 为空时使用错误码的默认消息
func NewErrorResponse(code int, message string) ErrorResponse {
	if message == "" {
		var exists bool
		message, exists = CodeMessages[code]
		if !exists {
			message = "unknown error"
		}
	}
	return ErrorResponse{
		Code:  code,
		Error: message,
	}
}

// NewDomainErrorResponse 创建业务错误响应，available_tags 始终输出（可能为空数组）
func NewDomainErrorResponse(message string, availableTags []string) DomainErrorResponse {
	if message == "" {
		message = CodeMessages[CodeRecommendDomainError]
	}
	if availableTags == nil {
		availableTags = []string{}
	}
	return DomainErrorResponse{
		Error:         message,
		AvailableTags: availableTags,
		Code:          CodeRecommendDomainError,
	}
}
