package errors

// ========== 业务响应码 ==========

// 响应体内的业务码，HTTP状态码统一为200
const (
	CodeSuccess = 200 // 成功

	CodeInvalidParam = 400 // 参数错误
	CodeUnauthorized = 401 // 未登录或令牌无效
	CodeForbidden    = 403 // 无权访问
	CodeNotFound     = 404 // 资源不存在
	CodeServerError  = 500 // 服务器内部错误
)
