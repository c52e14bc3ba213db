package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误码，同时决定 HTTP 状态码
const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodeConflict         = 1004
	CodeServerError      = 5000
)

type codeInfo struct {
	status  int
	message string
}

var codes = map[int]codeInfo{
	CodeSuccess:          {http.StatusOK, "success"},
	CodeParamError:       {http.StatusBadRequest, "参数错误"},
	CodeAuthFailed:       {http.StatusUnauthorized, "认证失败"},
	CodePermissionDenied: {http.StatusForbidden, "权限不足"},
	CodeResourceNotFound: {http.StatusNotFound, "资源不存在"},
	CodeConflict:         {http.StatusConflict, "状态冲突"},
	CodeServerError:      {http.StatusInternalServerError, "服务器内部错误"},
}

// Response 管理接口的统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 账本分页
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

// HTTPStatus 未知错误码按 500 处理
func HTTPStatus(code int) int {
	if info, ok := codes[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

func build(code int, message string, data interface{}) (int, Response) {
	if message == "" {
		message = codes[code].message
	}
	return HTTPStatus(code), Response{Code: code, Message: message, Data: data}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(build(CodeSuccess, "", data))
}

func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	Success(c, PageData{Total: total, Page: page, PageSize: pageSize, Items: items})
}

// Error message 为空时使用错误码的默认消息
func Error(c *gin.Context, code int, message string) {
	c.JSON(build(code, message, nil))
}

// Abort 中间件中使用，终止后续 handler
func Abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(build(code, message, nil))
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// ConflictError 交易号已被他人认领、并发修改等
func ConflictError(c *gin.Context, message string) {
	Error(c, CodeConflict, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
