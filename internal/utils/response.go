package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/storagehub/internal/logger"
	"github.com/myysophia/storagehub/internal/storage"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// 定义状态码
const (
	CodeSuccess       = 200 // 成功
	CodeInvalidParams = 400 // 参数错误
	CodeUnauthorized  = 401 // 未授权
	CodeForbidden     = 403 // 禁止访问
	CodeNotFound      = 404 // 资源不存在
	CodeInternalError = 500 // 服务器内部错误

	// 存储相关状态码
	CodeStorageConfig    = 50101 // 存储配置错误
	CodeStorageSts       = 50102 // STS凭证错误
	CodeStorageSignature = 50103 // 签名生成失败
	CodeStorageUpload    = 50104 // 上传失败
	CodeStorageDownload  = 50105 // 下载失败
	CodeStorageDelete    = 50106 // 删除失败
	CodeStorageNetwork   = 50107 // 存储服务网络错误
	CodeConfigNotFound   = 40404 // 配置不存在
	CodeObjectNotFound   = 40405 // 对象不存在
)

// 对应的消息
var codeMsgMap = map[int]string{
	CodeSuccess:       "操作成功",
	CodeInvalidParams: "参数错误",
	CodeUnauthorized:  "未授权",
	CodeForbidden:     "禁止访问",
	CodeNotFound:      "资源不存在",
	CodeInternalError: "服务器内部错误",

	CodeStorageConfig:    "存储配置错误",
	CodeStorageSts:       "STS凭证错误",
	CodeStorageSignature: "签名生成失败",
	CodeStorageUpload:    "上传失败",
	CodeStorageDownload:  "下载失败",
	CodeStorageDelete:    "删除失败",
	CodeStorageNetwork:   "存储服务网络错误",
	CodeConfigNotFound:   "存储配置不存在",
	CodeObjectNotFound:   "对象不存在",
}

// kindCodeMap 存储错误类别到状态码的映射
var kindCodeMap = map[storage.Kind]int{
	storage.KindConfig:           CodeStorageConfig,
	storage.KindSTS:              CodeStorageSts,
	storage.KindSignature:        CodeStorageSignature,
	storage.KindUpload:           CodeStorageUpload,
	storage.KindDownload:         CodeStorageDownload,
	storage.KindDelete:           CodeStorageDelete,
	storage.KindNetwork:          CodeStorageNetwork,
	storage.KindNotFound:         CodeObjectNotFound,
	storage.KindPermissionDenied: CodeForbidden,
}

// ResponseWithData 返回成功响应，包含数据
func ResponseWithData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: codeMsgMap[CodeSuccess],
		Data:    data,
	})
}

// ResponseSuccess 返回成功响应，不包含数据
func ResponseSuccess(c *gin.Context) {
	ResponseWithData(c, nil)
}

// ResponseWithMsg 返回带自定义消息的成功响应
func ResponseWithMsg(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
	})
}

// ResponseError 返回错误响应
func ResponseError(c *gin.Context, code int, err error) {
	msg, ok := codeMsgMap[code]
	if !ok {
		msg = "未知错误"
	}
	if err != nil {
		msg = err.Error()
	}

	logger.Error("API错误响应",
		zap.Int("code", code),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("message", msg))

	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
	})
}

// ResponseStorageError 按存储错误类别返回错误响应
func ResponseStorageError(c *gin.Context, err error) {
	code := CodeInternalError
	if mapped, ok := kindCodeMap[storage.KindOf(err)]; ok {
		code = mapped
	}
	ResponseError(c, code, err)
}

// ResponseBadRequest 返回参数错误响应
func ResponseBadRequest(c *gin.Context, err error) {
	ResponseError(c, CodeInvalidParams, err)
}

// ResponseUnauthorized 返回未授权响应
func ResponseUnauthorized(c *gin.Context, err error) {
	ResponseError(c, CodeUnauthorized, err)
}

// ResponseForbidden 返回禁止访问响应
func ResponseForbidden(c *gin.Context, err error) {
	ResponseError(c, CodeForbidden, err)
}

// ResponseNotFound 返回资源不存在响应
func ResponseNotFound(c *gin.Context, err error) {
	ResponseError(c, CodeNotFound, err)
}

// ResponseInternalError 返回服务器内部错误响应
func ResponseInternalError(c *gin.Context, err error) {
	ResponseError(c, CodeInternalError, err)
}

// GetUserID 从上下文中获取用户ID
func GetUserID(c *gin.Context) uint {
	userID, exists := c.Get("userID")
	if !exists {
		return 0
	}

	switch v := userID.(type) {
	case uint:
		return v
	case float64:
		return uint(v)
	case int:
		return uint(v)
	case int64:
		return uint(v)
	default:
		return 0
	}
}

// GetUsername 从上下文中获取用户名
func GetUsername(c *gin.Context) string {
	username, exists := c.Get("username")
	if !exists {
		return ""
	}
	if s, ok := username.(string); ok {
		return s
	}
	return ""
}
