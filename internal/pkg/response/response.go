package response

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/pkg/util"
	"Storefront/internal/service"
	"errors"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

// Success 业务码 200，HTTP 状态恒为 200
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.Response{Code: Ok, Message: "success", Data: data})
}

// Fail 业务码写在响应体里
func Fail(c *gin.Context, businessCode int, message string) {
	c.JSON(http.StatusOK, dto.Response{Code: businessCode, Message: message})
}

// Abort 中间件拒绝请求时使用
func Abort(c *gin.Context, businessCode int, message string) {
	Fail(c, businessCode, message)
	c.Abort()
}

// Error 处理错误，未登记的错误统一按系统异常返回
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, BadRequest, service.ErrParamInvalid.Error())
		return
	}

	var fieldErr *util.FieldError
	if errors.As(err, &fieldErr) {
		Fail(c, BadRequest, fieldErr.Error())
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		Fail(c, BadRequest, "字段 ["+unmarshalTypeError.Field+"] 类型错误")
		return
	}

	code, message, ok := service.CodeOf(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "unexpected error", "path", c.FullPath(), "err", err)
		Fail(c, InternalServerError, service.UnExpectedError.Error())
		return
	}
	Fail(c, code, message)
}
