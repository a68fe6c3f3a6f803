package service

import (
	"Storefront/internal/repository"
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid           = errors.New("参数错误")
	ErrAuthenticationRequired = errors.New("请先登录")
	ErrForbidden              = errors.New("无权访问")
	ErrUserNotFound           = errors.New("用户不存在")
	ErrUserExist              = errors.New("用户已存在")
	ErrPasswordIncorrect      = errors.New("密码错误")
	ErrAlreadyMerchant        = errors.New("已经是商家")
	ErrMerchantNotFound       = errors.New("商家不存在")
	ErrProductNotFound        = errors.New("商品不存在")
	ErrProductImagesRequired  = errors.New("至少需要上传两张图片")
	ErrFileNotSupported       = errors.New("不支持的文件类型")
	ErrInvalidRating          = errors.New("评分必须在 1 到 5 之间")
	ErrSearchUnavailable      = errors.New("搜索服务不可用")
	UnExpectedError           = errors.New("系统异常，请稍后重试")

	// 存储层校验错误
	ErrInvalidPair          = repository.ErrInvalidPair
	ErrMalformedKey         = repository.ErrMalformedKey
	ErrEmptyText            = repository.ErrEmptyText
	ErrConversationNotFound = repository.ErrConversationNotFound
)

var ErrorMap = map[error]int{
	ErrParamInvalid:           BadRequest,
	ErrAuthenticationRequired: Unauthorized,
	ErrForbidden:              Forbidden,
	ErrUserNotFound:           NotFound,
	ErrUserExist:              BadRequest,
	ErrPasswordIncorrect:      Unauthorized,
	ErrAlreadyMerchant:        BadRequest,
	ErrMerchantNotFound:       NotFound,
	ErrProductNotFound:        NotFound,
	ErrProductImagesRequired:  BadRequest,
	ErrFileNotSupported:       BadRequest,
	ErrInvalidRating:          BadRequest,
	ErrSearchUnavailable:      InternalServerError,
	ErrInvalidPair:            BadRequest,
	ErrMalformedKey:           BadRequest,
	ErrEmptyText:              BadRequest,
	ErrConversationNotFound:   NotFound,
	UnExpectedError:           InternalServerError,
}

// CodeOf 按 errors.Is 解析业务码与对外提示，包装过的错误同样生效
func CodeOf(err error) (int, string, bool) {
	if code, ok := ErrorMap[err]; ok {
		return code, err.Error(), true
	}
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return code, target.Error(), true
		}
	}
	return 0, "", false
}
