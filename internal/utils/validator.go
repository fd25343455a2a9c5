package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/myysophia/storagehub/internal/logger"
	"github.com/myysophia/storagehub/internal/storage"
	"go.uber.org/zap"
)

// 全局验证器
var (
	validate *validator.Validate
	trans    ut.Translator
)

// InitValidator 初始化验证器
func InitValidator() {
	validate = validator.New()

	// 错误信息中使用json字段名
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	// 创建中文翻译器
	zhTrans := zh.New()
	uni := ut.New(zhTrans, zhTrans)
	trans, _ = uni.GetTranslator("zh")

	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		logger.Error("注册验证器翻译失败", zap.Error(err))
		return
	}

	registerCustomValidators()
}

// registerCustomValidators 注册自定义验证器
func registerCustomValidators() {
	_ = validate.RegisterValidation("storage_type", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case storage.TypeAliyunOSS, storage.TypeQiniu, storage.TypeTencentCOS, storage.TypeAWSS3:
			return true
		default:
			return false
		}
	})
}

// BindAndValidate 绑定并验证请求数据
func BindAndValidate(c *gin.Context, obj interface{}) error {
	var err error
	switch c.Request.Method {
	case "GET":
		err = c.ShouldBindQuery(obj)
	case "POST", "PUT", "PATCH":
		contentType := c.GetHeader("Content-Type")
		if strings.Contains(contentType, "application/json") {
			err = c.ShouldBindJSON(obj)
		} else if strings.Contains(contentType, "multipart/form-data") {
			err = c.ShouldBindWith(obj, binding.FormMultipart)
		} else {
			err = c.ShouldBind(obj)
		}
	default:
		err = c.ShouldBind(obj)
	}

	if err != nil {
		logger.Warn("请求数据绑定失败",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		return err
	}

	err = validate.Struct(obj)
	if err != nil {
		logger.Warn("数据验证失败",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))

		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errMsgs := make([]string, 0, len(validationErrors))
			for _, e := range validationErrors {
				errMsgs = append(errMsgs, e.Translate(trans))
			}
			return errors.New(strings.Join(errMsgs, "; "))
		}
		return err
	}

	return nil
}
