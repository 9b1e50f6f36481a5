package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxHobbies 单个用户最多保存的爱好数
	MaxHobbies = 50
	// MaxHobbyLength 单个爱好最大字符数
	MaxHobbyLength = 64

	tagHobbies = "hobbies"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的绑定校验器注册自定义规则，可重复调用
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation(tagHobbies, validateHobbies)
	})
}

// validateHobbies 爱好列表：允许为空（表示清空），条目数与单条长度有上限，不能包含换行
func validateHobbies(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	if field.Len() > MaxHobbies {
		return false
	}
	for i := 0; i < field.Len(); i++ {
		item := field.Index(i)
		if item.Kind() != reflect.String {
			return false
		}
		s := strings.TrimSpace(item.String())
		if utf8.RuneCountInString(s) > MaxHobbyLength || strings.ContainsAny(s, "\r\n") {
			return false
		}
	}
	return true
}

// IsHobbiesViolation 绑定错误是否来自 hobbies 规则
func IsHobbiesViolation(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() == tagHobbies {
			return true
		}
	}
	return false
}
