// Package validation はgo-playground/validatorによる構造体検証を提供する。
// 検証エラーはmodel.APIError（VALIDATION_ERROR）に変換して返す。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/flavorshare/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator はシングルトンのvalidatorインスタンスを返す。
// フィールド名はjsonタグ（なければformタグ）の名前で報告される。
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// Struct はsを検証し、失敗した場合は最初のフィールドエラーを
// 人が読めるメッセージにした*model.APIErrorを返す。
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewValidationError(err.Error())
	}
	return model.NewValidationError(translate(fieldErrs[0]))
}

// Email はメールアドレスとして妥当かを返す。
func Email(s string) bool {
	return Validator().Var(s, "required,email") == nil
}

// translate はフィールドエラーを表示用メッセージに変換する。
func translate(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "gte", "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
