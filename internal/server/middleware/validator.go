package middleware

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/session"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()

	commonTags := []string{"json", "form", "param", "query", "header"}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range commonTags {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})

	validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return session.ValidateUsername(fl.Field().String()) == nil
	})
	validate.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return models.ObjectID(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("likestate", func(fl validator.FieldLevel) bool {
		_, err := models.ParseLikeState(fl.Field().String())
		return err == nil
	})

	return &Validator{validate: validate}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}
