package util

import (
	"quiz_backend/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidations adds the quiz specific tags to v:
// "quizlevel" and "quizstatus".
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("quizlevel", func(fl validator.FieldLevel) bool {
		return model.QuizLevel(fl.Field().String()).IsValid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("quizstatus", func(fl validator.FieldLevel) bool {
		s := model.QuizStatus(fl.Field().String())
		return s == model.QuizStatusDraft || s == model.QuizStatusPublished
	})
}

// RegisterBindingValidations installs the tags on gin's default validator.
func RegisterBindingValidations() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return RegisterValidations(v)
	}
	return nil
}
