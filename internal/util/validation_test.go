package util

import (
	"testing"

	"quiz_backend/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizValidations(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidations(v))

	type input struct {
		Level  model.QuizLevel  `validate:"required,quizlevel"`
		Status model.QuizStatus `validate:"omitempty,quizstatus"`
	}

	assert.NoError(t, v.Struct(input{Level: model.LevelAdvanced}))
	assert.NoError(t, v.Struct(input{Level: model.LevelBeginner, Status: model.QuizStatusPublished}))
	assert.Error(t, v.Struct(input{Level: "expert"}))
	assert.Error(t, v.Struct(input{Level: model.LevelBeginner, Status: "archived"}))
}
