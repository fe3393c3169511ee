package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redeemBody struct {
	KidID    int64 `json:"kidId" validate:"required" msg:"kidId and rewardId are required"`
	RewardID int64 `json:"rewardId" validate:"required" msg:"kidId and rewardId are required"`
}

type bonusBody struct {
	KidID  int64  `json:"kidId" validate:"required"`
	Amount int    `json:"amount" validate:"min=1,max=100"`
	Status string `json:"status" validate:"omitempty,oneof=approved denied fulfilled"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Struct(redeemBody{KidID: 1, RewardID: 2}))
	})

	t.Run("custom message", func(t *testing.T) {
		err := Struct(redeemBody{KidID: 1})
		require.Error(t, err)
		var ve ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "rewardId", ve.Field)
		assert.Equal(t, "kidId and rewardId are required", ve.Message)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("generated messages", func(t *testing.T) {
		tests := []struct {
			body bonusBody
			want string
		}{
			{bonusBody{Amount: 5}, "kidId is required"},
			{bonusBody{KidID: 1, Amount: 0}, "amount must be at least 1"},
			{bonusBody{KidID: 1, Amount: 101}, "amount must be at most 100"},
			{bonusBody{KidID: 1, Amount: 5, Status: "maybe"}, "status must be one of: approved denied fulfilled"},
		}
		for _, tt := range tests {
			err := Struct(&tt.body)
			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.want, ve.Message)
		}
	})
}

func TestValidatePIN(t *testing.T) {
	assert.NoError(t, ValidatePIN("1234"))
	assert.NoError(t, ValidatePIN("123456"))
	assert.Error(t, ValidatePIN("123"))
	assert.Error(t, ValidatePIN("12a4"))
	assert.Error(t, ValidatePIN(""))
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("date", "2026-10-13"))
	assert.Error(t, ValidateDate("date", "13/10/2026"))
}
