package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/ledger/internal/apperr"
)

type sample struct {
	Account  string `json:"account" validate:"required,max=8"`
	Password string `json:"password" validate:"required,min=6"`
	TagID    int64  `json:"tag_id" validate:"gt=0"`
}

func TestValidateOK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(sample{Account: "alice", Password: "secret1", TagID: 1}))
}

func TestValidateMessages(t *testing.T) {
	v := New()
	cases := []struct {
		in   sample
		want string
	}{
		{sample{Password: "secret1", TagID: 1}, "account is required"},
		{sample{Account: "alice", Password: "abc", TagID: 1}, "password must be at least 6 characters"},
		{sample{Account: "aliceinwonderland", Password: "secret1", TagID: 1}, "account must not exceed 8 characters"},
		{sample{Account: "alice", Password: "secret1"}, "tag_id must be greater than 0"},
	}
	for _, tc := range cases {
		err := v.Validate(tc.in)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, tc.want, err.Error())
	}
}
