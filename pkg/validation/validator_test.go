package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() RegisterInput {
	return RegisterInput{
		Name:     "Ann Lee",
		Username: "annlee1",
		Email:    "a@x.com",
		Password: "Abcdef1!",
	}
}

func TestValidateRegisterAccepts(t *testing.T) {
	in := validInput()
	require.Nil(t, ValidateRegister(&in))
}

func TestValidateRegisterTrims(t *testing.T) {
	in := validInput()
	in.Name = "  Ann Lee  "
	in.Email = " a@x.com "

	require.Nil(t, ValidateRegister(&in))
	assert.Equal(t, "Ann Lee", in.Name)
	assert.Equal(t, "a@x.com", in.Email)
}

func TestValidateRegisterRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RegisterInput)
		field   string
		message string
	}{
		{"name too short", func(in *RegisterInput) { in.Name = "A" }, "name", "must be at least 2 characters long"},
		{"name missing", func(in *RegisterInput) { in.Name = "" }, "name", "is required"},
		{"username too short", func(in *RegisterInput) { in.Username = "ab" }, "userName", "must be at least 3 characters long"},
		{"username too long", func(in *RegisterInput) { in.Username = "abcdefghijklmnopq" }, "userName", "must be at most 16 characters long"},
		{"username not alphanumeric", func(in *RegisterInput) { in.Username = "ann-lee" }, "userName", "must contain alphanumeric characters only"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email", "must be a valid email address"},
		{"password too short", func(in *RegisterInput) { in.Password = "Ab1!" }, "password", "must be at least 8 characters long"},
		{"password no uppercase", func(in *RegisterInput) { in.Password = "abcdef1!" }, "password", "must contain at least one uppercase letter, one lowercase letter, one number and one special character"},
		{"password no digit", func(in *RegisterInput) { in.Password = "Abcdefg!" }, "password", "must contain at least one uppercase letter, one lowercase letter, one number and one special character"},
		{"password no symbol", func(in *RegisterInput) { in.Password = "Abcdefg1" }, "password", "must contain at least one uppercase letter, one lowercase letter, one number and one special character"},
		{"password forbidden symbol", func(in *RegisterInput) { in.Password = "Abcdef1#" }, "password", "must contain at least one uppercase letter, one lowercase letter, one number and one special character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			ferr := ValidateRegister(&in)
			require.NotNil(t, ferr)
			assert.Equal(t, tt.field, ferr.Field)
			assert.Equal(t, tt.message, ferr.Message)
		})
	}
}

func TestValidateRegisterReportsFirstFieldOnly(t *testing.T) {
	in := validInput()
	in.Name = ""
	in.Email = "broken"

	ferr := ValidateRegister(&in)
	require.NotNil(t, ferr)
	assert.Equal(t, "name", ferr.Field)
}
