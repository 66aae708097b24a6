package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("user@example.com"))
	assert.NoError(t, Email("first.last+tag@sub.example.co.jp"))

	assert.Error(t, Email("not-an-email"))
	assert.Error(t, Email("user@"))
	assert.Error(t, Email("@example.com"))
	assert.Error(t, Email("user@example"))
}

func TestUsername(t *testing.T) {
	assert.NoError(t, Username("alice"))
	assert.NoError(t, Username("alice.b-c_d9"))

	//記号始まりは不可
	assert.Error(t, Username(".alice"))
	assert.Error(t, Username("-alice"))
	assert.Error(t, Username("_alice"))

	assert.Error(t, Username("alice!"))
	assert.Error(t, Username(""))

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, Username(string(long)))
}

func TestPhone(t *testing.T) {
	assert.NoError(t, Phone("12345678"))
	assert.NoError(t, Phone("123456789012"))

	assert.Error(t, Phone("1234567"))       //短い
	assert.Error(t, Phone("1234567890123")) //長い
	assert.Error(t, Phone("12345abc"))
	assert.Error(t, Phone("+81901234567"))
}

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("secret"))

	assert.Error(t, Password("12345"))

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'x'
	}
	assert.Error(t, Password(string(long)))
}

func TestAlpha(t *testing.T) {
	rule := Alpha("First name")

	assert.NoError(t, rule("Taro"))
	assert.Error(t, rule("Taro1"))
	assert.Error(t, rule("Ta ro"))

	err := rule("123")
	assert.Contains(t, err.Error(), "First name")
}

func TestRoleChoice(t *testing.T) {
	assert.NoError(t, RoleChoice("end_user"))
	assert.NoError(t, RoleChoice("staff"))
	assert.NoError(t, RoleChoice("admin"))

	assert.Error(t, RoleChoice("superuser"))
	assert.Error(t, RoleChoice(""))
}

func TestPipeline_CollectsAllErrors(t *testing.T) {
	errs := NewPipeline().
		Add("email", "bad", Email).
		Add("phone", "abc", Phone).
		Add("password", "secret", Password).
		Run()

	assert.Len(t, errs, 2)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "phone")
	assert.NotContains(t, errs, "password")
}

func TestPipeline_FirstErrorPerFieldWins(t *testing.T) {
	first := func(string) error { return assert.AnError }
	second := func(string) error { return assert.AnError }

	errs := NewPipeline().
		Add("field", "v", first, second).
		Run()

	assert.Len(t, errs, 1)
}

func TestPipeline_AddOptionalSkipsEmpty(t *testing.T) {
	errs := NewPipeline().
		AddOptional("email", "", Email).
		Run()

	assert.Nil(t, errs)
}

func TestPipeline_NoErrorsReturnsNil(t *testing.T) {
	errs := NewPipeline().
		Add("email", "user@example.com", Email).
		Run()

	assert.Nil(t, errs)
}

func TestFieldErrors_ErrorIsStable(t *testing.T) {
	errs := FieldErrors{"b": "second", "a": "first"}
	assert.Equal(t, "a: first; b: second", errs.Error())
}
