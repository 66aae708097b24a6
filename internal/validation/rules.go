package validation

import (
	"fmt"
	"regexp"

	"cp360/internal/domain/model"
)

var (
	emailRe    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	alphaRe    = regexp.MustCompile(`^[A-Za-z]+$`)
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
)

// email形式チェック。
func Email(value string) error {
	if !emailRe.MatchString(value) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// username形式チェック。英数字と . - _ のみ、記号始まりは不可、50文字まで。
func Username(value string) error {
	if len(value) > 50 {
		return fmt.Errorf("username must be <= 50 characters")
	}
	if !usernameRe.MatchString(value) {
		return fmt.Errorf("username may contain letters, numbers, '.', '-', '_' and cannot start with a special character")
	}
	return nil
}

// phone形式チェック。数字のみ8〜12桁。
func Phone(value string) error {
	if !digitsRe.MatchString(value) {
		return fmt.Errorf("phone must contain digits only")
	}
	if len(value) < 8 || len(value) > 12 {
		return fmt.Errorf("phone must be 8-12 digits")
	}
	return nil
}

// パスワードは6〜50文字。
func Password(value string) error {
	if len(value) < 6 || len(value) > 50 {
		return fmt.Errorf("password must be 6-50 characters")
	}
	return nil
}

// アルファベットのみ、50文字まで（first_name / last_name 用）。
func Alpha(fieldName string) Rule {
	return func(value string) error {
		if !alphaRe.MatchString(value) {
			return fmt.Errorf("%s must contain only letters", fieldName)
		}
		if len(value) > 50 {
			return fmt.Errorf("%s must be <= 50 characters", fieldName)
		}
		return nil
	}
}

// roleが選択肢に含まれるか。
func RoleChoice(value string) error {
	if !model.Role(value).Valid() {
		return fmt.Errorf("invalid role selection")
	}
	return nil
}
