package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/repository"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 50
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(repository.PhonePattern)
)

func checkEmail(fe common.FieldErrors, email string) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		fe.Add("email", "email is required")
	case !emailPattern.MatchString(email):
		fe.Add("email", "email must be a valid email address")
	}
}

func checkPassword(fe common.FieldErrors, password string) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		fe.Add("password", "password must be at least 8 characters long")
		return
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		fe.Add("password", "password must contain uppercase, lowercase and a number")
	}
}

func checkName(fe common.FieldErrors, field, name string) {
	if utf8.RuneCountInString(strings.TrimSpace(name)) > MaxNameLength {
		fe.Add(field, field+" must be at most 50 characters long")
	}
}

func checkPhone(fe common.FieldErrors, phone string) {
	if phone != "" && !phonePattern.MatchString(phone) {
		fe.Add("phoneNumber", "phoneNumber must be a valid phone number")
	}
}

func checkRole(fe common.FieldErrors, role string) {
	if role != "" && role != model.RoleUser && role != model.RoleAdmin {
		fe.Add("role", "role must be one of: user, admin")
	}
}

func checkTitle(fe common.FieldErrors, title string) {
	if utf8.RuneCountInString(title) < model.MinTitleLength {
		fe.Add("title", "title must be at least 6 characters long")
	}
}
