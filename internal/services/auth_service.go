package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"totembo/internal/domain"
	"totembo/internal/repos"
	"totembo/internal/validate"
)

type AuthService struct {
	Users *repos.UserRepo
}

// Register creates a USER account. Field problems come back as a *ValidationError.
func (s *AuthService) Register(username, email, password, confirm string) (*domain.User, error) {
	var verr ValidationError
	username, ok := validate.Username(username)
	if !ok {
		verr.add("Имя пользователя: от 3 до 150 символов, буквы, цифры и @/./+/-/_")
	}
	email, ok = validate.Email(email)
	if !ok {
		verr.add("Введите правильный адрес электронной почты.")
	}
	if !validate.Password(password) {
		verr.add("Пароль: 8-20 символов, строчные и заглавные буквы, цифра и спецсимвол.")
	}
	if password != confirm {
		verr.add("Введенные пароли не совпадают.")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := s.Users.Create(username, email, string(hash), domain.RoleUser)
	if errors.Is(err, repos.ErrDuplicate) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, Username: username, Email: email, Hash: string(hash), Role: domain.RoleUser}, nil
}

func (s *AuthService) Login(sid, username, password string) (*domain.User, error) {
	u, err := s.Users.ByUsername(username)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}
