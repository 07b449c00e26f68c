package service

import (
	"errors"
	"strings"
	"time"

	"github.com/pagecart/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("用户名或密码错误")

// UserService 负责后台账号的登录校验。
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserService returns a new UserService instance.
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb, now: time.Now}
}

// Authenticate 校验用户名与密码，成功后记录最近登录时间。
// 用户不存在与密码错误返回同一个错误。
func (s *UserService) Authenticate(username, password string) (*db.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user db.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.db.Model(&user).Update("last_login_at", &now).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return &user, nil
}
