package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

type RegisterInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type UserService struct {
	deps   Deps
	tokens *utils.TokenIssuer
	log    logrus.FieldLogger
}

func NewUserService(deps Deps, tokens *utils.TokenIssuer) *UserService {
	deps = deps.withDefaults()
	return &UserService{deps: deps, tokens: tokens, log: deps.Log.WithField("component", "users")}
}

func validRole(role string) bool {
	switch role {
	case models.RoleManager, models.RoleHost, models.RoleStaff:
		return true
	}
	return false
}

func (s *UserService) Register(ctx context.Context, in RegisterInput, actorID string) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleStaff
	}

	verr := &ValidationError{}
	if in.FullName == "" {
		verr.add("fullName", "is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		verr.add("email", "is not a valid email address")
	}
	if len(in.Password) < MinPasswordLength {
		verr.add("password", "must be at least 6 characters")
	}
	if !validRole(in.Role) {
		verr.add("role", "must be one of manager, host, staff")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		FullName: in.FullName,
		Email:    in.Email,
		Password: string(hashed),
		Role:     in.Role,
		IsActive: true,
	}

	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Reason: "user with this email already exists"}
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityAuth,
		Action:      "register",
		Description: user.FullName + " registered as " + user.Role,
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{TargetName: user.FullName},
	})
	return &user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	err := s.deps.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.deps.Now()
	if err := s.deps.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login", now).Error; err != nil {
		return nil, err
	}
	user.LastLogin = &now

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityAuth,
		Action:      "login",
		Description: user.FullName + " logged in",
		ActorID:     user.ID,
		Metadata:    models.ActivityMetadata{TargetName: user.FullName},
	})
	return &LoginResult{Token: token, User: user}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.deps.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ResolveActive loads the user behind a token and rejects accounts that
// were removed or deactivated after the token was issued.
func (s *UserService) ResolveActive(ctx context.Context, id string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

type UpdateProfileInput struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*models.User, error) {
	verr := &ValidationError{}
	if in.FullName != nil && strings.TrimSpace(*in.FullName) == "" {
		verr.add("fullName", "must not be empty")
	}
	if in.Email != nil && !strings.Contains(*in.Email, "@") {
		verr.add("email", "is not a valid email address")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	var user models.User
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "user", ID: id}
			}
			return err
		}

		updates := map[string]interface{}{}
		if in.FullName != nil {
			user.FullName = strings.TrimSpace(*in.FullName)
			updates["full_name"] = user.FullName
		}
		if in.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*in.Email))
			if email != user.Email {
				var count int64
				if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, id).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return &ConflictError{Reason: "user with this email already exists"}
				}
			}
			user.Email = email
			updates["email"] = email
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", id).Info("Profile updated")
	return &user, nil
}

// UpdatePassword replaces the password after checking the current one.
func (s *UserService) UpdatePassword(ctx context.Context, id, current, next string) error {
	verr := &ValidationError{}
	if current == "" {
		verr.add("currentPassword", "is required")
	}
	if len(next) < MinPasswordLength {
		verr.add("newPassword", "must be at least 6 characters")
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return ErrIncorrectPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.deps.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password", string(hashed)).Error; err != nil {
		return err
	}

	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityAuth,
		Action:      "update_password",
		Description: user.FullName + " changed their password",
		ActorID:     id,
		Metadata:    models.ActivityMetadata{TargetName: user.FullName},
	})
	return nil
}

// EnsureManager creates the first manager when no manager exists yet.
func (s *UserService) EnsureManager(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	err := s.deps.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleManager).
		Count(&count).Error
	if err != nil || count > 0 {
		return err
	}

	_, err = s.Register(ctx, RegisterInput{
		FullName: "Manager",
		Email:    email,
		Password: password,
		Role:     models.RoleManager,
	}, "")
	if err == nil {
		s.log.WithField("email", email).Info("Seeded initial manager account")
	}
	return err
}
