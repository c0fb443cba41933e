package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"size:10;not null;default:viewer" json:"role"`
	FullName  string    `gorm:"size:100" json:"full_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProfile struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

type LoginInfo struct {
	Token     string    `json:"token"`
	Jwt       string    `json:"jwt"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   *Profile  `json:"profile"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = UserRoleViewer
	}
	return nil
}

// DisplayName falls back to the email when no full name was given.
func (p Profile) DisplayName() string {
	return utils.FirstNonEmpty(p.FullName, p.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Actor is the signed-in profile as carried on the request context.
type Actor struct {
	Id    string
	Email string
	Role  UserRole
}

func actorFromContext(ctx context.Context) Actor {
	id, _ := utils.GetUserIdFromContext(ctx)
	email, _ := utils.GetUserEmailFromContext(ctx)
	role, _ := utils.GetUserRoleFromContext(ctx)
	return Actor{Id: id, Email: email, Role: UserRole(role)}
}

// requireAdmin guards every mutating model operation, regardless of which
// transport called it.
func requireAdmin(ctx context.Context) (Actor, error) {
	actor := actorFromContext(ctx)
	if actor.Id == "" {
		return actor, utils.ErrUnauthorized
	}
	if actor.Role != UserRoleAdmin {
		return actor, utils.ErrForbidden
	}
	return actor, nil
}

// SignUp creates a viewer profile. The very first profile becomes admin;
// afterwards sign-up must be opened with OPEN_SIGN_UP.
func SignUp(ctx context.Context, input *NewProfile) (*Profile, error) {
	ctx, span := startSpan(ctx, "models.SignUp")
	var err error
	defer func() { endSpan(span, err) }()

	input.Email = normalizeEmail(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	if err = utils.Validate(input); err != nil {
		return nil, err
	}

	var count int64
	if count, err = utils.ResourceCountWhere[Profile](ctx, "1 = 1"); err != nil {
		return nil, err
	}
	role := UserRoleViewer
	if count == 0 {
		role = UserRoleAdmin
	} else if !config.OpenSignUp() {
		err = fmt.Errorf("sign-up is closed, ask an admin for an account: %w", utils.ErrForbidden)
		return nil, err
	}

	var profile *Profile
	profile, err = createProfile(ctx, input, role)
	return profile, err
}

// CreateProfileWithRole is the operator path (CLI) and bypasses the sign-up gate.
func CreateProfileWithRole(ctx context.Context, input *NewProfile, role UserRole) (*Profile, error) {
	input.Email = normalizeEmail(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, utils.NewValidationError("role", "oneof=admin viewer")
	}
	return createProfile(ctx, input, role)
}

func createProfile(ctx context.Context, input *NewProfile, role UserRole) (*Profile, error) {
	if err := utils.ValidateUnique[Profile](ctx, "email", input.Email, ""); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", utils.ErrConflict)
		}
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	profile := Profile{
		Email:    input.Email,
		Password: string(hashed),
		Role:     role,
		FullName: input.FullName,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// SignIn checks the password and opens a new session. The role is resolved
// here once and cached with the session.
func SignIn(ctx context.Context, email string, password string) (*LoginInfo, error) {
	ctx, span := startSpan(ctx, "models.SignIn")
	var err error
	defer func() { endSpan(span, err) }()

	db := config.GetDB()
	var profile Profile
	err = db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = fmt.Errorf("invalid email or password: %w", utils.ErrUnauthorized)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// check login credentials
	if err = utils.ComparePassword(profile.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			err = fmt.Errorf("invalid email or password: %w", utils.ErrUnauthorized)
		}
		return nil, err
	}

	// generate token & response
	token := uuid.NewString()
	session := newSession(&profile, token)
	if err = storeSession(session); err != nil {
		return nil, err
	}
	var jwtToken string
	if jwtToken, err = utils.JwtGenerate(profile.ID, string(profile.Role), token); err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:     token,
		Jwt:       jwtToken,
		ExpiresAt: sessionExpiry(),
		Profile:   &profile,
	}, nil
}

// destroy current session
func SignOut(ctx context.Context) error {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return errors.New("token is required")
	}
	profileId, _ := utils.GetUserIdFromContext(ctx)
	return DestroySession(token, profileId)
}

func GetProfile(ctx context.Context, id string) (*Profile, error) {
	return utils.FetchModel[Profile](ctx, id)
}

func GetProfiles(ctx context.Context) ([]*Profile, error) {
	return utils.FetchAllModels[Profile](ctx, "full_name", "email")
}

// SetRole changes a profile's role and signs it out everywhere so the cached
// role cannot outlive the change.
func SetRole(ctx context.Context, id string, role UserRole) (*Profile, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return setRole(ctx, id, role)
}

// SetRoleAsOperator is the CLI path.
func SetRoleAsOperator(ctx context.Context, email string, role UserRole) (*Profile, error) {
	profile, err := GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return setRole(ctx, profile.ID, role)
}

func GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	db := config.GetDB()
	var profile Profile
	err := db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Actor is how operator commands act on behalf of a profile.
func (p Profile) Actor() Actor {
	return Actor{Id: p.ID, Email: p.Email, Role: p.Role}
}

func setRole(ctx context.Context, id string, role UserRole) (*Profile, error) {
	if !role.IsValid() {
		return nil, utils.NewValidationError("role", "oneof=admin viewer")
	}
	profile, err := utils.FetchModel[Profile](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(profile).Update("role", role).Error; err != nil {
		return nil, err
	}
	profile.Role = role
	if err := DestroyAllSessions(profile.ID); err != nil {
		config.LogError(config.GetLogger(), "models", "SetRole", "destroy sessions", profile.ID, err)
	}
	return profile, nil
}
