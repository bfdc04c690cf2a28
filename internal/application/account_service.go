package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quillside/quillside-api/config"
	"github.com/quillside/quillside-api/internal/domain/entity"
	"github.com/quillside/quillside-api/internal/domain/repository"
	"github.com/quillside/quillside-api/pkg/auth"
	"github.com/quillside/quillside-api/pkg/helpers"
	"github.com/quillside/quillside-api/pkg/mailer"
	mailtpl "github.com/quillside/quillside-api/pkg/mailer/templates"
	"github.com/quillside/quillside-api/pkg/validation"
)

var (
	ErrUserNotFound       = errors.New("user does not exist")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrDuplicateUsername  = errors.New("username is already taken")
	ErrMalformedToken     = errors.New("malformed verification token")
	ErrExpiredToken       = errors.New("verification token expired")
	ErrInvalidToken       = errors.New("invalid verification token")
	ErrInvalidOTP         = errors.New("invalid reset code")
	ErrExpiredOTP         = errors.New("reset code expired")
)

// MailPublisher enqueues outbound mail. Delivery is fire-and-forget: publish
// failures must never fail the operation that triggered them.
type MailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AccountService orchestrates registration, login and the account-security
// flows (email verification, password change, OTP password reset) over the
// user store and the mail queue.
type AccountService struct {
	Repo      repository.UserRepository
	Tokens    *auth.TokenIssuer
	Pub       MailPublisher
	Logger    *logrus.Logger
	Cfg       *config.Config
	GCS       *storage.Client
	GCSBucket string

	// Now is the clock used for token and OTP windows; tests override it.
	Now func() time.Time
}

func NewAccountService(repo repository.UserRepository, tokens *auth.TokenIssuer, pub MailPublisher, logger *logrus.Logger, cfg *config.Config, gcs *storage.Client, gcsBucket string) *AccountService {
	return &AccountService{
		Repo:      repo,
		Tokens:    tokens,
		Pub:       pub,
		Logger:    logger,
		Cfg:       cfg,
		GCS:       gcs,
		GCSBucket: gcsBucket,
		Now:       time.Now,
	}
}

// RegisterResponse is the public slice of a freshly created account.
type RegisterResponse struct {
	Name     string `json:"name"`
	Username string `json:"userName"`
	Email    string `json:"email"`
}

// Register validates input, rejects duplicate email/username, creates the
// account unverified and kicks off the verification mail.
func (s *AccountService) Register(ctx context.Context, in validation.RegisterInput) (*RegisterResponse, error) {
	if ferr := validation.ValidateRegister(&in); ferr != nil {
		return nil, ferr
	}

	if taken, err := s.Repo.ExistsByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrDuplicateEmail
	}
	if taken, err := s.Repo.ExistsByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrDuplicateUsername
	}

	hash, err := auth.HashPassword(in.Password, s.Cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
		Password: hash,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		// the unique constraint is the backstop for a registration race
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	if err := s.armVerification(ctx, u); err != nil {
		return nil, err
	}

	return &RegisterResponse{Name: u.Name, Username: u.Username, Email: u.Email}, nil
}

// armVerification issues a fresh verification token, persists it and enqueues
// the verification mail. Any previously pending token becomes a mismatch.
func (s *AccountService) armVerification(ctx context.Context, u *entity.User) error {
	token, err := auth.GenerateVerifyToken(s.Cfg.VerifyTokenTTL)
	if err != nil {
		return err
	}
	if err := s.Repo.SetVerifyToken(ctx, u.ID, token); err != nil {
		return err
	}

	data := mailtpl.EmailData{
		Name:      u.Name,
		Email:     u.Email,
		AppName:   s.Cfg.AppName,
		VerifyURL: s.Cfg.VerifyEmailURL + "?token=" + token,
	}.WithExpiresIn(s.Cfg.VerifyTokenTTL)
	s.enqueueMail(ctx, u.Email, mailtpl.VerifyEmail, data)
	return nil
}

// enqueueMail publishes an email job; failures are logged and swallowed
// since the persisted token/OTP can always be re-sent.
func (s *AccountService) enqueueMail(ctx context.Context, to, template string, data mailtpl.EmailData) {
	if s.Pub == nil || !s.Cfg.MailSendEnabled {
		return
	}
	job := mailer.EmailJob{To: to, Template: template, Data: data.ToMap()}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("template", template).Warn("failed to enqueue email")
	}
}

// LoginResponse pairs the public profile with the session token.
type LoginResponse struct {
	User  entity.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Login authenticates by email or username. Verification state does not gate
// login.
func (s *AccountService) Login(ctx context.Context, handle, password string) (*LoginResponse, error) {
	u, err := s.Repo.GetByEmailOrUsername(ctx, strings.TrimSpace(handle))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: u.Public(), Token: token}, nil
}

// VerifyEmail consumes a pending verification token. Expiry is checked from
// the token itself before any account lookup, so an expired token is
// rejected even when it matches a stored value.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	switch auth.CheckVerifyToken(token, token, s.Now()) {
	case auth.VerifyMalformed:
		return ErrMalformedToken
	case auth.VerifyExpired:
		return ErrExpiredToken
	}

	u, err := s.Repo.GetByVerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if auth.CheckVerifyToken(token, u.EmailVerifyToken, s.Now()) != auth.VerifyValid {
		return ErrInvalidToken
	}
	// consuming the token clears it; a second validation is a mismatch
	return s.Repo.SetVerified(ctx, u.ID)
}

// ResendVerification regenerates the pending token for an authenticated user
// and resends the mail, invalidating any prior token.
func (s *AccountService) ResendVerification(ctx context.Context, userID string) error {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.armVerification(ctx, u)
}

// ChangePassword verifies the old password before persisting the new hash.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !auth.CheckPassword(u.Password, oldPassword) {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword, s.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	return s.Repo.UpdatePassword(ctx, u.ID, hash)
}

// ForgotPassword issues a reset OTP for the account and mails it.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	code, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.Repo.SetResetOTP(ctx, u.ID, code, s.Now()); err != nil {
		return err
	}

	data := mailtpl.EmailData{
		Name:    u.Name,
		Email:   u.Email,
		AppName: s.Cfg.AppName,
		Code:    code,
	}.WithExpiresIn(s.Cfg.OTPTTL)
	s.enqueueMail(ctx, u.Email, mailtpl.ResetOTP, data)
	return nil
}

// ResetPassword checks the supplied OTP against the most recently issued one
// and its issuance window, then persists the new password. The OTP is
// cleared on successful use.
func (s *AccountService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	u, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.ResetOTP == "" || otp != u.ResetOTP {
		return ErrInvalidOTP
	}
	if !auth.CheckOTP(otp, u.ResetOTP, u.ResetOTPIssuedAt, s.Now(), s.Cfg.OTPTTL) {
		return ErrExpiredOTP
	}
	hash, err := auth.HashPassword(newPassword, s.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	return s.Repo.ClearResetOTP(ctx, u.ID)
}

// UpdateProfileInput carries optional profile mutations; empty fields are
// left unchanged.
type UpdateProfileInput struct {
	Name          string
	Username      string
	Email         string
	Bio           *string
	ProfilePicURL string
}

// UpdateProfile applies profile changes. A changed email re-arms
// verification: the account drops back to unverified and a fresh
// verification mail goes out. The verified flag is computed per request from
// the stored record, never from shared state.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	emailChanged := false
	if in.Email != "" {
		email := strings.TrimSpace(in.Email)
		if email != u.Email {
			other, err := s.Repo.GetByEmail(ctx, email)
			if err == nil && other.ID != u.ID {
				return nil, ErrDuplicateEmail
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			u.Email = email
			emailChanged = true
		}
	}
	if in.Username != "" {
		username := strings.TrimSpace(in.Username)
		if username != u.Username {
			if taken, err := s.Repo.ExistsByUsername(ctx, username); err != nil {
				return nil, err
			} else if taken {
				return nil, ErrDuplicateUsername
			}
			u.Username = username
		}
	}
	if in.Name != "" {
		u.Name = strings.TrimSpace(in.Name)
	}
	if in.Bio != nil {
		u.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.ProfilePicURL != "" {
		u.ProfilePicURL = in.ProfilePicURL
	}
	if emailChanged {
		u.EmailVerified = false
	}

	if err := s.Repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	if emailChanged {
		if err := s.armVerification(ctx, u); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to re-arm verification")
		}
	}
	return u, nil
}

// GetProfile fetches the account by id.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UploadProfilePic streams an image to GCS and stores its public URL on the
// account.
func (s *AccountService) UploadProfilePic(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("gcs not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("profiles", u.ID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	u.ProfilePicURL = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return "", err
	}
	return url, nil
}
