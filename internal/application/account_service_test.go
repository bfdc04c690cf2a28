package application

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillside/quillside-api/config"
	"github.com/quillside/quillside-api/internal/domain/entity"
	"github.com/quillside/quillside-api/internal/domain/repository"
	"github.com/quillside/quillside-api/pkg/auth"
	"github.com/quillside/quillside-api/pkg/mailer"
	"github.com/quillside/quillside-api/pkg/validation"
)

// memUserRepo is an in-memory UserRepository with the same uniqueness
// semantics as the Postgres implementation.
type memUserRepo struct {
	mu     sync.Mutex
	seq    int
	users  map[string]*entity.User
	failOn map[string]error // method name -> forced error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*entity.User{}, failOn: map[string]error{}}
}

func (r *memUserRepo) clone(u *entity.User) *entity.User {
	c := *u
	return &c
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOn["Create"]; err != nil {
		return err
	}
	for _, e := range r.users {
		if e.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
		if e.Username == u.Username {
			return repository.ErrDuplicateUsername
		}
	}
	r.seq++
	u.ID = "u" + strconv.Itoa(r.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = r.clone(u)
	return nil
}

func (r *memUserRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	for _, u := range r.users {
		if match(u) {
			return r.clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.clone(u), nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *entity.User) bool { return u.Email == email })
}

func (r *memUserRepo) GetByEmailOrUsername(_ context.Context, handle string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *entity.User) bool { return u.Email == handle || u.Username == handle })
}

func (r *memUserRepo) GetByVerifyToken(_ context.Context, token string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *entity.User) bool { return u.EmailVerifyToken != "" && u.EmailVerifyToken == token })
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.find(func(u *entity.User) bool { return u.Email == email })
	return err == nil, nil
}

func (r *memUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.find(func(u *entity.User) bool { return u.Username == username })
	return err == nil, nil
}

func (r *memUserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	r.users[u.ID] = r.clone(u)
	return nil
}

func (r *memUserRepo) mutate(id string, fn func(*entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	return r.mutate(id, func(u *entity.User) { u.Password = hash })
}

func (r *memUserRepo) SetVerifyToken(_ context.Context, id, token string) error {
	return r.mutate(id, func(u *entity.User) { u.EmailVerifyToken = token })
}

func (r *memUserRepo) SetVerified(_ context.Context, id string) error {
	return r.mutate(id, func(u *entity.User) {
		u.EmailVerified = true
		u.EmailVerifyToken = ""
	})
}

func (r *memUserRepo) SetResetOTP(_ context.Context, id, code string, issuedAt time.Time) error {
	return r.mutate(id, func(u *entity.User) {
		u.ResetOTP = code
		u.ResetOTPIssuedAt = issuedAt
	})
}

func (r *memUserRepo) ClearResetOTP(_ context.Context, id string) error {
	return r.mutate(id, func(u *entity.User) {
		u.ResetOTP = ""
		u.ResetOTPIssuedAt = time.Time{}
	})
}

var _ repository.UserRepository = (*memUserRepo)(nil)

// memPublisher records enqueued email jobs.
type memPublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (p *memPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if job, ok := body.(mailer.EmailJob); ok {
		p.jobs = append(p.jobs, job)
	}
	return nil
}

func (p *memPublisher) last(t *testing.T) mailer.EmailJob {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.jobs)
	return p.jobs[len(p.jobs)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:         "quillside-test",
		BcryptCost:      4, // keep hashing fast in tests
		VerifyTokenTTL:  30 * time.Minute,
		OTPTTL:          5 * time.Minute,
		VerifyEmailURL:  "http://localhost:8000/verify-email",
		MailSendEnabled: true,
	}
}

func newTestService() (*AccountService, *memUserRepo, *memPublisher) {
	repo := newMemUserRepo()
	pub := &memPublisher{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := NewAccountService(repo, auth.NewTokenIssuer("test-secret", 24*time.Hour), pub, logger, testConfig(), nil, "")
	return svc, repo, pub
}

func annLee() validation.RegisterInput {
	return validation.RegisterInput{
		Name:     "Ann Lee",
		Username: "annlee1",
		Email:    "a@x.com",
		Password: "Abcdef1!",
	}
}

func mustRegister(t *testing.T, svc *AccountService) *RegisterResponse {
	t.Helper()
	out, err := svc.Register(context.Background(), annLee())
	require.NoError(t, err)
	return out
}

func TestRegister(t *testing.T) {
	svc, repo, pub := newTestService()

	out := mustRegister(t, svc)
	assert.Equal(t, "Ann Lee", out.Name)
	assert.Equal(t, "annlee1", out.Username)
	assert.Equal(t, "a@x.com", out.Email)

	u, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Abcdef1!", u.Password)
	assert.True(t, auth.CheckPassword(u.Password, "Abcdef1!"))
	assert.False(t, u.EmailVerified)
	assert.NotEmpty(t, u.EmailVerifyToken)

	job := pub.last(t)
	assert.Equal(t, "a@x.com", job.To)
	assert.Equal(t, "verify_email", job.Template)
	assert.Contains(t, job.Data["VerifyURL"], u.EmailVerifyToken)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc, repo, _ := newTestService()

	in := annLee()
	in.Password = "weak"
	_, err := svc.Register(context.Background(), in)

	var ferr *validation.FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "password", ferr.Field)

	_, err = repo.GetByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, repo, _ := newTestService()
	mustRegister(t, svc)

	in := annLee()
	in.Username = "otheruser"
	_, err := svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	in = annLee()
	in.Email = "other@x.com"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	repo.mu.Lock()
	assert.Len(t, repo.users, 1)
	repo.mu.Unlock()
}

func TestRegisterMapsUniqueViolationBackstop(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failOn["Create"] = repository.ErrDuplicateEmail

	_, err := svc.Register(context.Background(), annLee())
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	svc, repo, pub := newTestService()
	pub.err = errors.New("broker down")

	mustRegister(t, svc)

	u, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, u.EmailVerifyToken)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()

	// by email
	res, err := svc.Login(ctx, "a@x.com", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, "annlee1", res.User.Username)

	uid, err := svc.Tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, uid)

	// by username
	res, err = svc.Login(ctx, "annlee1", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", res.User.Email)

	// login does not require a verified email
	assert.False(t, res.User.EmailVerified)
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()

	_, err := svc.Login(ctx, "nobody@x.com", "Abcdef1!")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Login(ctx, "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyEmailConsumesTokenOnce(t *testing.T) {
	svc, repo, _ := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()
	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	token := u.EmailVerifyToken

	require.NoError(t, svc.VerifyEmail(ctx, token))

	u, err = repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.Empty(t, u.EmailVerifyToken)

	// second attempt: the token was cleared, nothing holds it anymore
	assert.ErrorIs(t, svc.VerifyEmail(ctx, token), ErrInvalidToken)
}

func TestVerifyEmailRejectsExpiredEvenWhenStored(t *testing.T) {
	svc, repo, _ := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()
	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	token := u.EmailVerifyToken

	svc.Now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	assert.ErrorIs(t, svc.VerifyEmail(ctx, token), ErrExpiredToken)

	u, err = repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, u.EmailVerified)
	assert.Equal(t, token, u.EmailVerifyToken) // state unchanged
}

func TestVerifyEmailRejectsMalformed(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	assert.ErrorIs(t, svc.VerifyEmail(ctx, "no-colon-here"), ErrMalformedToken)
	assert.ErrorIs(t, svc.VerifyEmail(ctx, "a:b:c"), ErrMalformedToken)
	assert.ErrorIs(t, svc.VerifyEmail(ctx, "abcd:notanumber"), ErrMalformedToken)
}

func TestResendVerificationInvalidatesPriorToken(t *testing.T) {
	svc, repo, pub := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()
	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	oldToken := u.EmailVerifyToken

	require.NoError(t, svc.ResendVerification(ctx, u.ID))

	u, err = repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, u.EmailVerifyToken)

	job := pub.last(t)
	assert.Equal(t, "verify_email", job.Template)

	assert.ErrorIs(t, svc.VerifyEmail(ctx, oldToken), ErrInvalidToken)
	require.NoError(t, svc.VerifyEmail(ctx, u.EmailVerifyToken))
}

func TestChangePassword(t *testing.T) {
	svc, repo, _ := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()
	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong", "Newpass1!"), ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "Abcdef1!", "Newpass1!"))

	_, err = svc.Login(ctx, "a@x.com", "Abcdef1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "a@x.com", "Newpass1!")
	assert.NoError(t, err)
}

func TestForgotPassword(t *testing.T) {
	svc, repo, pub := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()

	assert.ErrorIs(t, svc.ForgotPassword(ctx, "nobody@x.com"), ErrUserNotFound)

	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com"))

	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, u.ResetOTP, 6)
	n, err := strconv.Atoi(u.ResetOTP)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 100000)
	assert.False(t, u.ResetOTPIssuedAt.IsZero())

	job := pub.last(t)
	assert.Equal(t, "reset_otp", job.Template)
	assert.Equal(t, u.ResetOTP, job.Data["Code"])
}

func TestResetPassword(t *testing.T) {
	svc, repo, _ := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()
	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com"))

	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	code := u.ResetOTP

	assert.ErrorIs(t, svc.ResetPassword(ctx, "a@x.com", "000000", "Newpass1!"), ErrInvalidOTP)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "nobody@x.com", code, "Newpass1!"), ErrUserNotFound)

	require.NoError(t, svc.ResetPassword(ctx, "a@x.com", code, "Newpass1!"))

	_, err = svc.Login(ctx, "a@x.com", "Newpass1!")
	require.NoError(t, err)

	// cleared on use: same code cannot be replayed
	assert.ErrorIs(t, svc.ResetPassword(ctx, "a@x.com", code, "Another1!"), ErrInvalidOTP)
}

func TestResetPasswordRejectsExpiredOTP(t *testing.T) {
	svc, repo, _ := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()
	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com"))

	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	svc.Now = func() time.Time { return u.ResetOTPIssuedAt.Add(5*time.Minute + time.Second) }

	assert.ErrorIs(t, svc.ResetPassword(ctx, "a@x.com", u.ResetOTP, "Newpass1!"), ErrExpiredOTP)
}

func TestUpdateProfileEmailChangeRearmsVerification(t *testing.T) {
	svc, repo, pub := newTestService()
	mustRegister(t, svc)

	ctx := context.Background()
	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, svc.VerifyEmail(ctx, u.EmailVerifyToken))

	// unchanged email keeps the verified flag
	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: "Ann B Lee", Email: "a@x.com"})
	require.NoError(t, err)
	assert.True(t, updated.EmailVerified)
	assert.Equal(t, "Ann B Lee", updated.Name)

	// changed email drops verification and issues a fresh token
	updated, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: "new@x.com"})
	require.NoError(t, err)
	assert.False(t, updated.EmailVerified)

	stored, err := repo.GetByEmail(ctx, "new@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.EmailVerifyToken)

	job := pub.last(t)
	assert.Equal(t, "verify_email", job.Template)
	assert.Equal(t, "new@x.com", job.To)
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	svc, repo, _ := newTestService()
	mustRegister(t, svc)

	other := &entity.User{Email: "b@x.com", Username: "benlee1", Name: "Ben Lee", Password: "x"}
	require.NoError(t, repo.Create(context.Background(), other))

	u, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(context.Background(), u.ID, UpdateProfileInput{Email: "b@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.UpdateProfile(context.Background(), u.ID, UpdateProfileInput{Username: "benlee1"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}
