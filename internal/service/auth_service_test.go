package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/carebridge/carebridge-api/internal/config"
	"github.com/carebridge/carebridge-api/internal/domain"
	"github.com/carebridge/carebridge-api/pkg/auth"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User

	createCalls  int
	lastPassword string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) add(u *domain.User) *domain.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.byEmail[u.Email] = u
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.createCalls++
	f.add(u)
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (f *fakeUserRepo) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	f.lastPassword = hash
	return nil
}

func newTestAuthService(repo *fakeUserRepo) *AuthService {
	mgr := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-for-auth-service-tests",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "carebridge-test",
	})
	return NewAuthService(repo, mgr, zap.NewNop())
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(&domain.User{
		Email:        "doc@clinic.example",
		PasswordHash: hashOf(t, "correct horse battery"),
		Role:         domain.RoleDoctor,
		IsActive:     true,
	})
	svc := newTestAuthService(repo)

	pair, err := svc.Login(context.Background(), "doc@clinic.example", "correct horse battery", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	if _, err := svc.Login(context.Background(), "doc@clinic.example", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@clinic.example", "whatever", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
}

func TestLoginBlockedAccounts(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(&domain.User{
		Email:        "inactive@clinic.example",
		PasswordHash: hashOf(t, "correct horse battery"),
		IsActive:     false,
	})
	lockedUntil := time.Now().Add(10 * time.Minute)
	repo.add(&domain.User{
		Email:        "locked@clinic.example",
		PasswordHash: hashOf(t, "correct horse battery"),
		IsActive:     true,
		LockedUntil:  &lockedUntil,
	})
	svc := newTestAuthService(repo)

	if _, err := svc.Login(context.Background(), "inactive@clinic.example", "correct horse battery", ""); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("inactive: got %v", err)
	}
	if _, err := svc.Login(context.Background(), "locked@clinic.example", "correct horse battery", ""); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locked: got %v", err)
	}
}

func TestRegisterUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	patientID := uuid.New()
	user, err := svc.RegisterUser(context.Background(), &RegisterUserCommand{
		Email:     "  Ada.Okafor@Clinic.Example ",
		Password:  "a long enough password",
		FirstName: "Ada",
		LastName:  "Okafor",
		Role:      domain.RolePatient,
		PatientID: &patientID,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if user.Email != "ada.okafor@clinic.example" {
		t.Fatalf("email should be normalized, got %q", user.Email)
	}
	if user.PasswordHash == "a long enough password" {
		t.Fatal("password stored in plaintext")
	}
	if !strings.HasPrefix(user.PasswordHash, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", user.PasswordHash)
	}
	if !user.IsActive {
		t.Fatal("new accounts should be active")
	}
	if user.PatientID == nil || *user.PatientID != patientID {
		t.Fatal("patient link lost")
	}
}

func TestRegisterUserValidation(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	_, err := svc.RegisterUser(context.Background(), &RegisterUserCommand{
		Email:    "x@clinic.example",
		Password: "short",
		Role:     domain.Role("superuser"),
	})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Fatalf("expected no insert, got %d", repo.createCalls)
	}
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(&domain.User{Email: "taken@clinic.example"})
	svc := newTestAuthService(repo)

	_, err := svc.RegisterUser(context.Background(), &RegisterUserCommand{
		Email:     "Taken@clinic.example",
		Password:  "a long enough password",
		FirstName: "A",
		LastName:  "B",
		Role:      domain.RoleDoctor,
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newFakeUserRepo()
	u := repo.add(&domain.User{
		Email:        "doc@clinic.example",
		PasswordHash: hashOf(t, "old password okay"),
		IsActive:     true,
	})
	svc := newTestAuthService(repo)

	if err := svc.ChangePassword(context.Background(), u.ID, "nope", "a long enough password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: got %v", err)
	}

	if err := svc.ChangePassword(context.Background(), u.ID, "old password okay", "short"); err == nil {
		t.Fatal("weak password accepted")
	}

	if err := svc.ChangePassword(context.Background(), u.ID, "old password okay", "a long enough password"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if repo.lastPassword == "" || repo.lastPassword == "a long enough password" {
		t.Fatal("expected a new hash to be persisted")
	}
}
