package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/devlinkgh/backend/internal/models"
	"github.com/devlinkgh/backend/internal/repository"
)

type memUserStore struct {
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: make(map[uuid.UUID]*models.User), byEmail: make(map[string]*models.User)}
}

func (s *memUserStore) Create(_ context.Context, u *models.User) error {
	if _, exists := s.byEmail[u.Email]; exists {
		// Same shape the driver surfaces for a unique violation.
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
	return nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func TestRegisterLoginValidate(t *testing.T) {
	svc := NewService(newMemUserStore(), "test-secret")
	ctx := context.Background()

	u, err := svc.Register(ctx, "ama@example.com", "hunter22", "Ama Mensah", models.RoleClient)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "hunter22" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	token, err := svc.Login(ctx, "ama@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	userID, role, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != u.ID {
		t.Errorf("subject: got %s, want %s", userID, u.ID)
	}
	if role != models.RoleClient {
		t.Errorf("role: got %q, want %q", role, models.RoleClient)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewService(newMemUserStore(), "test-secret")
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ama@example.com", "hunter22", "Ama Mensah", models.RoleClient); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := svc.Register(ctx, "ama@example.com", "different", "Impostor", models.RoleDeveloper)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegister_RejectsAdminRole(t *testing.T) {
	svc := NewService(newMemUserStore(), "test-secret")

	// Admins are provisioned out of band, never via public signup.
	_, err := svc.Register(context.Background(), "boss@example.com", "hunter22", "Boss", models.RoleAdmin)
	if err == nil {
		t.Fatal("expected registration with admin role to fail")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := NewService(newMemUserStore(), "test-secret")
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ama@example.com", "hunter22", "Ama Mensah", models.RoleClient); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, "ama@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	ctx := context.Background()
	store := newMemUserStore()

	issuer := NewService(store, "secret-a")
	verifier := NewService(store, "secret-b")

	if _, err := issuer.Register(ctx, "ama@example.com", "hunter22", "Ama Mensah", models.RoleClient); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := issuer.Login(ctx, "ama@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, _, err := verifier.ValidateToken(ctx, token); err == nil {
		t.Error("token signed with another secret must not validate")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewService(newMemUserStore(), "test-secret")
	if _, _, err := svc.ValidateToken(context.Background(), "not.a.jwt"); err == nil {
		t.Error("garbage token must not validate")
	}
}
