package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"nutrition/internal/domain"
	"nutrition/internal/token"

	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	getByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	getByIDFn    func(ctx context.Context, id int64) (*domain.User, error)
	createFn     func(ctx context.Context, email, passwordHash string) (*domain.User, error)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, email, passwordHash)
	}
	return &domain.User{ID: 1, Email: email, PasswordHash: passwordHash, IsActive: true}, nil
}

func newIssuer() *token.Issuer {
	return token.NewIssuer("test-secret", 30*time.Minute, 7*24*time.Hour)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func TestAuthService_Register_Success(t *testing.T) {
	var stored string
	users := &mockUserRepo{
		createFn: func(_ context.Context, email, passwordHash string) (*domain.User, error) {
			if email != "alice@example.com" {
				t.Errorf("email not normalized: %q", email)
			}
			stored = passwordHash
			return &domain.User{ID: 3, Email: email, IsActive: true}, nil
		},
	}
	svc := NewAuthService(users, newIssuer())

	u, err := svc.Register(context.Background(), "  Alice@Example.COM ", "pwd123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.ID != 3 {
		t.Errorf("expected ID 3, got %d", u.ID)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte("pwd123")) != nil {
		t.Error("stored hash does not match password")
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 1, Email: email}, nil
		},
	}
	svc := NewAuthService(users, newIssuer())
	if _, err := svc.Register(context.Background(), "a@example.com", "pwd123"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, newIssuer())
	tests := []struct {
		name, email, password string
	}{
		{"no at sign", "alice", "pwd123"},
		{"empty email", "   ", "pwd123"},
		{"short password", "a@example.com", "pwd"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	password := "testpass123"
	hash := hashed(t, password)
	issuer := newIssuer()

	users := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 1, Email: "testuser@example.com", PasswordHash: hash, IsActive: true}, nil
		},
	}

	svc := NewAuthService(users, issuer)
	pair, err := svc.Login(ctx, "testuser@example.com", password)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	id, err := issuer.Parse(pair.AccessToken, token.Access)
	if err != nil || id != 1 {
		t.Fatalf("access token resolves to %d, %v", id, err)
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	hash := hashed(t, "correct-horse")
	tests := []struct {
		name     string
		user     *domain.User
		password string
		want     error
	}{
		{"unknown user", nil, "correct-horse", ErrInvalidCredentials},
		{"wrong password", &domain.User{ID: 1, PasswordHash: hash, IsActive: true}, "wrong", ErrInvalidCredentials},
		{"sso-only user", &domain.User{ID: 1, IsActive: true}, "", ErrInvalidCredentials},
		{"inactive", &domain.User{ID: 1, PasswordHash: hash}, "correct-horse", ErrInactiveUser},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := &mockUserRepo{
				getByEmailFn: func(context.Context, string) (*domain.User, error) { return tc.user, nil },
			}
			svc := NewAuthService(users, newIssuer())
			if _, err := svc.Login(context.Background(), "x@example.com", tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthService_RefreshAndAuthenticate(t *testing.T) {
	issuer := newIssuer()
	users := &mockUserRepo{
		getByIDFn: func(_ context.Context, id int64) (*domain.User, error) {
			return &domain.User{ID: id, Email: "a@example.com", IsActive: true}, nil
		},
	}
	svc := NewAuthService(users, issuer)
	ctx := context.Background()

	pair, err := issuer.IssuePair(9)
	if err != nil {
		t.Fatal(err)
	}

	u, err := svc.Authenticate(ctx, pair.AccessToken)
	if err != nil || u.ID != 9 {
		t.Fatalf("Authenticate = %v, %v", u, err)
	}
	if _, err := svc.Authenticate(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("refresh token accepted as access: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.AccessToken == "" {
		t.Error("expected new access token")
	}
	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("access token accepted as refresh: %v", err)
	}
}

func TestAuthService_Authenticate_UserGone(t *testing.T) {
	issuer := newIssuer()
	svc := NewAuthService(&mockUserRepo{}, issuer)
	pair, _ := issuer.IssuePair(5)
	if _, err := svc.Authenticate(context.Background(), pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_Authenticate_Inactive(t *testing.T) {
	issuer := newIssuer()
	users := &mockUserRepo{
		getByIDFn: func(_ context.Context, id int64) (*domain.User, error) {
			return &domain.User{ID: id}, nil
		},
	}
	svc := NewAuthService(users, issuer)
	pair, _ := issuer.IssuePair(5)
	if _, err := svc.Authenticate(context.Background(), pair.AccessToken); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
}

func TestAuthService_LoginWithSSO_Provisions(t *testing.T) {
	created := false
	users := &mockUserRepo{
		createFn: func(_ context.Context, email, passwordHash string) (*domain.User, error) {
			created = true
			if passwordHash != "" {
				t.Error("SSO users must not get a password")
			}
			return &domain.User{ID: 11, Email: email, IsActive: true}, nil
		},
	}
	svc := NewAuthService(users, newIssuer())
	pair, err := svc.LoginWithSSO(context.Background(), "Bob@Example.com")
	if err != nil {
		t.Fatalf("LoginWithSSO: %v", err)
	}
	if !created {
		t.Error("expected user to be provisioned")
	}
	if pair.AccessToken == "" {
		t.Error("expected access token")
	}
}

func TestAuthService_LoginWithSSO_Race(t *testing.T) {
	calls := 0
	users := &mockUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*domain.User, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return &domain.User{ID: 4, Email: email, IsActive: true}, nil
		},
		createFn: func(context.Context, string, string) (*domain.User, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	svc := NewAuthService(users, newIssuer())
	if _, err := svc.LoginWithSSO(context.Background(), "bob@example.com"); err != nil {
		t.Fatalf("expected lookup after lost race to succeed, got %v", err)
	}
}
