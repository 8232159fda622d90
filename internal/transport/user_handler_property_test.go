package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gamemarket/internal/domain"
	"gamemarket/internal/middleware"
	"gamemarket/internal/repository"
	"gamemarket/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	for _, user := range m.users {
		if user.ID == id {
			user.Role = role
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func newTestUserHandler() (*UserHandler, service.UserService) {
	userRepo := newMockUserRepository()
	refreshTokenRepo := newMockRefreshTokenRepository()
	userService := service.NewUserService(userRepo, refreshTokenRepo, "test-secret")
	return NewUserHandler(userService, zap.NewNop()), userService
}

func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration with invalid data returns validation errors", prop.ForAll(
		func(invalidCase int) bool {
			handler, _ := newTestUserHandler()

			var reqBody RegisterRequest

			// Generate different invalid cases
			switch invalidCase % 4 {
			case 0:
				// Empty email
				reqBody = RegisterRequest{
					Email:    "",
					Password: "ValidPass123",
					Name:     "John Doe",
				}
			case 1:
				// Invalid email format
				reqBody = RegisterRequest{
					Email:    "not-an-email",
					Password: "ValidPass123",
					Name:     "John Doe",
				}
			case 2:
				// Short password (less than 8 characters)
				reqBody = RegisterRequest{
					Email:    "test@example.com",
					Password: "short",
					Name:     "John Doe",
				}
			case 3:
				// Missing name
				reqBody = RegisterRequest{
					Email:    "test@example.com",
					Password: "ValidPass123",
				}
			}

			body, _ := json.Marshal(reqBody)
			req := httptest.NewRequest(http.MethodPost, "/api/users/register", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Register(w, req)

			if w.Code != http.StatusBadRequest {
				t.Logf("FAIL: Expected 400 status code, got %d", w.Code)
				return false
			}

			var response middleware.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Logf("FAIL: Could not decode error response: %v", err)
				return false
			}

			if response.Success {
				t.Logf("FAIL: Error response has success=true")
				return false
			}

			if response.Message == "" {
				t.Logf("FAIL: Error response missing message")
				return false
			}

			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SuccessfulRegistrationReturnsProfileData(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("successful registration returns user profile with all fields", prop.ForAll(
		func(email string, password string, name string) bool {
			handler, _ := newTestUserHandler()

			reqBody := RegisterRequest{
				Email:    email,
				Password: password,
				Name:     name,
			}
			body, _ := json.Marshal(reqBody)
			req := httptest.NewRequest(http.MethodPost, "/api/users/register", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Register(w, req)

			if w.Code != http.StatusCreated {
				t.Logf("FAIL: Expected 201 status code, got %d", w.Code)
				return false
			}

			var profile UserProfile
			if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
				t.Logf("FAIL: Could not decode response: %v", err)
				return false
			}

			if profile.Email != email {
				t.Logf("FAIL: Email mismatch. Expected %s, got %s", email, profile.Email)
				return false
			}

			if profile.Name != name {
				t.Logf("FAIL: Name mismatch. Expected %s, got %s", name, profile.Name)
				return false
			}

			if profile.Role != domain.RoleUser {
				t.Logf("FAIL: Expected role %s, got %s", domain.RoleUser, profile.Role)
				return false
			}

			if _, err := uuid.Parse(profile.ID); err != nil {
				t.Logf("FAIL: Profile ID is not a valid UUID: %v", err)
				return false
			}

			return true
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15} [A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidLoginReturnsBothTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid login returns access token and refresh token", prop.ForAll(
		func(email string, password string, name string) bool {
			handler, userService := newTestUserHandler()

			// First, register the user
			_, err := userService.Register(context.Background(), email, password, name)
			if err != nil {
				return true // Skip if registration fails
			}

			loginReq := LoginRequest{
				Email:    email,
				Password: password,
			}
			body, _ := json.Marshal(loginReq)
			req := httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Login(w, req)

			if w.Code != http.StatusOK {
				t.Logf("FAIL: Expected 200 status code, got %d", w.Code)
				return false
			}

			var loginResp LoginResponse
			if err := json.NewDecoder(w.Body).Decode(&loginResp); err != nil {
				t.Logf("FAIL: Could not decode login response: %v", err)
				return false
			}

			if loginResp.AccessToken == "" {
				t.Logf("FAIL: Access token is empty")
				return false
			}

			if loginResp.RefreshToken == "" {
				t.Logf("FAIL: Refresh token is empty")
				return false
			}

			if loginResp.User.Email != email {
				t.Logf("FAIL: User email mismatch")
				return false
			}

			// Access token must carry the authenticated identity
			claims, err := userService.ValidateToken(loginResp.AccessToken)
			if err != nil {
				t.Logf("FAIL: Access token validation failed: %v", err)
				return false
			}

			if claims.UserID.String() != loginResp.User.ID {
				t.Logf("FAIL: Token user ID doesn't match profile ID")
				return false
			}

			// Refresh token must be usable for a new access token
			newAccessToken, err := userService.RefreshToken(context.Background(), loginResp.RefreshToken)
			if err != nil {
				t.Logf("FAIL: Refresh token is not valid: %v", err)
				return false
			}

			if newAccessToken == "" {
				t.Logf("FAIL: Refresh token returned empty access token")
				return false
			}

			return true
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15} [A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBecomeSeller_UpgradesRole(t *testing.T) {
	handler, userService := newTestUserHandler()

	user, err := userService.Register(context.Background(), "buyer@example.com", "ValidPass123", "Buyer One")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/users/become-seller", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, user.ID.String())
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	handler.BecomeSeller(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	upgraded, err := userService.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if upgraded.Role != domain.RoleSeller {
		t.Errorf("Expected role %s, got %s", domain.RoleSeller, upgraded.Role)
	}

	// A second upgrade attempt is rejected
	w = httptest.NewRecorder()
	handler.BecomeSeller(w, req.WithContext(ctx))

	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on repeat upgrade, got %d", w.Code)
	}
}
