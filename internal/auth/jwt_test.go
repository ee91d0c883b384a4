package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/planhub/staffing/internal/models"
)

func TestJWTManagerRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret-at-least-32-bytes-long!!", time.Hour)

	user := &models.User{
		ID:             "u1",
		OrganizationID: "org1",
		Email:          "ada@example.com",
	}
	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "u1" || claims.OrganizationID != "org1" || claims.Email != "ada@example.com" {
		t.Errorf("claims = %+v, want original identity", claims)
	}
}

func TestJWTManagerRejectsBadTokens(t *testing.T) {
	m := NewJWTManager("test-secret-at-least-32-bytes-long!!", time.Hour)

	if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v, want ErrInvalidToken", err)
	}

	other := NewJWTManager("a-different-secret-entirely-here!!!!", time.Hour)
	token, err := other.Generate(&models.User{ID: "u1", OrganizationID: "org1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong-secret token: got %v, want ErrInvalidToken", err)
	}

	expired := NewJWTManager("test-secret-at-least-32-bytes-long!!", -time.Hour)
	token, err = expired.Generate(&models.User{ID: "u1", OrganizationID: "org1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}
}
