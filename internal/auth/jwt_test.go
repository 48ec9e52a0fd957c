package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestNewAccessToken_RoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := NewAccessToken(userID, "analyst@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != userID || claims.Email != "analyst@example.com" || claims.Subject != userID.String() {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	userID := uuid.New()
	expired, _ := NewAccessToken(userID, "", testSecret, -time.Minute)
	wrongKey, _ := NewAccessToken(userID, "", "other-secret", time.Hour)
	noUser, _ := NewAccessToken(uuid.Nil, "", testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", expired, jwt.ErrTokenExpired},
		{"wrong key", wrongKey, jwt.ErrTokenSignatureInvalid},
		{"malformed", "not-a-token", jwt.ErrTokenMalformed},
		{"missing user", noUser, ErrMissingUserID},
	}
	for _, tt := range tests {
		if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, tt.want) {
			t.Errorf("%s: ParseToken() error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	if _, ok := GetUserIDFromContext(context.Background()); ok {
		t.Fatalf("GetUserIDFromContext(empty) ok = true")
	}
	if _, ok := GetUserIDFromContext(WithUserID(context.Background(), uuid.Nil)); ok {
		t.Fatalf("GetUserIDFromContext(nil id) ok = true")
	}
	id := uuid.New()
	if got, ok := GetUserIDFromContext(WithUserID(context.Background(), id)); !ok || got != id {
		t.Fatalf("GetUserIDFromContext() = %s, %v; want %s, true", got, ok, id)
	}
}
