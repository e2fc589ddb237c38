package util

import (
	"testing"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"
)

func TestGenerateAndParseJWT(t *testing.T) {
	user := &model.User{
		Email:  "student@example.com",
		Status: model.StatusApproved,
		Role:   model.Student,
	}
	user.ID = 42

	token, err := GenerateJWT(user, model.Admin, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "student@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	// 角色以签发参数为准，覆盖用户记录上的角色
	if claims.Role != model.Admin {
		t.Errorf("role = %s, want admin", claims.Role)
	}
	if claims.Status != model.StatusApproved {
		t.Errorf("status = %s, want approved", claims.Status)
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	user := &model.User{Email: "a@b.c", Status: model.StatusApproved}
	user.ID = 1

	token, err := GenerateJWT(user, model.Student, "secret-one", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(token, "secret-two"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseJWTExpired(t *testing.T) {
	user := &model.User{Email: "a@b.c", Status: model.StatusApproved}
	user.ID = 1

	token, err := GenerateJWT(user, model.Student, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expected error for expired token")
	}
}
