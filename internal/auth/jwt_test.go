package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("student-1", "student", "campusevents", "secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if !pair.RefreshExp.After(pair.AccessExp) {
		t.Fatal("refresh token should outlive the access token")
	}

	claims, err := Parse(pair.AccessToken, "secret", "campusevents")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "student-1" {
		t.Fatalf("expected subject student-1, got %q", claims.Subject)
	}
	if claims.Role != "student" {
		t.Fatalf("expected role student, got %q", claims.Role)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("student-1", "student", "campusevents", "secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-secret", "campusevents"); err == nil {
		t.Fatal("expected parse to fail with the wrong key")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pair, err := Issue("student-1", "student", "someone-else", "secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "secret", "campusevents"); err == nil {
		t.Fatal("expected parse to fail on issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("student-1", "student", "campusevents", "secret", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "secret", "campusevents"); err == nil {
		t.Fatal("expected parse to fail on an expired token")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not.a.token", "secret", "campusevents"); err == nil {
		t.Fatal("expected parse to fail on garbage input")
	}
}
