package auth

import "testing"

func TestAccessTokenRoundtrip(t *testing.T) {
	token, err := GenerateAccessToken("u1", "operator", "", "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseAccessToken(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("expected subject u1, got %s", claims.Subject)
	}
	if claims.UserType != "operator" {
		t.Fatalf("expected user_type operator, got %s", claims.UserType)
	}
	if claims.OperatorID != "" {
		t.Fatalf("expected empty operator_id, got %s", claims.OperatorID)
	}
}

func TestAccessTokenCarriesOperatorID(t *testing.T) {
	token, err := GenerateAccessToken("pos1", "pos", "op7", "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseAccessToken(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.OperatorID != "op7" {
		t.Fatalf("expected operator_id op7, got %s", claims.OperatorID)
	}
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	token, _ := GenerateAccessToken("u1", "client", "", "secret")
	if _, err := ParseAccessToken(token, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword("hunter2", hash) {
		t.Fatal("expected password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("expected wrong password to fail")
	}
}
