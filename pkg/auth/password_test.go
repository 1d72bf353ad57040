package auth

import "testing"

func TestHashPasswordAndCheckPasswordBcrypt(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected bcrypt password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected bcrypt password check to fail")
	}
}

func TestAdminCredentialMatchPlaintext(t *testing.T) {
	cred := AdminCredential{Email: "admin@example.com", Password: "pw-1"}
	if !cred.Match("admin@example.com", "pw-1") {
		t.Fatalf("expected exact match to pass")
	}
	if cred.Match("Admin@example.com", "pw-1") {
		t.Fatalf("expected email comparison to be exact")
	}
	if cred.Match("admin@example.com", "pw-2") {
		t.Fatalf("expected wrong password to fail")
	}
	if cred.Match("", "") {
		t.Fatalf("expected empty input to fail")
	}
}

func TestAdminCredentialMatchHash(t *testing.T) {
	hash, err := HashPassword("hashed-pw")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cred := AdminCredential{Email: "admin@example.com", Password: "ignored", PasswordHash: hash}
	if !cred.Match("admin@example.com", "hashed-pw") {
		t.Fatalf("expected hash match to pass")
	}
	if cred.Match("admin@example.com", "ignored") {
		t.Fatalf("expected hash to take precedence over plaintext")
	}
}

func TestAdminCredentialUnconfiguredNeverMatches(t *testing.T) {
	if (AdminCredential{}).Match("", "") {
		t.Fatalf("expected unconfigured credential to reject everything")
	}
}
