package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sellergrid/service-core-go/internal/identity/entity"
	"github.com/sellergrid/service-core-go/internal/result"
)

func testService(t *testing.T) *Service {
	t.Helper()
	return NewService(Config{
		Secret:     []byte("test-secret-test-secret-test-secret"),
		Issuer:     "sellergrid-test",
		Audience:   "sellergrid-test-api",
		SessionTTL: 30 * time.Minute,
	})
}

func testIdentity() *entity.Identity {
	return &entity.Identity{
		ID:    "2FgXaLkQdemo0000000000000",
		Name:  "Alice",
		Email: "alice@x.com",
		Role:  entity.RoleUser,
	}
}

func TestIssueValidateRoundTrip(t *testing.T) {
	svc := testService(t)
	ident := testIdentity()

	for _, purpose := range []Purpose{PurposeSession, PurposeEmailConfirm, PurposePasswordReset} {
		raw, err := svc.Issue(ident, purpose)
		if err != nil {
			t.Fatalf("issue %s: %v", purpose, err)
		}
		res := svc.Validate(raw, purpose)
		if !res.OK() {
			t.Fatalf("validate %s: kind=%s msg=%q", purpose, res.Kind(), res.Message())
		}
		if res.Value() != ident.ID {
			t.Errorf("validate %s: subject = %q, want %q", purpose, res.Value(), ident.ID)
		}
	}
}

func TestValidateExpired(t *testing.T) {
	svc := testService(t)
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	raw, err := svc.Issue(testIdentity(), PurposeSession)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// still valid one second before expiry
	svc.now = func() time.Time { return issued.Add(30*time.Minute - time.Second) }
	if res := svc.Validate(raw, PurposeSession); !res.OK() {
		t.Fatalf("validate before expiry failed: %s", res.Kind())
	}

	// zero leeway: one second past expiry fails closed
	svc.now = func() time.Time { return issued.Add(30*time.Minute + time.Second) }
	res := svc.Validate(raw, PurposeSession)
	if res.OK() {
		t.Fatal("validate after expiry succeeded")
	}
	if res.Kind() != result.KindTokenExpired {
		t.Errorf("kind = %s, want %s", res.Kind(), result.KindTokenExpired)
	}
}

func TestValidateTamperedSignature(t *testing.T) {
	svc := testService(t)
	raw, err := svc.Issue(testIdentity(), PurposeSession)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// flip one character of the signature segment
	last := raw[len(raw)-1]
	flipped := byte('A')
	if last == 'A' {
		flipped = 'B'
	}
	tampered := raw[:len(raw)-1] + string(flipped)

	res := svc.Validate(tampered, PurposeSession)
	if res.OK() {
		t.Fatal("tampered token validated")
	}
	if res.Kind() != result.KindTokenInvalid {
		t.Errorf("kind = %s, want %s", res.Kind(), result.KindTokenInvalid)
	}
	if res.Value() != "" {
		t.Errorf("tampered token decoded a subject: %q", res.Value())
	}
}

func TestValidatePurposeMismatch(t *testing.T) {
	svc := testService(t)
	raw, err := svc.Issue(testIdentity(), PurposePasswordReset)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	res := svc.Validate(raw, PurposeEmailConfirm)
	if res.OK() {
		t.Fatal("reset token accepted as confirmation token")
	}
	if res.Kind() != result.KindTokenInvalid {
		t.Errorf("kind = %s, want %s", res.Kind(), result.KindTokenInvalid)
	}
}

func TestValidateMalformed(t *testing.T) {
	svc := testService(t)
	res := svc.Validate("not-a-token", PurposeSession)
	if res.OK() {
		t.Fatal("malformed token validated")
	}
	if res.Kind() != result.KindTokenMalformed {
		t.Errorf("kind = %s, want %s", res.Kind(), result.KindTokenMalformed)
	}
}

func TestValidateWrongIssuerOrAudience(t *testing.T) {
	svc := testService(t)
	raw, err := svc.Issue(testIdentity(), PurposeSession)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewService(Config{
		Secret:   []byte("test-secret-test-secret-test-secret"),
		Issuer:   "someone-else",
		Audience: "sellergrid-test-api",
	})
	if res := other.Validate(raw, PurposeSession); res.OK() || res.Kind() != result.KindTokenInvalid {
		t.Errorf("wrong issuer: kind = %s, want %s", res.Kind(), result.KindTokenInvalid)
	}

	otherAud := NewService(Config{
		Secret:   []byte("test-secret-test-secret-test-secret"),
		Issuer:   "sellergrid-test",
		Audience: "another-api",
	})
	if res := otherAud.Validate(raw, PurposeSession); res.OK() || res.Kind() != result.KindTokenInvalid {
		t.Errorf("wrong audience: kind = %s, want %s", res.Kind(), result.KindTokenInvalid)
	}
}

func decodeClaims(t *testing.T, raw string) Claims {
	t.Helper()
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d segments, want 3", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("unmarshal claims: %v", err)
	}
	return claims
}

func TestSessionClaimsCarryEmailAndRole(t *testing.T) {
	svc := testService(t)
	ident := testIdentity()

	raw, err := svc.Issue(ident, PurposeSession)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims := decodeClaims(t, raw)
	if claims.Purpose != string(PurposeSession) {
		t.Errorf("purpose = %q, want %q", claims.Purpose, PurposeSession)
	}
	if claims.Email != ident.Email {
		t.Errorf("email = %q, want %q", claims.Email, ident.Email)
	}
	if claims.Role != string(entity.RoleUser) {
		t.Errorf("role = %q, want %q", claims.Role, entity.RoleUser)
	}
	if claims.ID == "" {
		t.Error("jti is empty")
	}

	// non-session tokens omit the role claim
	resetRaw, err := svc.Issue(ident, PurposePasswordReset)
	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}
	if resetClaims := decodeClaims(t, resetRaw); resetClaims.Role != "" {
		t.Errorf("reset token carries role %q", resetClaims.Role)
	}
}
