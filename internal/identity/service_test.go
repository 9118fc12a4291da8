package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sellergrid/service-core-go/internal/identity/entity"
	"github.com/sellergrid/service-core-go/internal/result"
	"github.com/sellergrid/service-core-go/internal/token"
)

// --- mocks ---

// memStore is an in-memory Store. Error fields, when set, are returned
// instead of touching the maps; call counters let tests assert that no
// write happened on failure paths.
type memStore struct {
	byID map[string]*entity.Identity

	addCalls    int
	updateCalls int
	deleteCalls int

	findByEmailErr error
	addErr         error
	updateErr      error
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[string]*entity.Identity)}
}

func (m *memStore) GetByID(_ context.Context, id string) (*entity.Identity, error) {
	ident, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *ident
	return &cp, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*entity.Identity, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	for _, ident := range m.byID {
		if strings.EqualFold(ident.Email, email) {
			cp := *ident
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetAll(_ context.Context) ([]*entity.Identity, error) {
	out := make([]*entity.Identity, 0, len(m.byID))
	for _, ident := range m.byID {
		cp := *ident
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) Add(_ context.Context, ident *entity.Identity) error {
	m.addCalls++
	if m.addErr != nil {
		return m.addErr
	}
	cp := *ident
	m.byID[ident.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, ident *entity.Identity) error {
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *ident
	m.byID[ident.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.deleteCalls++
	delete(m.byID, id)
	return nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type mockSender struct {
	sent    []sentMail
	sendErr error
}

func (m *mockSender) Send(_ context.Context, to, subject, htmlBody string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

func testTokens() *token.Service {
	return token.NewService(token.Config{
		Secret:     []byte("test-secret-test-secret-test-secret"),
		Issuer:     "sellergrid-test",
		Audience:   "sellergrid-test-api",
		SessionTTL: 30 * time.Minute,
	})
}

func newTestService(store *memStore, sender *mockSender) *Service {
	return NewService(
		store,
		BcryptHasher{Cost: bcrypt.MinCost},
		sender,
		testTokens(),
		"http://localhost:8431",
		zap.NewNop().Sugar(),
	)
}

// tokenFromBody pulls the token query value out of a sent link.
func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "token=")
	if i < 0 {
		t.Fatalf("no token in body %q", body)
	}
	rest := body[i+len("token="):]
	if j := strings.IndexByte(rest, '"'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// --- tests ---

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMemStore()
	sender := &mockSender{}
	svc := newTestService(store, sender)
	ctx := context.Background()

	if res := svc.Register(ctx, "Alice", "alice@x.com", entity.RoleUser, "pw1"); !res.OK() {
		t.Fatalf("first register failed: %s", res.Message())
	}
	before := store.addCalls

	res := svc.Register(ctx, "Alice Again", "Alice@X.com", entity.RoleUser, "pw2")
	if res.OK() {
		t.Fatal("duplicate register succeeded")
	}
	if res.Kind() != result.KindDuplicateEmail {
		t.Errorf("kind = %s, want %s", res.Kind(), result.KindDuplicateEmail)
	}
	if !strings.Contains(res.Message(), "already exists") {
		t.Errorf("message = %q, want mention of already exists", res.Message())
	}
	if store.addCalls != before {
		t.Error("duplicate register performed a persistence write")
	}
}

func TestRegisterSendsConfirmationLink(t *testing.T) {
	store := newMemStore()
	sender := &mockSender{}
	svc := newTestService(store, sender)

	if res := svc.Register(context.Background(), "Alice", "ALICE@x.com", entity.RoleUser, "pw1"); !res.OK() {
		t.Fatalf("register failed: %s", res.Message())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.sent))
	}
	mail := sender.sent[0]
	if mail.to != "alice@x.com" {
		t.Errorf("recipient = %q, want lowercased address", mail.to)
	}
	if mail.subject != "Confirm your account" {
		t.Errorf("subject = %q", mail.subject)
	}
	if !strings.Contains(mail.body, "/auth/confirm-email?token=") {
		t.Errorf("body has no confirmation link: %q", mail.body)
	}
}

func TestRegisterEmailFailureDoesNotRollBack(t *testing.T) {
	store := newMemStore()
	sender := &mockSender{sendErr: errors.New("smtp down")}
	svc := newTestService(store, sender)
	ctx := context.Background()

	if res := svc.Register(ctx, "Alice", "alice@x.com", entity.RoleUser, "pw1"); !res.OK() {
		t.Fatalf("register failed on email error: %s", res.Message())
	}
	if ident, _ := store.FindByEmail(ctx, "alice@x.com"); ident == nil {
		t.Fatal("identity was not persisted")
	}
}

func TestConfirmEmailFlow(t *testing.T) {
	store := newMemStore()
	sender := &mockSender{}
	svc := newTestService(store, sender)
	ctx := context.Background()

	if res := svc.Register(ctx, "Alice", "alice@x.com", entity.RoleUser, "pw1"); !res.OK() {
		t.Fatalf("register failed: %s", res.Message())
	}
	confirmTok := tokenFromBody(t, sender.sent[0].body)

	if res := svc.ConfirmEmail(ctx, confirmTok); !res.OK() {
		t.Fatalf("confirm failed: kind=%s msg=%q", res.Kind(), res.Message())
	}

	ident, _ := store.FindByEmail(ctx, "alice@x.com")
	got := svc.GetUserByID(ctx, ident.ID)
	if !got.OK() {
		t.Fatalf("get user failed: %s", got.Message())
	}
	if !got.Value().EmailConfirmed {
		t.Error("email not confirmed after flow")
	}

	// confirming twice is harmless
	if res := svc.ConfirmEmail(ctx, confirmTok); !res.OK() {
		t.Errorf("second confirm failed: %s", res.Message())
	}
}

func TestConfirmEmailRejectsResetToken(t *testing.T) {
	store := newMemStore()
	sender := &mockSender{}
	svc := newTestService(store, sender)
	ctx := context.Background()

	svc.Register(ctx, "Alice", "alice@x.com", entity.RoleUser, "pw1")
	svc.ForgotPassword(ctx, "alice@x.com")
	resetTok := tokenFromBody(t, sender.sent[1].body)

	res := svc.ConfirmEmail(ctx, resetTok)
	if res.OK() {
		t.Fatal("reset token confirmed an email")
	}
	if res.Kind() != result.KindTokenInvalid {
		t.Errorf("kind = %s, want %s", res.Kind(), result.KindTokenInvalid)
	}
}

func TestAuthenticate(t *testing.T) {
	store := newMemStore()
	sender := &mockSender{}
	svc := newTestService(store, sender)
	ctx := context.Background()

	svc.Register(ctx, "Alice", "alice@x.com", entity.RoleUser, "pw1")

	wrongPW := svc.Authenticate(ctx, "alice@x.com", "wrong")
	if wrongPW.OK() {
		t.Fatal("wrong password authenticated")
	}
	noUser := svc.Authenticate(ctx, "nobody@x.com", "pw1")
	if noUser.OK() {
		t.Fatal("unknown email authenticated")
	}
	// same failure for missing account and wrong credential
	if wrongPW.Kind() != noUser.Kind() || wrongPW.Message() != noUser.Message() {
		t.Errorf("asymmetric failures: (%s, %q) vs (%s, %q)",
			wrongPW.Kind(), wrongPW.Message(), noUser.Kind(), noUser.Message())
	}
	if wrongPW.Kind() != result.KindInvalidCredentials {
		t.Errorf("kind = %s, want %s", wrongPW.Kind(), result.KindInvalidCredentials)
	}

	ok := svc.Authenticate(ctx, "Alice@X.com", "pw1")
	if !ok.OK() {
		t.Fatalf("authenticate failed: %s", ok.Message())
	}
	ident, _ := store.FindByEmail(ctx, "alice@x.com")
	validated := testTokens().Validate(ok.Value(), token.PurposeSession)
	if !validated.OK() {
		t.Fatalf("session token invalid: %s", validated.Kind())
	}
	if validated.Value() != ident.ID {
		t.Errorf("session subject = %q, want %q", validated.Value(), ident.ID)
	}
}

func TestForgotAndResetPasswordFlow(t *testing.T) {
	store := newMemStore()
	sender := &mockSender{}
	svc := newTestService(store, sender)
	ctx := context.Background()

	svc.Register(ctx, "Alice", "alice@x.com", entity.RoleUser, "pw1")

	if res := svc.ForgotPassword(ctx, "alice@x.com"); !res.OK() {
		t.Fatalf("forgot password failed: %s", res.Message())
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent %d mails, want registration + reset", len(sender.sent))
	}
	if sender.sent[1].subject != "Password Reset" {
		t.Errorf("subject = %q", sender.sent[1].subject)
	}
	resetTok := tokenFromBody(t, sender.sent[1].body)

	if res := svc.ResetPassword(ctx, resetTok, "newpw"); !res.OK() {
		t.Fatalf("reset failed: kind=%s msg=%q", res.Kind(), res.Message())
	}
	if res := svc.Authenticate(ctx, "alice@x.com", "pw1"); res.OK() {
		t.Error("old password still authenticates")
	}
	if res := svc.Authenticate(ctx, "alice@x.com", "newpw"); !res.OK() {
		t.Errorf("new password rejected: %s", res.Message())
	}
}

func TestForgotPasswordUnknownEmailRevealsNothing(t *testing.T) {
	store := newMemStore()
	sender := &mockSender{}
	svc := newTestService(store, sender)

	res := svc.ForgotPassword(context.Background(), "nobody@x.com")
	if !res.OK() {
		t.Fatalf("forgot password for unknown email failed: %s", res.Message())
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d mails for unknown account", len(sender.sent))
	}
}

func TestStoreFailureIsInternal(t *testing.T) {
	store := newMemStore()
	store.findByEmailErr = errors.New("connection refused")
	svc := newTestService(store, &mockSender{})

	res := svc.Authenticate(context.Background(), "alice@x.com", "pw1")
	if res.OK() {
		t.Fatal("authenticate succeeded with store down")
	}
	if res.Kind() != result.KindStoreUnavailable {
		t.Errorf("kind = %s, want %s", res.Kind(), result.KindStoreUnavailable)
	}
	if strings.Contains(res.Message(), "connection refused") {
		t.Errorf("message leaks infrastructure detail: %q", res.Message())
	}
}

func TestUserCRUD(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockSender{})
	ctx := context.Background()

	created := svc.CreateUser(ctx, "Bob", "bob@x.com", entity.RoleAdmin, "pw")
	if !created.OK() {
		t.Fatalf("create failed: %s", created.Message())
	}
	id := created.Value()

	if res := svc.UpdateUser(ctx, id, "Robert", "robert@x.com", entity.RoleUser); !res.OK() {
		t.Fatalf("update failed: %s", res.Message())
	}
	got := svc.GetUserByID(ctx, id)
	if !got.OK() || got.Value().Name != "Robert" || got.Value().Email != "robert@x.com" || got.Value().Role != entity.RoleUser {
		t.Fatalf("unexpected identity after update: %+v", got.Value())
	}

	all := svc.GetAllUsers(ctx)
	if !all.OK() || len(all.Value()) != 1 {
		t.Fatalf("get all = %d users, want 1", len(all.Value()))
	}

	if res := svc.DeleteUser(ctx, id); !res.OK() {
		t.Fatalf("delete failed: %s", res.Message())
	}
	if res := svc.GetUserByID(ctx, id); res.OK() || res.Kind() != result.KindUserNotFound {
		t.Errorf("deleted user still found, kind = %s", res.Kind())
	}
	if res := svc.DeleteUser(ctx, id); res.OK() || res.Kind() != result.KindUserNotFound {
		t.Errorf("double delete kind = %s, want %s", res.Kind(), result.KindUserNotFound)
	}
}
