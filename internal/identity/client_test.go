package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/chatroom/internal/config"
	"github.com/matheus3301/chatroom/internal/store"
	"go.uber.org/zap"
)

func testStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func idToken(t *testing.T, uid, email, name string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email:  email,
		Name:   name,
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type fakeProvider struct {
	t        *testing.T
	password string
	users    map[string]string // email -> display name
	calls    []string
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")
	f.calls = append(f.calls, method)
	if r.URL.Query().Get("key") != "k" {
		f.t.Errorf("missing api key on %s", method)
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	email, _ := body["email"].(string)
	fail := func(msg string) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 400, "message": msg}})
	}
	exp := time.Now().Add(time.Hour)

	switch method {
	case "accounts:signInWithPassword":
		name, ok := f.users[email]
		if !ok || body["password"] != f.password {
			fail("INVALID_LOGIN_CREDENTIALS")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"localId": "uid-" + email, "email": email, "displayName": name,
			"idToken": idToken(f.t, "uid-"+email, email, name, exp), "refreshToken": "r", "expiresIn": "3600",
		})
	case "accounts:signUp":
		if _, ok := f.users[email]; ok {
			fail("EMAIL_EXISTS")
			return
		}
		if pw, _ := body["password"].(string); len(pw) < 6 {
			fail("WEAK_PASSWORD : Password should be at least 6 characters")
			return
		}
		f.users[email] = ""
		_ = json.NewEncoder(w).Encode(map[string]any{
			"localId": "uid-" + email, "email": email,
			"idToken": idToken(f.t, "uid-"+email, email, "", exp), "expiresIn": "3600",
		})
	case "accounts:update":
		claims := &tokenClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(body["idToken"].(string), claims); err != nil {
			f.t.Errorf("update: bad idToken: %v", err)
		}
		name, _ := body["displayName"].(string)
		f.users[claims.Email] = name
		_ = json.NewEncoder(w).Encode(map[string]any{"localId": claims.UserID, "email": claims.Email, "displayName": name})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fp *fakeProvider, db *store.DB) *Client {
	t.Helper()
	srv := httptest.NewServer(fp)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), config.IdentityConfig{Endpoint: srv.URL, APIKey: "k"}, db, zap.NewNop())
}

func TestSignIn(t *testing.T) {
	fp := &fakeProvider{t: t, password: "secret1", users: map[string]string{"ana@x.io": "Ana"}}
	db := testStore(t)
	c := newTestClient(t, fp, db)

	u, err := c.SignIn(context.Background(), "ana@x.io", "secret1")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if u.UID != "uid-ana@x.io" || u.DisplayName != "Ana" {
		t.Errorf("user = %+v", u)
	}
	tok, _ := db.IdentityToken()
	if tok == nil || tok.UID != u.UID || tok.ExpiresAt == 0 {
		t.Errorf("persisted token = %+v", tok)
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	fp := &fakeProvider{t: t, password: "secret1", users: map[string]string{"ana@x.io": "Ana"}}
	c := newTestClient(t, fp, testStore(t))

	_, err := c.SignIn(context.Background(), "ana@x.io", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("SignIn() error = %v, want ErrInvalidCredentials", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Code != "INVALID_LOGIN_CREDENTIALS" || pe.Status != 400 {
		t.Errorf("ProviderError = %+v", pe)
	}
}

func TestRegisterSetsDisplayName(t *testing.T) {
	fp := &fakeProvider{t: t, users: map[string]string{}}
	c := newTestClient(t, fp, testStore(t))

	u, err := c.Register(context.Background(), "budi@x.io", "secret1", "Budi")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.DisplayName != "Budi" || u.Email != "budi@x.io" || u.UID == "" {
		t.Errorf("user = %+v", u)
	}
	if fp.users["budi@x.io"] != "Budi" {
		t.Errorf("provider display name = %q", fp.users["budi@x.io"])
	}
	if len(fp.calls) != 2 || fp.calls[0] != "accounts:signUp" || fp.calls[1] != "accounts:update" {
		t.Errorf("calls = %v", fp.calls)
	}
}

func TestRegisterErrors(t *testing.T) {
	fp := &fakeProvider{t: t, users: map[string]string{"ana@x.io": "Ana"}}
	c := newTestClient(t, fp, testStore(t))

	if _, err := c.Register(context.Background(), "ana@x.io", "secret1", "Ana"); !errors.Is(err, ErrEmailInUse) {
		t.Errorf("duplicate email error = %v, want ErrEmailInUse", err)
	}
	if _, err := c.Register(context.Background(), "new@x.io", "123", "New"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password error = %v, want ErrWeakPassword", err)
	}
}

func waitUser(t *testing.T, ch <-chan *User) *User {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for auth state")
		return nil
	}
}

func TestSubscribeAuthStateRestoresPersistedUser(t *testing.T) {
	db := testStore(t)
	exp := time.Now().Add(time.Hour).Unix()
	if err := db.SaveIdentityToken(&store.IdentityToken{UID: "u1", Email: "ana@x.io", DisplayName: "Ana", IDToken: "t", ExpiresAt: exp}); err != nil {
		t.Fatal(err)
	}
	c := newTestClient(t, &fakeProvider{t: t}, db)

	ch := make(chan *User, 4)
	unsub := c.SubscribeAuthState(func(u *User) { ch <- u })
	defer unsub()

	u := waitUser(t, ch)
	if u == nil || u.UID != "u1" || u.Email != "ana@x.io" {
		t.Errorf("restored user = %+v", u)
	}
}

func TestSubscribeAuthStateExpiredToken(t *testing.T) {
	db := testStore(t)
	past := time.Now().Add(-time.Hour).Unix()
	_ = db.SaveIdentityToken(&store.IdentityToken{UID: "u1", IDToken: "t", ExpiresAt: past})
	c := newTestClient(t, &fakeProvider{t: t}, db)

	ch := make(chan *User, 4)
	unsub := c.SubscribeAuthState(func(u *User) { ch <- u })
	defer unsub()

	if u := waitUser(t, ch); u != nil {
		t.Errorf("expired token restored user %+v", u)
	}
}

func TestSignOutNotifiesAndClears(t *testing.T) {
	fp := &fakeProvider{t: t, password: "secret1", users: map[string]string{"ana@x.io": "Ana"}}
	db := testStore(t)
	c := newTestClient(t, fp, db)

	if _, err := c.SignIn(context.Background(), "ana@x.io", "secret1"); err != nil {
		t.Fatal(err)
	}
	ch := make(chan *User, 4)
	unsub := c.SubscribeAuthState(func(u *User) { ch <- u })
	defer unsub()
	if u := waitUser(t, ch); u == nil {
		t.Fatal("initial state should be signed in")
	}

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}
	if u := waitUser(t, ch); u != nil {
		t.Errorf("after SignOut got %+v, want nil", u)
	}
	if tok, _ := db.IdentityToken(); tok != nil {
		t.Errorf("token after SignOut = %+v", tok)
	}
	if c.Current() != nil {
		t.Error("Current() after SignOut != nil")
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	fp := &fakeProvider{t: t, password: "secret1", users: map[string]string{"ana@x.io": "Ana"}}
	c := newTestClient(t, fp, testStore(t))

	ch := make(chan *User, 4)
	unsub := c.SubscribeAuthState(func(u *User) { ch <- u })
	waitUser(t, ch)
	unsub()

	if _, err := c.SignIn(context.Background(), "ana@x.io", "secret1"); err != nil {
		t.Fatal(err)
	}
	select {
	case u := <-ch:
		t.Errorf("notification after unsubscribe: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}
