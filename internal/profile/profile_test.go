package profile

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/questhall/questhall/config"
	"github.com/questhall/questhall/internal/user"
	"github.com/questhall/questhall/pkg/token"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&user.User{}, &Role{}, &Profile{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if err := NewProfileRepository(db).SeedRoles(); err != nil {
		t.Fatalf("Failed to seed roles: %v", err)
	}
	return db
}

func setupRouter(t *testing.T, db *gorm.DB, inviteCode string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.AccessTokenSecret = testSecret
	cfg.Admin.InviteCode = inviteCode

	r := gin.New()
	ProfileRoutes(r.Group("/api"), db, cfg, testSecret)
	return r
}

func createAccount(t *testing.T, db *gorm.DB, name, email string) *user.User {
	u := &user.User{Name: name, Email: email, Role: user.RoleStudent}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return u
}

func bearerFor(t *testing.T, u *user.User) string {
	tok, err := token.GenerateJWT(u.ID, u.Role, testSecret, 15)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return "Bearer " + tok
}

func doJSON(t *testing.T, r *gin.Engine, method, path, auth string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode error body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func TestMeLazilyCreatesProfile(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db, "sesame")
	u := createAccount(t, db, "Avery", "avery@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/profiles/me", bearerFor(t, u), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Profile Profile `json:"profile"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Profile.AuthID != u.ID {
		t.Errorf("Expected profile bound to account %d, got %d", u.ID, body.Profile.AuthID)
	}
	if body.Profile.DisplayName != "Avery" {
		t.Errorf("Expected display name seeded from account, got %q", body.Profile.DisplayName)
	}

	// Second call reuses the same row.
	w = doJSON(t, r, http.MethodGet, "/api/profiles/me", bearerFor(t, u), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on repeat, got %d: %s", w.Code, w.Body.String())
	}
	var count int64
	if err := db.Model(&Profile{}).Where("auth_id = ?", u.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected a single profile row, got %d", count)
	}
}

func TestUpdateMeRequiresFields(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db, "sesame")
	u := createAccount(t, db, "Avery", "avery@example.com")
	auth := bearerFor(t, u)

	w := doJSON(t, r, http.MethodPatch, "/api/profiles/me", auth, map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty update, got %d: %s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "No updates provided" {
		t.Errorf("Expected \"No updates provided\", got %q", msg)
	}

	display := "Quartermaster"
	w = doJSON(t, r, http.MethodPatch, "/api/profiles/me", auth, UpdateProfileRequest{DisplayName: &display})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Profile Profile `json:"profile"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Profile.DisplayName != display {
		t.Errorf("Expected display name updated, got %q", body.Profile.DisplayName)
	}
}

func TestInviteRejectsWrongCodeBeforeAuth(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db, "sesame")

	// No session at all: the code check still answers first.
	w := doJSON(t, r, http.MethodPost, "/api/admin/invite", "", InviteRequest{Code: "wrong"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for wrong code, got %d: %s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "invalid" {
		t.Errorf("Expected \"invalid\", got %q", msg)
	}

	// Right code without a session is an auth failure.
	w = doJSON(t, r, http.MethodPost, "/api/admin/invite", "", InviteRequest{Code: "sesame"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without session, got %d: %s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "unauthenticated" {
		t.Errorf("Expected \"unauthenticated\", got %q", msg)
	}
}

func TestInviteRequiresConfiguredCode(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db, "")

	w := doJSON(t, r, http.MethodPost, "/api/admin/invite", "", InviteRequest{Code: "anything"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 when unconfigured, got %d: %s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "missing" {
		t.Errorf("Expected \"missing\", got %q", msg)
	}
}

func TestInvitePromotesBothRecords(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db, "sesame")
	u := createAccount(t, db, "Avery", "avery@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/admin/invite", bearerFor(t, u), InviteRequest{Code: "sesame"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if !body["success"] {
		t.Error("Expected success true")
	}

	// Account-level role, checked by session middleware.
	var account user.User
	if err := db.First(&account, u.ID).Error; err != nil {
		t.Fatalf("account reload failed: %v", err)
	}
	if account.Role != user.RoleAdmin {
		t.Errorf("Expected account role admin, got %q", account.Role)
	}

	// Profile-level role reference, checked by resource permissions.
	repo := NewProfileRepository(db)
	p, err := repo.GetByAuthID(u.ID)
	if err != nil || p == nil {
		t.Fatalf("profile reload failed: %v", err)
	}
	isAdmin, err := repo.IsAdmin(p)
	if err != nil {
		t.Fatalf("IsAdmin failed: %v", err)
	}
	if !isAdmin {
		t.Error("Expected the profile role reference promoted to admin")
	}
}

func TestResolveByAuthIDCreatesFromAccountMetadata(t *testing.T) {
	db := setupTestDB(t)
	u := createAccount(t, db, "Avery", "avery@example.com")

	repo := NewProfileRepository(db)
	p, err := repo.ResolveByAuthID(u.ID)
	if err != nil {
		t.Fatalf("ResolveByAuthID failed: %v", err)
	}
	if p.Email != u.Email || p.DisplayName != u.Name {
		t.Errorf("Expected profile seeded from account metadata, got %+v", p)
	}

	again, err := repo.ResolveByAuthID(u.ID)
	if err != nil {
		t.Fatalf("second ResolveByAuthID failed: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("Expected the same profile row, got %d and %d", p.ID, again.ID)
	}
}
