package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/questhall/questhall/internal/profile"
	"github.com/questhall/questhall/internal/stats"
	"github.com/questhall/questhall/internal/user"
	"github.com/questhall/questhall/pkg/responses"
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
	err = db.AutoMigrate(
		&user.User{},
		&profile.Role{}, &profile.Profile{},
		&Job{}, &JobApplication{},
		&stats.Rank{}, &stats.UserStats{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if err := profile.NewProfileRepository(db).SeedRoles(); err != nil {
		t.Fatalf("Failed to seed roles: %v", err)
	}
	return db
}

func setupRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	JobRoutes(r.Group("/api"), db, testSecret)
	return r
}

// createAccount inserts an identity account and resolves its profile so
// tests can reference the profile id.
func createAccount(t *testing.T, db *gorm.DB, name, email, role string) (*user.User, *profile.Profile) {
	u := &user.User{Name: name, Email: email, Role: role}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	p, err := profile.NewProfileRepository(db).ResolveByAuthID(u.ID)
	if err != nil {
		t.Fatalf("Failed to resolve profile: %v", err)
	}
	return u, p
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

func TestApplyCreatesPendingApplication(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	_, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	applicant, _ := createAccount(t, db, "Applicant", "applicant@example.com", user.RoleStudent)

	j := Job{Title: "Fetch quest", Status: StatusOpen, Slots: 2, RewardXP: 10, CreatedByID: owner.ID}
	if err := db.Create(&j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/apply", bearerFor(t, applicant), ApplyRequest{JobID: j.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Application JobApplication `json:"application"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Application.Status != AppStatusPending {
		t.Errorf("Expected pending application, got %q", body.Application.Status)
	}
	if body.Application.JobID != j.ID {
		t.Errorf("Expected application on job %d, got %d", j.ID, body.Application.JobID)
	}
}

func TestApplyTwiceConflicts(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	_, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	applicant, _ := createAccount(t, db, "Applicant", "applicant@example.com", user.RoleStudent)

	j := Job{Title: "Fetch quest", Status: StatusOpen, CreatedByID: owner.ID}
	if err := db.Create(&j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	auth := bearerFor(t, applicant)
	path := fmt.Sprintf("/api/jobs/%d/applications", j.ID)
	if w := doJSON(t, r, http.MethodPost, path, auth, nil); w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 on first apply, got %d: %s", w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodPost, path, auth, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on second apply, got %d: %s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "Already applied" {
		t.Errorf("Expected \"Already applied\", got %q", msg)
	}
}

func TestApplyToClosedOrMissingJob(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	_, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	applicant, _ := createAccount(t, db, "Applicant", "applicant@example.com", user.RoleStudent)
	auth := bearerFor(t, applicant)

	closed := Job{Title: "Closed quest", Status: "closed", CreatedByID: owner.ID}
	if err := db.Create(&closed).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/apply", auth, ApplyRequest{JobID: closed.ID})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for closed job, got %d: %s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "Job is not open" {
		t.Errorf("Expected \"Job is not open\", got %q", msg)
	}

	w = doJSON(t, r, http.MethodPost, "/api/apply", auth, ApplyRequest{JobID: 424242})
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown job, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateApplicationRequiresOwnerOrAdmin(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	ownerAccount, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	applicant, applicantProfile := createAccount(t, db, "Applicant", "applicant@example.com", user.RoleStudent)

	j := Job{Title: "Guard duty", Status: StatusOpen, CreatedByID: owner.ID}
	if err := db.Create(&j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	app := JobApplication{JobID: j.ID, UserID: applicantProfile.ID, Status: AppStatusPending}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	path := fmt.Sprintf("/api/jobs/%d/applications/%d", j.ID, app.ID)

	// The applicant is neither owner nor admin.
	w := doJSON(t, r, http.MethodPatch, path, bearerFor(t, applicant), UpdateApplicationRequest{Status: AppStatusAccepted})
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-owner, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPatch, path, bearerFor(t, ownerAccount), UpdateApplicationRequest{Status: AppStatusAccepted})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for owner, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPatch, path, bearerFor(t, ownerAccount), UpdateApplicationRequest{Status: "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for invalid status, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAcceptRespectsSlotLimit(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	ownerAccount, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	_, first := createAccount(t, db, "First", "first@example.com", user.RoleStudent)
	_, second := createAccount(t, db, "Second", "second@example.com", user.RoleStudent)

	j := Job{Title: "Single slot", Status: StatusOpen, Slots: 1, CreatedByID: owner.ID}
	if err := db.Create(&j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	appA := JobApplication{JobID: j.ID, UserID: first.ID, Status: AppStatusPending}
	appB := JobApplication{JobID: j.ID, UserID: second.ID, Status: AppStatusPending}
	if err := db.Create(&appA).Error; err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}
	if err := db.Create(&appB).Error; err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	auth := bearerFor(t, ownerAccount)
	w := doJSON(t, r, http.MethodPatch,
		fmt.Sprintf("/api/jobs/%d/applications/%d", j.ID, appA.ID),
		auth, UpdateApplicationRequest{Status: AppStatusAccepted})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for first accept, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPatch,
		fmt.Sprintf("/api/jobs/%d/applications/%d", j.ID, appB.ID),
		auth, UpdateApplicationRequest{Status: AppStatusAccepted})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 when slots exhausted, got %d: %s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "No slots available" {
		t.Errorf("Expected \"No slots available\", got %q", msg)
	}

	// Rejecting the second applicant still works.
	w = doJSON(t, r, http.MethodPatch,
		fmt.Sprintf("/api/jobs/%d/applications/%d", j.ID, appB.ID),
		auth, UpdateApplicationRequest{Status: AppStatusRejected})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for reject, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUnlimitedSlotsNeverBlockAccept(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	ownerAccount, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	_, first := createAccount(t, db, "First", "first@example.com", user.RoleStudent)
	_, second := createAccount(t, db, "Second", "second@example.com", user.RoleStudent)

	j := Job{Title: "Open call", Status: StatusOpen, Slots: 0, CreatedByID: owner.ID}
	if err := db.Create(&j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	auth := bearerFor(t, ownerAccount)
	for _, p := range []*profile.Profile{first, second} {
		app := JobApplication{JobID: j.ID, UserID: p.ID, Status: AppStatusPending}
		if err := db.Create(&app).Error; err != nil {
			t.Fatalf("Failed to create application: %v", err)
		}
		w := doJSON(t, r, http.MethodPatch,
			fmt.Sprintf("/api/jobs/%d/applications/%d", j.ID, app.ID),
			auth, UpdateApplicationRequest{Status: AppStatusAccepted})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200 with unlimited slots, got %d: %s", w.Code, w.Body.String())
		}
	}
}

func TestCompletionAwardsRewardXP(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	ownerAccount, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	_, applicant := createAccount(t, db, "Applicant", "applicant@example.com", user.RoleStudent)

	j := Job{Title: "Paid quest", Status: StatusOpen, RewardXP: 50, CreatedByID: owner.ID}
	if err := db.Create(&j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	app := JobApplication{JobID: j.ID, UserID: applicant.ID, Status: AppStatusAccepted}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	w := doJSON(t, r, http.MethodPatch,
		fmt.Sprintf("/api/jobs/%d/applications/%d", j.ID, app.ID),
		bearerFor(t, ownerAccount), UpdateApplicationRequest{Status: AppStatusCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for completion, got %d: %s", w.Code, w.Body.String())
	}

	s, err := stats.NewStatsRepository(db).GetStats(applicant.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if s == nil || s.XP != 50 {
		t.Errorf("Expected 50 XP settled on completion, got %+v", s)
	}

	// Completing again re-awards; the workflow trusts the operator.
	w = doJSON(t, r, http.MethodPatch,
		fmt.Sprintf("/api/jobs/%d/applications/%d", j.ID, app.ID),
		bearerFor(t, ownerAccount), UpdateApplicationRequest{Status: AppStatusCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for repeat completion, got %d: %s", w.Code, w.Body.String())
	}
	s, err = stats.NewStatsRepository(db).GetStats(applicant.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if s.XP != 100 {
		t.Errorf("Expected 100 XP after second completion, got %d", s.XP)
	}
}

func TestListApplicationsVisibility(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	ownerAccount, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	applicantAccount, applicant := createAccount(t, db, "Applicant", "applicant@example.com", user.RoleStudent)
	adminAccount, _ := createAccount(t, db, "Admin", "admin@example.com", user.RoleAdmin)

	j := Job{Title: "Escort quest", Status: StatusOpen, CreatedByID: owner.ID}
	if err := db.Create(&j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	app := JobApplication{JobID: j.ID, UserID: applicant.ID, Status: AppStatusPending}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	path := fmt.Sprintf("/api/jobs/%d/applications", j.ID)

	if w := doJSON(t, r, http.MethodGet, path, bearerFor(t, applicantAccount), nil); w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for applicant, got %d: %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodGet, path, bearerFor(t, ownerAccount), nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for owner, got %d: %s", w.Code, w.Body.String())
	}

	// The admin permission path reads the profile role reference, which
	// promotion sets; simulate an already-promoted admin.
	adminProfile, err := profile.NewProfileRepository(db).ResolveByAuthID(adminAccount.ID)
	if err != nil {
		t.Fatalf("Failed to resolve admin profile: %v", err)
	}
	if err := profile.NewProfileRepository(db).PromoteProfile(adminProfile.AuthID); err != nil {
		t.Fatalf("Failed to promote admin profile: %v", err)
	}
	w := doJSON(t, r, http.MethodGet, path, bearerFor(t, adminAccount), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Applications []ApplicationWithProfile `json:"applications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(body.Applications) != 1 {
		t.Fatalf("Expected 1 application, got %d", len(body.Applications))
	}
	if body.Applications[0].Profile.DisplayName != "Applicant" {
		t.Errorf("Expected joined applicant profile, got %+v", body.Applications[0].Profile)
	}
}

func TestAdminJobCRUD(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	studentAccount, _ := createAccount(t, db, "Student", "student@example.com", user.RoleStudent)
	adminAccount, _ := createAccount(t, db, "Admin", "admin@example.com", user.RoleAdmin)

	if w := doJSON(t, r, http.MethodGet, "/api/admin/jobs", bearerFor(t, studentAccount), nil); w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for student on admin listing, got %d: %s", w.Code, w.Body.String())
	}

	auth := bearerFor(t, adminAccount)
	w := doJSON(t, r, http.MethodPost, "/api/admin/jobs", auth, CreateJobRequest{Title: "New quest", RewardXP: 25, Slots: 3})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 on create, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Data Job `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if created.Data.Status != StatusOpen {
		t.Errorf("Expected new job to open, got %q", created.Data.Status)
	}

	if w := doJSON(t, r, http.MethodPost, "/api/admin/jobs", auth, map[string]any{"reward_xp": 5}); w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 without title, got %d: %s", w.Code, w.Body.String())
	}

	newTitle := "Renamed quest"
	path := fmt.Sprintf("/api/admin/jobs/%d", created.Data.ID)
	if w := doJSON(t, r, http.MethodPatch, path, auth, UpdateJobRequest{Title: &newTitle}); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on update, got %d: %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodPatch, "/api/admin/jobs/424242", auth, UpdateJobRequest{Title: &newTitle}); w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 updating unknown job, got %d: %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, r, http.MethodDelete, path, auth, nil); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 on delete, got %d: %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodDelete, path, auth, nil); w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 deleting twice, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminJobListingPaginates(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(t, db)

	adminAccount, admin := createAccount(t, db, "Admin", "admin@example.com", user.RoleAdmin)
	for i := 0; i < 3; i++ {
		j := Job{Title: fmt.Sprintf("Quest %d", i), Status: StatusOpen, CreatedByID: admin.ID}
		if err := db.Create(&j).Error; err != nil {
			t.Fatalf("Failed to create job: %v", err)
		}
	}

	auth := bearerFor(t, adminAccount)
	w := doJSON(t, r, http.MethodGet, "/api/admin/jobs?page=1&pageSize=2", auth, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data       []Job                `json:"data"`
		Pagination responses.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("Expected 2 jobs on page 1, got %d", len(body.Data))
	}
	if body.Pagination.TotalItems != 3 || body.Pagination.TotalPages != 2 {
		t.Errorf("Expected 3 items over 2 pages, got %+v", body.Pagination)
	}
	if !body.Pagination.HasNextPage || body.Pagination.NextPage == nil || *body.Pagination.NextPage != 2 {
		t.Errorf("Expected a next page of 2, got %+v", body.Pagination)
	}

	w = doJSON(t, r, http.MethodGet, "/api/admin/jobs?page=2&pageSize=2", auth, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on page 2, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(body.Data) != 1 {
		t.Errorf("Expected 1 job on page 2, got %d", len(body.Data))
	}
	if body.Pagination.HasNextPage || !body.Pagination.HasPrevPage {
		t.Errorf("Expected the last page, got %+v", body.Pagination)
	}
}

func TestDeleteJobRemovesApplications(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepository(db)

	_, owner := createAccount(t, db, "Owner", "owner@example.com", user.RoleStudent)
	_, applicant := createAccount(t, db, "Applicant", "applicant@example.com", user.RoleStudent)

	j := Job{Title: "Doomed quest", Status: StatusOpen, CreatedByID: owner.ID}
	if err := db.Create(&j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	app := JobApplication{JobID: j.ID, UserID: applicant.ID, Status: AppStatusPending}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	if err := repo.DeleteJob(j.ID); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}

	got, err := repo.GetJobByID(j.ID)
	if err != nil {
		t.Fatalf("GetJobByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected job %d gone, got %+v", j.ID, got)
	}

	var count int64
	if err := db.Model(&JobApplication{}).Where("job_id = ?", j.ID).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count applications: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected applications deleted with the job, found %d", count)
	}
}
