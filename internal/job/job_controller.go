package job

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/questhall/questhall/config"
	"github.com/questhall/questhall/internal/middleware"
	"github.com/questhall/questhall/internal/profile"
	"github.com/questhall/questhall/internal/stats"
	"github.com/questhall/questhall/pkg/responses"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JobController handles job listings, the application workflow and the
// admin-side CRUD.
type JobController struct {
	repo        JobRepository
	profileRepo profile.ProfileRepository
	statsRepo   stats.StatsRepository
}

func NewJobController(repo JobRepository, profileRepo profile.ProfileRepository, statsRepo stats.StatsRepository) *JobController {
	return &JobController{
		repo:        repo,
		profileRepo: profileRepo,
		statsRepo:   statsRepo,
	}
}

func (jc *JobController) resolveProfile(c *gin.Context) *profile.Profile {
	authID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil
	}
	p, err := jc.profileRepo.ResolveByAuthID(authID)
	if err != nil {
		config.Log.Error("profile resolution failed", zap.Error(err), zap.Uint("auth_id", authID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return nil
	}
	return p
}

// isOwnerOrAdmin applies the shared permission rule: the resource owner
// or a caller whose role resolves to admin.
func (jc *JobController) isOwnerOrAdmin(p *profile.Profile, ownerID uint) (bool, error) {
	if p.ID == ownerID {
		return true, nil
	}
	return jc.profileRepo.IsAdmin(p)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return uint(id), true
}

// ListJobs godoc
// @Summary      List open jobs
// @Description  Open jobs only, newest first. Supports difficulty (rank name), category, datePosted, limit and offset.
// @Tags         Jobs
// @Produce      json
// @Param        difficulty  query  string  false  "Rank name"
// @Param        category    query  string  false  "Category"
// @Param        datePosted  query  string  false  "Last Week | Last Month"
// @Param        limit       query  int     false  "Page size (default 50)"
// @Param        offset      query  int     false  "Offset"
// @Success      200  {object} map[string][]Job
// @Router       /jobs [get]
func (jc *JobController) ListJobs(c *gin.Context) {
	filters := ListFilters{}

	if category := c.Query("category"); category != "" && category != "All Categories" {
		filters.Category = category
	}

	if difficulty := c.Query("difficulty"); difficulty != "" && difficulty != "All Difficulties" {
		rankID, err := jc.repo.RankIDByName(difficulty)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve difficulty"})
			return
		}
		filters.RankID = rankID
	}

	switch c.Query("datePosted") {
	case "Last Week":
		since := time.Now().AddDate(0, 0, -7)
		filters.Since = &since
	case "Last Month":
		since := time.Now().AddDate(0, 0, -30)
		filters.Since = &since
	}

	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, err := jc.repo.ListOpenJobs(filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// Apply godoc
// @Summary      Apply to a job
// @Description  Creates a pending application. The job must be open and the caller must not have applied before.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        apply  body  ApplyRequest  true  "Job id"
// @Success      201  {object} map[string]JobApplication
// @Failure      400  {object} responses.ErrorResponse "Job is not open"
// @Failure      404  {object} responses.ErrorResponse
// @Failure      409  {object} responses.ErrorResponse "Already applied"
// @Security     ApiKeyAuth
// @Router       /apply [post]
func (jc *JobController) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JobID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job id"})
		return
	}
	jc.applyToJob(c, req.JobID)
}

// ApplyToJob handles POST /jobs/:job_id/applications.
func (jc *JobController) ApplyToJob(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}
	jc.applyToJob(c, jobID)
}

func (jc *JobController) applyToJob(c *gin.Context, jobID uint) {
	p := jc.resolveProfile(c)
	if p == nil {
		return
	}

	j, err := jc.repo.GetJobByID(jobID)
	if err != nil {
		jc.logApplyFailure(c, jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch job"})
		return
	}
	if j == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if j.Status != StatusOpen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job is not open"})
		return
	}

	existing, err := jc.repo.GetApplicationByJobAndUser(jobID, p.ID)
	if err != nil {
		jc.logApplyFailure(c, jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing application"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already applied"})
		return
	}

	app := &JobApplication{JobID: jobID, UserID: p.ID, Status: AppStatusPending}
	if err := jc.repo.CreateApplication(app); err != nil {
		// A concurrent apply that slipped past the pre-check trips the
		// unique index; report it like the pre-check would have.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Already applied"})
			return
		}
		jc.logApplyFailure(c, jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert application"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (jc *JobController) logApplyFailure(c *gin.Context, jobID uint, err error) {
	config.Log.Error("apply failed",
		zap.Error(err),
		zap.Uint("job_id", jobID),
		zap.String("remote", c.ClientIP()),
		zap.String("url", c.Request.URL.String()),
	)
}

// ListApplications godoc
// @Summary      List a job's applications
// @Description  Job owner or admin only. Includes applicant display fields, newest first.
// @Tags         Jobs
// @Produce      json
// @Param        job_id  path  uint  true  "Job ID"
// @Success      200  {object} map[string][]ApplicationWithProfile
// @Failure      403  {object} responses.ErrorResponse
// @Failure      404  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /jobs/{job_id}/applications [get]
func (jc *JobController) ListApplications(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}

	p := jc.resolveProfile(c)
	if p == nil {
		return
	}

	j, err := jc.repo.GetJobByID(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch job"})
		return
	}
	if j == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	allowed, err := jc.isOwnerOrAdmin(p, j.CreatedByID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve role"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	apps, err := jc.repo.ListApplicationsForJob(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// UpdateApplication godoc
// @Summary      Transition an application's status
// @Description  Job owner or admin only. Accepting enforces the slot limit; completing awards the job's reward XP to the applicant.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        job_id  path  uint  true  "Job ID"
// @Param        app_id  path  uint  true  "Application ID"
// @Param        update  body  UpdateApplicationRequest  true  "Target status"
// @Success      200  {object} map[string]JobApplication
// @Failure      400  {object} responses.ErrorResponse "Invalid status / No slots available"
// @Failure      403  {object} responses.ErrorResponse
// @Failure      404  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /jobs/{job_id}/applications/{app_id} [patch]
func (jc *JobController) UpdateApplication(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}
	appID, ok := parseID(c, "app_id")
	if !ok {
		return
	}

	p := jc.resolveProfile(c)
	if p == nil {
		return
	}

	app, err := jc.repo.GetApplicationForJob(appID, jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch application"})
		return
	}
	if app == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	j, err := jc.repo.GetJobByID(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch job"})
		return
	}
	if j == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	allowed, err := jc.isOwnerOrAdmin(p, j.CreatedByID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve role"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil || !isAllowedStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Allowed: pending, applied, accepted, rejected, completed"})
		return
	}

	// Accepting is gated by the slot limit, only when the job has one.
	if req.Status == AppStatusAccepted && j.Slots > 0 {
		acceptedCount, err := jc.repo.CountAcceptedApplications(jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check accepted count"})
			return
		}
		if acceptedCount >= int64(j.Slots) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No slots available"})
			return
		}
	}

	app.Status = req.Status
	if err := jc.repo.UpdateApplication(app); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update application"})
		return
	}

	// The status change is authoritative: a failed settlement is logged
	// and never rolls it back.
	if req.Status == AppStatusCompleted {
		if _, err := jc.statsRepo.AddXP(app.UserID, j.RewardXP); err != nil {
			config.Log.Error("failed to award XP",
				zap.Error(err),
				zap.Uint("user_id", app.UserID),
				zap.Uint("job_id", jobID),
				zap.Int("reward_xp", j.RewardXP),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{"application": app})
}

func isAllowedStatus(status string) bool {
	for _, allowed := range AllowedAppStatuses {
		if status == allowed {
			return true
		}
	}
	return false
}

// --- Admin handlers ---

// AdminListJobs godoc
// @Summary      List every job
// @Description  Paginated, newest first. Includes non-open postings.
// @Tags         Admin
// @Produce      json
// @Param        page      query  int  false  "Page (default 1)"
// @Param        pageSize  query  int  false  "Page size (default 20, max 100)"
// @Success      200  {object} responses.PaginatedResponse
// @Security     ApiKeyAuth
// @Router       /admin/jobs [get]
func (jc *JobController) AdminListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	total, err := jc.repo.CountJobs()
	if err != nil {
		responses.InternalServerError(c, "Failed to fetch jobs")
		return
	}
	jobs, err := jc.repo.ListAllJobs(pageSize, (page-1)*pageSize)
	if err != nil {
		responses.InternalServerError(c, "Failed to fetch jobs")
		return
	}
	responses.SendPaginated(c, http.StatusOK, "Jobs retrieved", jobs, total, page, pageSize)
}

// AdminCreateJob godoc
// @Summary      Create a job posting
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        job  body  CreateJobRequest  true  "Job fields"
// @Success      201  {object} responses.SuccessResponse{data=Job}
// @Failure      400  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /admin/jobs [post]
func (jc *JobController) AdminCreateJob(c *gin.Context) {
	p := jc.resolveProfile(c)
	if p == nil {
		return
	}

	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "title is required")
		return
	}

	j := &Job{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Status:            StatusOpen,
		Slots:             req.Slots,
		RewardXP:          req.RewardXP,
		Pay:               req.Pay,
		Location:          req.Location,
		RecommendedRankID: req.RecommendedRankID,
		CreatedByID:       p.ID,
	}
	if err := jc.repo.CreateJob(j); err != nil {
		responses.InternalServerError(c, "Failed to create job")
		return
	}
	responses.SendSuccess(c, http.StatusCreated, "Job created", j)
}

// AdminUpdateJob godoc
// @Summary      Edit a job posting
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        job_id  path  uint  true  "Job ID"
// @Param        job  body  UpdateJobRequest  true  "Fields to update"
// @Success      200  {object} responses.SuccessResponse{data=Job}
// @Failure      404  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /admin/jobs/{job_id} [patch]
func (jc *JobController) AdminUpdateJob(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}

	j, err := jc.repo.GetJobByID(jobID)
	if err != nil {
		responses.InternalServerError(c, "Failed to fetch job")
		return
	}
	if j == nil {
		responses.NotFound(c, "Job")
		return
	}

	var req UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "Invalid input: "+err.Error())
		return
	}

	if req.Title != nil {
		j.Title = *req.Title
	}
	if req.Description != nil {
		j.Description = *req.Description
	}
	if req.Category != nil {
		j.Category = *req.Category
	}
	if req.Status != nil {
		j.Status = *req.Status
	}
	if req.RewardXP != nil {
		j.RewardXP = *req.RewardXP
	}
	if req.Slots != nil {
		j.Slots = *req.Slots
	}
	if req.Pay != nil {
		j.Pay = *req.Pay
	}
	if req.Location != nil {
		j.Location = *req.Location
	}
	if req.RecommendedRankID != nil {
		j.RecommendedRankID = req.RecommendedRankID
	}

	if err := jc.repo.UpdateJob(j); err != nil {
		responses.InternalServerError(c, "Failed to update job")
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Job updated", j)
}

// AdminDeleteJob godoc
// @Summary      Delete a job posting
// @Tags         Admin
// @Param        job_id  path  uint  true  "Job ID"
// @Success      204  "deleted"
// @Failure      404  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /admin/jobs/{job_id} [delete]
func (jc *JobController) AdminDeleteJob(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}

	j, err := jc.repo.GetJobByID(jobID)
	if err != nil {
		responses.InternalServerError(c, "Failed to fetch job")
		return
	}
	if j == nil {
		responses.NotFound(c, "Job")
		return
	}

	if err := jc.repo.DeleteJob(jobID); err != nil {
		responses.InternalServerError(c, "Failed to delete job")
		return
	}
	c.Status(http.StatusNoContent)
}
