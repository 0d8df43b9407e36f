package profile

import (
	"net/http"

	"github.com/questhall/questhall/config"
	"github.com/questhall/questhall/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProfileController handles profile resolution, self-updates and the
// admin invite promotion.
type ProfileController struct {
	repo      ProfileRepository
	appConfig *config.Config
}

func NewProfileController(repo ProfileRepository, appConfig *config.Config) *ProfileController {
	return &ProfileController{
		repo:      repo,
		appConfig: appConfig,
	}
}

// resolveProfile pulls the caller's profile, creating it on first access.
// It writes the error response itself and returns nil when the caller
// cannot proceed.
func (pc *ProfileController) resolveProfile(c *gin.Context) *Profile {
	authID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil
	}

	p, err := pc.repo.ResolveByAuthID(authID)
	if err != nil {
		config.Log.Error("profile resolution failed", zap.Error(err), zap.Uint("auth_id", authID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return nil
	}
	return p
}

// Me godoc
// @Summary      Get (or lazily create) the caller's profile
// @Tags         Profiles
// @Produce      json
// @Success      200  {object} Profile
// @Failure      401  {object} responses.ErrorResponse
// @Failure      500  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /profiles/me [get]
func (pc *ProfileController) Me(c *gin.Context) {
	p := pc.resolveProfile(c)
	if p == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// UpdateMe godoc
// @Summary      Update the caller's display fields
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Param        profile  body  UpdateProfileRequest  true  "Fields to update"
// @Success      200  {object} Profile
// @Failure      400  {object} responses.ErrorResponse
// @Failure      401  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /profiles/me [patch]
func (pc *ProfileController) UpdateMe(c *gin.Context) {
	p := pc.resolveProfile(c)
	if p == nil {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	updated := false
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
		updated = true
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
		updated = true
	}
	if req.DisplayName != nil {
		p.DisplayName = *req.DisplayName
		updated = true
	}
	if req.AvatarURL != nil {
		p.AvatarURL = *req.AvatarURL
		updated = true
	}
	if !updated {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No updates provided"})
		return
	}

	if err := pc.repo.Update(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// Invite godoc
// @Summary      Redeem an admin invite code
// @Description  Matches the submitted code against the server-held secret and, on success, promotes the caller to admin in both the identity account and the profile record.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        invite  body  InviteRequest  true  "Invite code"
// @Success      200  {object} map[string]bool
// @Failure      400  {object} responses.ErrorResponse "invalid"
// @Failure      401  {object} responses.ErrorResponse "unauthenticated"
// @Failure      500  {object} responses.ErrorResponse "missing"
// @Security     ApiKeyAuth
// @Router       /admin/invite [post]
func (pc *ProfileController) Invite(c *gin.Context) {
	var req InviteRequest
	_ = c.ShouldBindJSON(&req)

	expected := pc.appConfig.Admin.InviteCode
	if expected == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing"})
		return
	}

	if req.Code != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid"})
		return
	}

	authID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	// Ensure the profile row exists before touching its role reference.
	if p, err := pc.repo.ResolveByAuthID(authID); err != nil || p == nil {
		config.Log.Error("profile resolution failed during promotion", zap.Error(err), zap.Uint("auth_id", authID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	if err := pc.repo.PromoteAccount(authID); err != nil {
		config.Log.Error("account promotion failed", zap.Error(err), zap.Uint("auth_id", authID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	// Best-effort second write; a failure here leaves the account
	// promoted and is only logged.
	if err := pc.repo.PromoteProfile(authID); err != nil {
		config.Log.Warn("profile promotion failed", zap.Error(err), zap.Uint("auth_id", authID))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
