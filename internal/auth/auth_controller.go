package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/questhall/questhall/config"
	"github.com/questhall/questhall/internal/middleware"
	"github.com/questhall/questhall/internal/user"
	"github.com/questhall/questhall/pkg/token"
	pkgutils "github.com/questhall/questhall/pkg/utils"
	pkgvalidator "github.com/questhall/questhall/pkg/validator"
	"github.com/questhall/questhall/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthController struct {
	repo   AuthRepository
	config *config.Config
}

func NewAuthController(repo AuthRepository, cfg *config.Config) *AuthController {
	return &AuthController{
		repo:   repo,
		config: cfg,
	}
}

func (ac *AuthController) generateAndSaveTokens(u *user.User) (string, string, error) {
	accessToken, err := token.GenerateJWT(u.ID, u.Role, ac.config.JWT.AccessTokenSecret, ac.config.JWT.AccessTokenExpiryMinutes)
	if err != nil {
		return "", "", fmt.Errorf("access token generation failed: %w", err)
	}

	refreshTokenString := pkgutils.GenerateRandomToken(64)
	if refreshTokenString == "" {
		return "", "", errors.New("refresh token generation failed")
	}

	refreshToken := &user.RefreshToken{
		UserID:    u.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().AddDate(0, 0, ac.config.JWT.RefreshTokenExpiryDays),
	}

	if err := ac.repo.SaveRefreshToken(refreshToken); err != nil {
		return "", "", fmt.Errorf("failed to save refresh token: %w", err)
	}
	return accessToken, refreshTokenString, nil
}

// Register godoc
// @Summary      Register a new account
// @Description  Create an account with name, email and password.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        user  body  RegisterRequest  true  "Registration details"
// @Success      201   {object} AuthResponse
// @Failure      400   {object} responses.ErrorResponse
// @Failure      409   {object} responses.ErrorResponse
// @Failure      500   {object} responses.ErrorResponse
// @Router       /auth/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": pkgvalidator.ParseError(err)})
		return
	}

	if _, err := ac.repo.GetUserByEmail(strings.ToLower(req.Email)); !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error hashing password"})
		return
	}

	newUser := &user.User{
		Name:      req.Name,
		Email:     strings.ToLower(req.Email),
		Password:  hashedPassword,
		AvatarURL: req.AvatarURL,
		Role:      user.RoleStudent,
	}

	if err := ac.repo.CreateUser(newUser); err != nil {
		config.Log.Error("user creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User creation failed"})
		return
	}

	accessToken, refreshToken, err := ac.generateAndSaveTokens(newUser)
	if err != nil {
		config.Log.Error("token issuance failed", zap.Error(err), zap.Uint("user_id", newUser.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         FilterUserRecord(newUser),
	})
}

// Login godoc
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  LoginRequest  true  "Login credentials"
// @Success      200  {object} AuthResponse
// @Failure      400  {object} responses.ErrorResponse
// @Failure      401  {object} responses.ErrorResponse
// @Router       /auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": pkgvalidator.ParseError(err)})
		return
	}

	u, err := ac.repo.GetUserByEmail(strings.ToLower(req.Email))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !utils.CheckPassword(u.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	accessToken, refreshToken, err := ac.generateAndSaveTokens(u)
	if err != nil {
		config.Log.Error("token issuance failed", zap.Error(err), zap.Uint("user_id", u.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         FilterUserRecord(u),
	})
}

// RefreshToken godoc
// @Summary      Exchange a refresh token for a new token pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        refresh  body  RefreshTokenRequest  true  "Refresh token"
// @Success      200  {object} AuthResponse
// @Failure      401  {object} responses.ErrorResponse
// @Router       /auth/refresh-token [post]
func (ac *AuthController) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	stored, err := ac.repo.GetRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	u, err := ac.repo.GetUserByID(stored.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	// Rotate: the presented token is single-use.
	if err := ac.repo.InvalidateRefreshToken(req.RefreshToken); err != nil {
		config.Log.Warn("failed to revoke used refresh token", zap.Error(err), zap.Uint("user_id", u.ID))
	}

	accessToken, refreshToken, err := ac.generateAndSaveTokens(u)
	if err != nil {
		config.Log.Error("token issuance failed", zap.Error(err), zap.Uint("user_id", u.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         FilterUserRecord(u),
	})
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the presented refresh token, or every session for the account.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        logout  body  LogoutRequest  false  "Logout options"
// @Success      200  {object} map[string]bool
// @Failure      401  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /auth/logout [post]
func (ac *AuthController) Logout(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req LogoutRequest
	_ = c.ShouldBindJSON(&req) // Empty body means "revoke nothing specific"

	if req.InvalidateAllSessions {
		if err := ac.repo.InvalidateAllRefreshTokensForUser(userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate sessions"})
			return
		}
	} else if req.RefreshToken != "" {
		if err := ac.repo.InvalidateRefreshToken(req.RefreshToken); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate refresh token"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me godoc
// @Summary      Get the authenticated account
// @Tags         Auth
// @Produce      json
// @Success      200  {object} UserResponse
// @Failure      401  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /auth/me [get]
func (ac *AuthController) Me(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	u, err := ac.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	c.JSON(http.StatusOK, FilterUserRecord(u))
}
