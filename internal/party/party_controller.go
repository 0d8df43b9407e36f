package party

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/questhall/questhall/config"
	"github.com/questhall/questhall/internal/middleware"
	"github.com/questhall/questhall/internal/profile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PartyController handles party creation, listing, editing and the
// membership workflow.
type PartyController struct {
	repo        PartyRepository
	profileRepo profile.ProfileRepository
}

func NewPartyController(repo PartyRepository, profileRepo profile.ProfileRepository) *PartyController {
	return &PartyController{repo: repo, profileRepo: profileRepo}
}

func (pc *PartyController) resolveProfile(c *gin.Context) *profile.Profile {
	authID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil
	}
	p, err := pc.profileRepo.ResolveByAuthID(authID)
	if err != nil {
		config.Log.Error("profile resolution failed", zap.Error(err), zap.Uint("auth_id", authID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return nil
	}
	return p
}

func (pc *PartyController) isLeaderOrAdmin(p *profile.Profile, leaderID uint) (bool, error) {
	if p.ID == leaderID {
		return true, nil
	}
	return pc.profileRepo.IsAdmin(p)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return uint(id), true
}

// CreateParty godoc
// @Summary      Create a party
// @Description  The caller becomes leader and first member in the same transaction.
// @Tags         Parties
// @Accept       json
// @Produce      json
// @Param        party  body  CreatePartyRequest  true  "Party fields"
// @Success      201  {object} map[string]Party
// @Failure      400  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /parties [post]
func (pc *PartyController) CreateParty(c *gin.Context) {
	p := pc.resolveProfile(c)
	if p == nil {
		return
	}

	var req CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if req.MinRankID != nil {
		exists, err := pc.repo.RankExists(*req.MinRankID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate rank"})
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_rank_id does not reference a valid rank"})
			return
		}
	}

	party := &Party{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		MinRankID:   req.MinRankID,
		LeaderID:    p.ID,
	}
	if err := pc.repo.CreatePartyWithLeader(party); err != nil {
		config.Log.Error("party creation failed", zap.Error(err), zap.Uint("leader_id", p.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create party"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"party": party})
}

// ListParties godoc
// @Summary      List parties
// @Description  Newest first. Pass includeMembers=true to embed member rows with profile fields.
// @Tags         Parties
// @Produce      json
// @Param        includeMembers  query  bool  false  "Embed members"
// @Success      200  {object} map[string][]PartyWithMembers
// @Router       /parties [get]
func (pc *PartyController) ListParties(c *gin.Context) {
	parties, err := pc.repo.ListParties()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch parties"})
		return
	}

	if c.Query("includeMembers") != "true" {
		c.JSON(http.StatusOK, gin.H{"parties": parties})
		return
	}

	members, err := pc.repo.ListAllMembers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}
	byParty := make(map[uint][]MemberWithProfile, len(parties))
	for _, m := range members {
		byParty[m.PartyID] = append(byParty[m.PartyID], m)
	}

	out := make([]PartyWithMembers, 0, len(parties))
	for _, party := range parties {
		ms := byParty[party.ID]
		if ms == nil {
			ms = []MemberWithProfile{}
		}
		out = append(out, PartyWithMembers{Party: party, Members: ms})
	}
	c.JSON(http.StatusOK, gin.H{"parties": out})
}

// GetParty godoc
// @Summary      Get a party with its members
// @Tags         Parties
// @Produce      json
// @Param        party_id  path  uint  true  "Party ID"
// @Success      200  {object} map[string]PartyWithMembers
// @Failure      404  {object} responses.ErrorResponse
// @Router       /parties/{party_id} [get]
func (pc *PartyController) GetParty(c *gin.Context) {
	partyID, ok := parseID(c, "party_id")
	if !ok {
		return
	}

	party, err := pc.repo.GetPartyByID(partyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch party"})
		return
	}
	if party == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}

	members, err := pc.repo.ListMembers(partyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"party": party, "members": members})
}

// ListMembers godoc
// @Summary      List a party's members
// @Tags         Parties
// @Produce      json
// @Param        party_id  path  uint  true  "Party ID"
// @Success      200  {object} map[string][]MemberWithProfile
// @Failure      404  {object} responses.ErrorResponse
// @Router       /parties/{party_id}/members [get]
func (pc *PartyController) ListMembers(c *gin.Context) {
	partyID, ok := parseID(c, "party_id")
	if !ok {
		return
	}

	party, err := pc.repo.GetPartyByID(partyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch party"})
		return
	}
	if party == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}

	members, err := pc.repo.ListMembers(partyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// UpdateParty godoc
// @Summary      Edit a party
// @Description  Leader or admin only.
// @Tags         Parties
// @Accept       json
// @Produce      json
// @Param        party_id  path  uint  true  "Party ID"
// @Param        party  body  UpdatePartyRequest  true  "Fields to update"
// @Success      200  {object} map[string]Party
// @Failure      400  {object} responses.ErrorResponse "No updates provided"
// @Failure      403  {object} responses.ErrorResponse
// @Failure      404  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /parties/{party_id} [patch]
func (pc *PartyController) UpdateParty(c *gin.Context) {
	partyID, ok := parseID(c, "party_id")
	if !ok {
		return
	}

	p := pc.resolveProfile(c)
	if p == nil {
		return
	}

	party, err := pc.repo.GetPartyByID(partyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch party"})
		return
	}
	if party == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}

	allowed, err := pc.isLeaderOrAdmin(p, party.LeaderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve role"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req UpdatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if req.Name == nil && req.Description == nil && req.Category == nil && req.MinRankID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No updates provided"})
		return
	}

	if req.MinRankID != nil {
		exists, err := pc.repo.RankExists(*req.MinRankID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate rank"})
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_rank_id does not reference a valid rank"})
			return
		}
		party.MinRankID = req.MinRankID
	}
	if req.Name != nil {
		party.Name = *req.Name
	}
	if req.Description != nil {
		party.Description = *req.Description
	}
	if req.Category != nil {
		party.Category = *req.Category
	}

	if err := pc.repo.UpdateParty(party); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update party"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"party": party})
}

// JoinParty godoc
// @Summary      Join a party
// @Tags         Parties
// @Produce      json
// @Param        party_id  path  uint  true  "Party ID"
// @Success      201  {object} map[string]MemberWithProfile
// @Failure      404  {object} responses.ErrorResponse
// @Failure      409  {object} responses.ErrorResponse "Already a member"
// @Security     ApiKeyAuth
// @Router       /parties/{party_id}/members [post]
func (pc *PartyController) JoinParty(c *gin.Context) {
	partyID, ok := parseID(c, "party_id")
	if !ok {
		return
	}

	p := pc.resolveProfile(c)
	if p == nil {
		return
	}

	party, err := pc.repo.GetPartyByID(partyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch party"})
		return
	}
	if party == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}

	existing, err := pc.repo.GetMemberByUser(partyID, p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already a member"})
		return
	}

	member, err := pc.repo.AddMember(partyID, p.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Already a member"})
			return
		}
		config.Log.Error("join failed", zap.Error(err), zap.Uint("party_id", partyID), zap.Uint("user_id", p.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join party"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"member": MemberWithProfile{
		ID:        member.ID,
		PartyID:   member.PartyID,
		UserID:    member.UserID,
		Role:      member.Role,
		CreatedAt: member.CreatedAt,
		Profile: profile.PublicProfile{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
		},
	}})
}

// RemoveMember godoc
// @Summary      Remove a party member
// @Description  The member themselves, the party leader or an admin may remove a membership.
// @Tags         Parties
// @Param        party_id   path  uint  true  "Party ID"
// @Param        member_id  path  uint  true  "Membership ID"
// @Success      204  "removed"
// @Failure      403  {object} responses.ErrorResponse
// @Failure      404  {object} responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /parties/{party_id}/members/{member_id} [delete]
func (pc *PartyController) RemoveMember(c *gin.Context) {
	partyID, ok := parseID(c, "party_id")
	if !ok {
		return
	}
	memberID, ok := parseID(c, "member_id")
	if !ok {
		return
	}

	p := pc.resolveProfile(c)
	if p == nil {
		return
	}

	party, err := pc.repo.GetPartyByID(partyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch party"})
		return
	}
	if party == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}

	member, err := pc.repo.GetMember(partyID, memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch member"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	allowed := member.UserID == p.ID || party.LeaderID == p.ID
	if !allowed {
		isAdmin, err := pc.profileRepo.IsAdmin(p)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve role"})
			return
		}
		allowed = isAdmin
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if err := pc.repo.RemoveMember(memberID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	c.Status(http.StatusNoContent)
}
