package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/services"
	"messenger-service/internal/telemetry"
)

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groups   *services.GroupService
	users    *services.UserService
	notifier Notifier
	audit    *telemetry.AuditEmitter
	logger   *zap.Logger
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups *services.GroupService, users *services.UserService, notifier Notifier, audit *telemetry.AuditEmitter, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, users: users, notifier: notifier, audit: audit, logger: logger}
}

type membersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string      `json:"name" binding:"required"`
		MemberIDs []uuid.UUID `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	ownerID, ownerName := currentUser(c)
	group, err := h.groups.CreateGroup(ctx, req.Name, ownerID, req.MemberIDs)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "could not create group")
		respondError(c, h.logger, err)
		return
	}

	memberIDs, err := h.groups.MemberIDs(ctx, group.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	event := groupUpdated(group, ownerName, ownerName)
	h.notifier.NotifyUsers(ctx, memberIDs, models.MustEnvelope(models.EventGroupUpdated, event))

	emitAudit(c, h.audit, "INFO", "Group created")
	c.JSON(http.StatusCreated, event)
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	userID, _ := currentUser(c)
	groups, err := h.groups.ListUserGroups(c.Request.Context(), userID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// AddMembers handles POST /groups/:group_id/members. New members are notified.
func (h *GroupHandler) AddMembers(c *gin.Context) {
	group, req, ok := h.loadForUpdate(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	for _, userID := range req.UserIDs {
		if _, err := h.groups.AddMember(ctx, group.ID, userID); err != nil {
			emitAudit(c, h.audit, "ERROR", "could not add member")
			respondError(c, h.logger, err)
			return
		}
	}

	_, inviter := currentUser(c)
	event := groupUpdated(group, h.ownerName(ctx, group), inviter)
	h.notifier.NotifyUsers(ctx, req.UserIDs, models.MustEnvelope(models.EventGroupUpdated, event))

	emitAudit(c, h.audit, "INFO", "Group members added")
	c.JSON(http.StatusOK, gin.H{"detail": "Members added"})
}

// RemoveMembers handles DELETE /groups/:group_id/members. Removing the owner
// fails the whole request before any member is removed.
func (h *GroupHandler) RemoveMembers(c *gin.Context) {
	group, req, ok := h.loadForUpdate(c)
	if !ok {
		return
	}
	if lo.Contains(req.UserIDs, group.OwnerID) {
		emitAudit(c, h.audit, "ERROR", "owner removal forbidden")
		respondError(c, h.logger, services.ErrOwnerRemovalForbidden)
		return
	}

	ctx := c.Request.Context()
	for _, userID := range req.UserIDs {
		if err := h.groups.RemoveMember(ctx, group.ID, userID); err != nil {
			emitAudit(c, h.audit, "ERROR", "could not remove member")
			respondError(c, h.logger, err)
			return
		}
	}

	remaining, err := h.groups.MemberIDs(ctx, group.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	_, inviter := currentUser(c)
	event := groupUpdated(group, h.ownerName(ctx, group), inviter)
	h.notifier.NotifyUsers(ctx, lo.Union(remaining, req.UserIDs), models.MustEnvelope(models.EventGroupUpdated, event))

	emitAudit(c, h.audit, "INFO", "Group members removed")
	c.JSON(http.StatusOK, gin.H{"detail": "Members removed"})
}

// ListMembers handles GET /groups/:group_id/members.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	groupID, ok := parseUUIDParam(c, "group_id")
	if !ok {
		return
	}
	page, ok := parsePage(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	userID, _ := currentUser(c)
	if _, err := h.groups.GetByID(ctx, groupID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.groups.RequireMember(ctx, groupID, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	members, err := h.groups.ListMembers(ctx, groupID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// loadForUpdate parses the group id and member list and checks that the
// caller belongs to the group.
func (h *GroupHandler) loadForUpdate(c *gin.Context) (models.Group, membersRequest, bool) {
	groupID, ok := parseUUIDParam(c, "group_id")
	if !ok {
		return models.Group{}, membersRequest{}, false
	}
	var req membersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Group{}, membersRequest{}, false
	}

	ctx := c.Request.Context()
	group, err := h.groups.GetByID(ctx, groupID)
	if err != nil {
		respondError(c, h.logger, err)
		return models.Group{}, membersRequest{}, false
	}
	userID, _ := currentUser(c)
	if err := h.groups.RequireMember(ctx, groupID, userID); err != nil {
		emitAudit(c, h.audit, "ERROR", "not allowed")
		respondError(c, h.logger, err)
		return models.Group{}, membersRequest{}, false
	}
	return group, req, true
}

func (h *GroupHandler) ownerName(ctx context.Context, group models.Group) string {
	owner, err := h.users.GetByID(ctx, group.OwnerID)
	if err != nil {
		h.logger.Warn("owner lookup failed", zap.Stringer("group_id", group.ID), zap.Error(err))
		return ""
	}
	return owner.Name
}

func groupUpdated(group models.Group, owner, inviter string) models.GroupUpdatedPayload {
	return models.GroupUpdatedPayload{
		ID:      group.ID,
		Name:    group.Name,
		Owner:   owner,
		Inviter: inviter,
		ChatID:  group.ChatID,
	}
}
