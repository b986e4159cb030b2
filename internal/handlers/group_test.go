package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

func setupGroupRouter(d *testDeps, audit *telemetry.AuditEmitter, userID uuid.UUID, name string) *gin.Engine {
	h := NewGroupHandler(d.groupSvc, d.userSvc, d.notifier, audit, nopLogger)
	r := newTestRouter(userID, name)
	r.POST("/groups", h.CreateGroup)
	r.GET("/groups", h.ListGroups)
	r.POST("/groups/:group_id/members", h.AddMembers)
	r.DELETE("/groups/:group_id/members", h.RemoveMembers)
	r.GET("/groups/:group_id/members", h.ListMembers)
	return r
}

func TestCreateGroupNotifiesMembersAndAudits(t *testing.T) {
	d := newTestDeps()
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit_log", "messenger-service", "test", nil)
	owner, member := uuid.New(), uuid.New()
	group := models.Group{ID: uuid.New(), Name: "team", OwnerID: owner, ChatID: uuid.New()}
	r := setupGroupRouter(d, audit, owner, "alice")

	d.groups.On("CreateGroup", mock.Anything, "team", owner, []uuid.UUID{member}).Return(group, nil).Once()
	d.users.On("GetByID", mock.Anything, member).Return(models.User{ID: member, Name: "bob"}, nil).Once()
	d.groups.On("MemberIDs", mock.Anything, group.ID).Return([]uuid.UUID{owner, member}, nil).Once()
	expected := models.GroupUpdatedPayload{ID: group.ID, Name: "team", Owner: "alice", Inviter: "alice", ChatID: group.ChatID}
	d.notifier.On("NotifyUsers", mock.Anything, []uuid.UUID{owner, member},
		models.MustEnvelope(models.EventGroupUpdated, expected)).Return().Once()
	pub.On("PublishJSON", mock.Anything, "audit_log", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Level == "INFO" && env.Payload.Text == "Group created" &&
			env.UserID != nil && *env.UserID == owner.String()
	}), mock.Anything).Return(nil).Once()

	rec := doJSON(t, r, http.MethodPost, "/groups", map[string]any{"name": "team", "member_ids": []uuid.UUID{member}})

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, group.ID.String(), body["id"])
	assert.Equal(t, group.ChatID.String(), body["chat_id"])
	d.assertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateGroupRejectsBlankName(t *testing.T) {
	d := newTestDeps()
	r := setupGroupRouter(d, nil, uuid.New(), "alice")

	rec := doJSON(t, r, http.MethodPost, "/groups", map[string]any{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/groups", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	d.groups.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateGroupUnknownMemberIs404WithoutGroup(t *testing.T) {
	d := newTestDeps()
	owner, ghost := uuid.New(), uuid.New()
	d.users.On("GetByID", mock.Anything, ghost).Return(models.User{}, repositories.ErrUserNotFound).Once()

	rec := doJSON(t, setupGroupRouter(d, nil, owner, "alice"), http.MethodPost, "/groups", map[string]any{"name": "team", "member_ids": []uuid.UUID{ghost}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	d.groups.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.notifier.AssertNotCalled(t, "NotifyUsers", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddMembers(t *testing.T) {
	owner, newcomer := uuid.New(), uuid.New()
	group := models.Group{ID: uuid.New(), Name: "team", OwnerID: owner, ChatID: uuid.New()}
	path := "/groups/" + group.ID.String() + "/members"

	t.Run("notifies added users", func(t *testing.T) {
		d := newTestDeps()
		d.groups.On("GetGroup", mock.Anything, group.ID).Return(group, nil)
		d.groups.On("IsMember", mock.Anything, group.ID, owner).Return(true, nil).Once()
		d.users.On("GetByID", mock.Anything, newcomer).Return(models.User{ID: newcomer, Name: "carol"}, nil).Once()
		d.users.On("GetByID", mock.Anything, owner).Return(models.User{ID: owner, Name: "alice"}, nil).Once()
		d.groups.On("AddMember", mock.Anything, group.ID, newcomer, mock.AnythingOfType("time.Time")).Return(true, nil).Once()
		d.notifier.On("NotifyUsers", mock.Anything, []uuid.UUID{newcomer}, mock.Anything).Return().Once()

		rec := doJSON(t, setupGroupRouter(d, nil, owner, "alice"), http.MethodPost, path, map[string]any{"user_ids": []uuid.UUID{newcomer}})

		require.Equal(t, http.StatusOK, rec.Code)
		d.assertExpectations(t)
	})

	t.Run("caller outside group", func(t *testing.T) {
		d := newTestDeps()
		outsider := uuid.New()
		d.groups.On("GetGroup", mock.Anything, group.ID).Return(group, nil).Once()
		d.groups.On("IsMember", mock.Anything, group.ID, outsider).Return(false, nil).Once()

		rec := doJSON(t, setupGroupRouter(d, nil, outsider, "mallory"), http.MethodPost, path, map[string]any{"user_ids": []uuid.UUID{newcomer}})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		d.groups.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		d := newTestDeps()
		d.groups.On("GetGroup", mock.Anything, group.ID).Return(group, nil)
		d.groups.On("IsMember", mock.Anything, group.ID, owner).Return(true, nil).Once()
		d.users.On("GetByID", mock.Anything, newcomer).Return(models.User{}, repositories.ErrUserNotFound).Once()

		rec := doJSON(t, setupGroupRouter(d, nil, owner, "alice"), http.MethodPost, path, map[string]any{"user_ids": []uuid.UUID{newcomer}})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("empty list", func(t *testing.T) {
		d := newTestDeps()
		rec := doJSON(t, setupGroupRouter(d, nil, owner, "alice"), http.MethodPost, path, map[string]any{"user_ids": []uuid.UUID{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing group", func(t *testing.T) {
		d := newTestDeps()
		d.groups.On("GetGroup", mock.Anything, group.ID).Return(models.Group{}, repositories.ErrGroupNotFound).Once()
		rec := doJSON(t, setupGroupRouter(d, nil, owner, "alice"), http.MethodPost, path, map[string]any{"user_ids": []uuid.UUID{newcomer}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRemoveMembers(t *testing.T) {
	owner, member := uuid.New(), uuid.New()
	group := models.Group{ID: uuid.New(), Name: "team", OwnerID: owner, ChatID: uuid.New()}
	path := "/groups/" + group.ID.String() + "/members"

	t.Run("owner in list fails before any removal", func(t *testing.T) {
		d := newTestDeps()
		d.groups.On("GetGroup", mock.Anything, group.ID).Return(group, nil).Once()
		d.groups.On("IsMember", mock.Anything, group.ID, owner).Return(true, nil).Once()

		rec := doJSON(t, setupGroupRouter(d, nil, owner, "alice"), http.MethodDelete, path, map[string]any{"user_ids": []uuid.UUID{member, owner}})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		d.groups.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
		d.notifier.AssertNotCalled(t, "NotifyUsers", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notifies remaining and removed", func(t *testing.T) {
		d := newTestDeps()
		d.groups.On("GetGroup", mock.Anything, group.ID).Return(group, nil)
		d.groups.On("IsMember", mock.Anything, group.ID, owner).Return(true, nil).Once()
		d.groups.On("RemoveMember", mock.Anything, group.ID, member).Return(nil).Once()
		d.groups.On("MemberIDs", mock.Anything, group.ID).Return([]uuid.UUID{owner}, nil).Once()
		d.users.On("GetByID", mock.Anything, owner).Return(models.User{ID: owner, Name: "alice"}, nil).Once()
		d.notifier.On("NotifyUsers", mock.Anything, []uuid.UUID{owner, member}, mock.Anything).Return().Once()

		rec := doJSON(t, setupGroupRouter(d, nil, owner, "alice"), http.MethodDelete, path, map[string]any{"user_ids": []uuid.UUID{member}})

		require.Equal(t, http.StatusOK, rec.Code)
		d.assertExpectations(t)
	})
}

func TestListMembersRequiresMembership(t *testing.T) {
	owner, outsider := uuid.New(), uuid.New()
	group := models.Group{ID: uuid.New(), Name: "team", OwnerID: owner, ChatID: uuid.New()}
	path := "/groups/" + group.ID.String() + "/members"

	d := newTestDeps()
	d.groups.On("GetGroup", mock.Anything, group.ID).Return(group, nil)
	d.groups.On("IsMember", mock.Anything, group.ID, outsider).Return(false, nil).Once()
	d.groups.On("IsMember", mock.Anything, group.ID, owner).Return(true, nil).Once()
	members := []models.Member{{UserID: owner, Name: "alice", Email: "a@example.com", JoinedAt: time.Now().UTC()}}
	d.groups.On("ListMembers", mock.Anything, group.ID, models.NewPage(0, 0)).Return(members, nil).Once()

	rec := doJSON(t, setupGroupRouter(d, nil, outsider, "mallory"), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, setupGroupRouter(d, nil, owner, "alice"), http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["members"], 1)
	d.assertExpectations(t)
}

func TestListGroups(t *testing.T) {
	d := newTestDeps()
	userID := uuid.New()
	d.groups.On("ListGroupsForUser", mock.Anything, userID, models.Page{Offset: 0, Limit: 10}).
		Return([]models.Group{{ID: uuid.New(), Name: "team"}}, nil).Once()

	rec := doJSON(t, setupGroupRouter(d, nil, userID, "alice"), http.MethodGet, "/groups?limit=10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["groups"], 1)
}
