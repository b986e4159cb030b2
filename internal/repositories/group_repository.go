package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, name string, ownerID uuid.UUID, memberIDs []uuid.UUID) (models.Group, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (models.Group, error)
	GetByChatID(ctx context.Context, chatID uuid.UUID) (models.Group, error)
	AddMember(ctx context.Context, groupID uuid.UUID, userID uuid.UUID, joinedAt time.Time) (bool, error)
	RemoveMember(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) error
	IsMember(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) (bool, error)
	IsMemberByChat(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, groupID uuid.UUID, page models.Page) ([]models.Member, error)
	MemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Group, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup creates the public chat, the group, the owner membership and
// the initial members in one transaction. memberIDs must not contain the owner.
func (r *GroupRepo) CreateGroup(ctx context.Context, name string, ownerID uuid.UUID, memberIDs []uuid.UUID) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	chatID := uuid.New()
	if _, err := tx.ExecContext(ctx, `INSERT INTO chats (id, name, kind, created_at) VALUES ($1, $2, $3, $4)`,
		chatID, name, models.ChatPublic, now); err != nil {
		return models.Group{}, err
	}

	group := models.Group{ID: uuid.New(), Name: name, OwnerID: ownerID, ChatID: chatID, CreatedAt: now}
	if _, err := tx.ExecContext(ctx, `INSERT INTO groups (id, name, owner_id, chat_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.Name, group.OwnerID, group.ChatID, group.CreatedAt); err != nil {
		return models.Group{}, err
	}

	for _, userID := range append([]uuid.UUID{ownerID}, memberIDs...) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)
        ON CONFLICT (group_id, user_id) DO NOTHING`, group.ID, userID, now); err != nil {
			return models.Group{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID uuid.UUID) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, owner_id, chat_id, created_at FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// GetByChatID fetches the group backing a public chat.
func (r *GroupRepo) GetByChatID(ctx context.Context, chatID uuid.UUID) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, owner_id, chat_id, created_at FROM groups WHERE chat_id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// AddMember inserts a membership; the bool is false when the user was already a member.
func (r *GroupRepo) AddMember(ctx context.Context, groupID uuid.UUID, userID uuid.UUID, joinedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)
        ON CONFLICT (group_id, user_id) DO NOTHING`, groupID, userID, joinedAt)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RemoveMember deletes a membership. Removing a non-member is a no-op.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	return err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// IsMemberByChat checks membership of the group backing chatID.
func (r *GroupRepo) IsMemberByChat(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM groups g INNER JOIN group_members gm ON gm.group_id = g.id
        WHERE g.chat_id=$1 AND gm.user_id=$2)`, chatID, userID)
	return exists, err
}

// ListMembers returns a page of members with their identity.
func (r *GroupRepo) ListMembers(ctx context.Context, groupID uuid.UUID, page models.Page) ([]models.Member, error) {
	members := []models.Member{}
	err := r.db.SelectContext(ctx, &members, `SELECT gm.user_id, u.name, u.email, gm.joined_at FROM group_members gm
        INNER JOIN users u ON u.id = gm.user_id
        WHERE gm.group_id=$1 ORDER BY gm.joined_at ASC, gm.user_id ASC OFFSET $2 LIMIT $3`, groupID, page.Offset, page.Limit)
	return members, err
}

// MemberIDs returns every current member id.
func (r *GroupRepo) MemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM group_members WHERE group_id=$1`, groupID)
	return ids, err
}

// ListGroupsForUser returns groups that include the user.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Group, error) {
	groups := []models.Group{}
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.name, g.owner_id, g.chat_id, g.created_at FROM groups g
        INNER JOIN group_members gm ON gm.group_id = g.id
        WHERE gm.user_id=$1 ORDER BY g.created_at DESC OFFSET $2 LIMIT $3`, userID, page.Offset, page.Limit)
	return groups, err
}
