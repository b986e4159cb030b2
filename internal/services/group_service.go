package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// GroupService manages groups and their membership.
type GroupService struct {
	groups repositories.GroupRepository
	users  repositories.UserRepository
	now    func() time.Time
}

func NewGroupService(groups repositories.GroupRepository, users repositories.UserRepository) *GroupService {
	return &GroupService{groups: groups, users: users, now: time.Now}
}

// CreateGroup creates the group with its public chat, owner and memberIDs.
// Every member is checked first, so an unknown id creates nothing.
func (s *GroupService) CreateGroup(ctx context.Context, name string, ownerID uuid.UUID, memberIDs []uuid.UUID) (models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, fmt.Errorf("group name required: %w", ErrValidation)
	}

	members := lo.Without(lo.Uniq(memberIDs), ownerID)
	for _, memberID := range members {
		if err := s.requireUser(ctx, memberID); err != nil {
			return models.Group{}, err
		}
	}

	group, err := s.groups.CreateGroup(ctx, name, ownerID, members)
	if err != nil {
		return models.Group{}, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

func (s *GroupService) GetByID(ctx context.Context, groupID uuid.UUID) (models.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	return group, mapGroupErr(groupID, err)
}

// GetByChatID returns the group backing a public chat.
func (s *GroupService) GetByChatID(ctx context.Context, chatID uuid.UUID) (models.Group, error) {
	group, err := s.groups.GetByChatID(ctx, chatID)
	return group, mapGroupErr(chatID, err)
}

// AddMember is idempotent; the bool is false when userID was already a member.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	group, err := s.GetByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	return s.addMember(ctx, group, userID)
}

func (s *GroupService) requireUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	return nil
}

func (s *GroupService) addMember(ctx context.Context, group models.Group, userID uuid.UUID) (bool, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return false, err
	}
	added, err := s.groups.AddMember(ctx, group.ID, userID, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	return added, nil
}

// RemoveMember removes userID. The owner can never be removed.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	group, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID == userID {
		return ErrOwnerRemovalForbidden
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// RequireMember fails with ErrAccessDenied unless userID belongs to the group.
func (s *GroupService) RequireMember(ctx context.Context, groupID, userID uuid.UUID) error {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

func (s *GroupService) ListMembers(ctx context.Context, groupID uuid.UUID, page models.Page) ([]models.Member, error) {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	members, err := s.groups.ListMembers(ctx, groupID, page)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// MemberIDs returns every current member, unpaginated.
func (s *GroupService) MemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.groups.MemberIDs(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	return ids, nil
}

func (s *GroupService) ListUserGroups(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Group, error) {
	groups, err := s.groups.ListGroupsForUser(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func mapGroupErr(id uuid.UUID, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrGroupNotFound):
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	default:
		return fmt.Errorf("get group: %w", err)
	}
}
