package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// memoryMessages keeps messages and receipts in memory with the same
// semantics as the SQL repository.
type memoryMessages struct {
	mu       sync.Mutex
	messages map[uuid.UUID]models.Message
	reads    map[uuid.UUID][]uuid.UUID
}

func newMemoryMessages() *memoryMessages {
	return &memoryMessages{messages: map[uuid.UUID]models.Message{}, reads: map[uuid.UUID][]uuid.UUID{}}
}

func (r *memoryMessages) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	r.messages[msg.ID] = msg
	return msg, nil
}

func (r *memoryMessages) ExistsSimilar(ctx context.Context, chatID, senderID uuid.UUID, text string, from, to time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ChatID == chatID && m.SenderID == senderID && m.Text == text &&
			!m.Timestamp.Before(from) && !m.Timestamp.After(to) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryMessages) GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	return m, nil
}

func (r *memoryMessages) ListChatMessages(ctx context.Context, chatID uuid.UUID, page models.Page) ([]models.MessageView, error) {
	return nil, nil
}

func (r *memoryMessages) RecordRead(ctx context.Context, messageID, readerID uuid.UUID, readAt time.Time) (bool, []uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[messageID]; !ok {
		return false, nil, repositories.ErrMessageNotFound
	}
	for _, id := range r.reads[messageID] {
		if id == readerID {
			return false, nil, nil
		}
	}
	r.reads[messageID] = append(r.reads[messageID], readerID)
	return true, append([]uuid.UUID(nil), r.reads[messageID]...), nil
}

type stubAccess struct {
	chat    models.Chat
	members map[uuid.UUID]bool
}

func (s stubAccess) GetByID(ctx context.Context, chatID uuid.UUID) (models.Chat, error) {
	if chatID != s.chat.ID {
		return models.Chat{}, ErrNotFound
	}
	return s.chat, nil
}

func (s stubAccess) HasAccess(ctx context.Context, chat models.Chat, userID uuid.UUID) (bool, error) {
	return s.members[userID], nil
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestCreateMessageDuplicateWindow(t *testing.T) {
	repo := newMemoryMessages()
	svc := NewMessageService(repo, nil, nil, nil, nil)
	chatID, sender := uuid.New(), uuid.New()
	ctx := context.Background()

	_, err := svc.CreateMessage(ctx, chatID, sender, "hello", t0)
	require.NoError(t, err)

	_, err = svc.CreateMessage(ctx, chatID, sender, "hello", t0.Add(time.Second))
	assert.ErrorIs(t, err, ErrDuplicateMessage)

	_, err = svc.CreateMessage(ctx, chatID, sender, "hello", t0.Add(2*time.Second))
	assert.ErrorIs(t, err, ErrDuplicateMessage, "window bounds are inclusive")

	_, err = svc.CreateMessage(ctx, chatID, sender, "hello", t0.Add(3*time.Second))
	assert.NoError(t, err)

	_, err = svc.CreateMessage(ctx, chatID, uuid.New(), "hello", t0)
	assert.NoError(t, err, "another sender is not a duplicate")

	_, err = svc.CreateMessage(ctx, chatID, sender, "hello again", t0)
	assert.NoError(t, err, "other text is not a duplicate")
}

func TestCreateMessageRejectsEmptyText(t *testing.T) {
	svc := NewMessageService(newMemoryMessages(), nil, nil, nil, nil)
	_, err := svc.CreateMessage(context.Background(), uuid.New(), uuid.New(), "   ", t0)
	assert.ErrorIs(t, err, ErrValidation)
}

type groupFixture struct {
	svc      *MessageService
	repo     *memoryMessages
	groups   *mocks.GroupRepositoryMock
	notifier *mocks.NotifierMock
	group    models.Group
	msg      models.Message
	sender   uuid.UUID
	b, c     uuid.UUID
	late     uuid.UUID
}

// newGroupFixture builds a group whose members are the sender, b and c.
func newGroupFixture(t *testing.T) *groupFixture {
	t.Helper()
	f := newBareGroupFixture(t)
	f.expectMembers(0, f.sender, f.b, f.c)
	return f
}

// newBareGroupFixture leaves MemberIDs unset so a test can change membership
// between reads.
func newBareGroupFixture(t *testing.T) *groupFixture {
	t.Helper()
	f := &groupFixture{
		repo:     newMemoryMessages(),
		groups:   new(mocks.GroupRepositoryMock),
		notifier: new(mocks.NotifierMock),
		sender:   uuid.New(),
		b:        uuid.New(),
		c:        uuid.New(),
		late:     uuid.New(),
	}
	chat := models.Chat{ID: uuid.New(), Kind: models.ChatPublic}
	f.group = models.Group{ID: uuid.New(), ChatID: chat.ID, OwnerID: f.sender}
	access := stubAccess{chat: chat, members: map[uuid.UUID]bool{f.sender: true, f.b: true, f.c: true, f.late: true}}
	f.svc = NewMessageService(f.repo, f.groups, access, f.notifier, nil)
	f.svc.now = func() time.Time { return t0.Add(time.Minute) }

	msg, err := f.svc.CreateMessage(context.Background(), chat.ID, f.sender, "standup?", t0)
	require.NoError(t, err)
	f.msg = msg

	f.groups.On("GetByChatID", mock.Anything, chat.ID).Return(f.group, nil).Maybe()
	return f
}

// expectMembers answers MemberIDs with ids, times calls in a row or for
// every remaining call when times is 0.
func (f *groupFixture) expectMembers(times int, ids ...uuid.UUID) {
	call := f.groups.On("MemberIDs", mock.Anything, f.group.ID).Return(ids, nil)
	if times > 0 {
		call.Times(times)
		return
	}
	call.Maybe()
}

func readByAllEnvelope(id uuid.UUID) models.Envelope {
	return models.MustEnvelope(models.EventMessageReadByAll, models.MessageReadStatusPayload{MessageID: id})
}

func TestMarkReadGroupEmitsOnceWhenAllRead(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	f.notifier.On("NotifyUser", mock.Anything, f.sender, readByAllEnvelope(f.msg.ID)).Return().Once()

	require.NoError(t, f.svc.MarkRead(ctx, f.msg.ID, f.b))
	f.notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, f.svc.MarkRead(ctx, f.msg.ID, f.c))
	require.NoError(t, f.svc.MarkRead(ctx, f.msg.ID, f.c))
	require.NoError(t, f.svc.MarkRead(ctx, f.msg.ID, f.b))

	f.notifier.AssertNumberOfCalls(t, "NotifyUser", 1)
	f.notifier.AssertExpectations(t)
}

func TestMarkReadMemberJoinedBeforeCompletionMustRead(t *testing.T) {
	f := newBareGroupFixture(t)
	ctx := context.Background()
	f.notifier.On("NotifyUser", mock.Anything, f.sender, readByAllEnvelope(f.msg.ID)).Return().Once()

	// late joins after b has read but before c does.
	f.expectMembers(1, f.sender, f.b, f.c)
	f.expectMembers(0, f.sender, f.b, f.c, f.late)

	require.NoError(t, f.svc.MarkRead(ctx, f.msg.ID, f.b))
	require.NoError(t, f.svc.MarkRead(ctx, f.msg.ID, f.c))
	f.notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, f.svc.MarkRead(ctx, f.msg.ID, f.late))
	require.NoError(t, f.svc.MarkRead(ctx, f.msg.ID, f.late))
	f.notifier.AssertNumberOfCalls(t, "NotifyUser", 1)
	f.notifier.AssertExpectations(t)
}

func TestMarkReadBySenderEmitsNothing(t *testing.T) {
	f := newGroupFixture(t)

	require.NoError(t, f.svc.MarkRead(context.Background(), f.msg.ID, f.sender))

	f.notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadConcurrentReadersEmitOnce(t *testing.T) {
	f := newGroupFixture(t)
	f.notifier.On("NotifyUser", mock.Anything, f.sender, readByAllEnvelope(f.msg.ID)).Return()

	var wg sync.WaitGroup
	for _, reader := range []uuid.UUID{f.b, f.c, f.b, f.c} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, f.svc.MarkRead(context.Background(), f.msg.ID, id))
		}(reader)
	}
	wg.Wait()

	f.notifier.AssertNumberOfCalls(t, "NotifyUser", 1)
}

func TestMarkReadPrivateNotifiesSenderOnce(t *testing.T) {
	repo := newMemoryMessages()
	notifier := new(mocks.NotifierMock)
	sender, reader := uuid.New(), uuid.New()
	chat := models.Chat{ID: uuid.New(), Kind: models.ChatPrivate}
	access := stubAccess{chat: chat, members: map[uuid.UUID]bool{sender: true, reader: true}}
	svc := NewMessageService(repo, nil, access, notifier, nil)
	ctx := context.Background()

	msg, err := svc.CreateMessage(ctx, chat.ID, sender, "hi", t0)
	require.NoError(t, err)

	expected := models.MustEnvelope(models.EventMessageRead, models.MessageReadStatusPayload{MessageID: msg.ID})
	notifier.On("NotifyUser", mock.Anything, sender, expected).Return().Once()

	require.NoError(t, svc.MarkRead(ctx, msg.ID, reader))
	require.NoError(t, svc.MarkRead(ctx, msg.ID, reader))
	require.NoError(t, svc.MarkRead(ctx, msg.ID, sender))

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "NotifyUser", 1)
}

func TestMarkReadErrors(t *testing.T) {
	repo := newMemoryMessages()
	sender := uuid.New()
	chat := models.Chat{ID: uuid.New(), Kind: models.ChatPrivate}
	access := stubAccess{chat: chat, members: map[uuid.UUID]bool{sender: true}}
	svc := NewMessageService(repo, nil, access, new(mocks.NotifierMock), nil)
	ctx := context.Background()

	err := svc.MarkRead(ctx, uuid.New(), sender)
	assert.ErrorIs(t, err, ErrNotFound)

	msg, err := svc.CreateMessage(ctx, chat.ID, sender, "hi", t0)
	require.NoError(t, err)
	err = svc.MarkRead(ctx, msg.ID, uuid.New())
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestChatHistoryRequiresAccess(t *testing.T) {
	member, outsider := uuid.New(), uuid.New()
	chat := models.Chat{ID: uuid.New(), Kind: models.ChatPublic}
	messages := new(mocks.MessageRepositoryMock)
	access := stubAccess{chat: chat, members: map[uuid.UUID]bool{member: true}}
	svc := NewMessageService(messages, nil, access, nil, nil)
	page := models.NewPage(0, 0)
	ctx := context.Background()

	views := []models.MessageView{{ID: uuid.New(), ChatID: chat.ID, Text: "hi", ReadByAll: true}}
	messages.On("ListChatMessages", mock.Anything, chat.ID, page).Return(views, nil).Once()

	got, err := svc.ChatHistory(ctx, chat.ID, member, page)
	require.NoError(t, err)
	assert.Equal(t, views, got)

	_, err = svc.ChatHistory(ctx, chat.ID, outsider, page)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.ChatHistory(ctx, uuid.New(), member, page)
	assert.ErrorIs(t, err, ErrNotFound)

	messages.AssertExpectations(t)
}
