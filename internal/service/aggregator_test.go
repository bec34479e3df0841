package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
)

func att(state model.AttemptState) *model.PublishAttempt {
	return &model.PublishAttempt{State: state}
}

func TestAggregateStatus(t *testing.T) {
	cases := []struct {
		name     string
		attempts []*model.PublishAttempt
		want     model.PostStatus
	}{
		{"all succeeded", []*model.PublishAttempt{att(model.AttemptSucceeded), att(model.AttemptSucceeded)}, model.PostStatusPublished},
		{"all failed", []*model.PublishAttempt{att(model.AttemptFailed), att(model.AttemptFailed)}, model.PostStatusFailed},
		{"mixed", []*model.PublishAttempt{att(model.AttemptSucceeded), att(model.AttemptFailed)}, model.PostStatusPartiallyPublished},
		{"single success", []*model.PublishAttempt{att(model.AttemptSucceeded)}, model.PostStatusPublished},
		{"single failure", []*model.PublishAttempt{att(model.AttemptFailed)}, model.PostStatusFailed},
		{"still pending", []*model.PublishAttempt{att(model.AttemptSucceeded), att(model.AttemptPending)}, model.PostStatusPublishing},
		{"still in flight", []*model.PublishAttempt{att(model.AttemptFailed), att(model.AttemptInFlight)}, model.PostStatusPublishing},
		{"empty", nil, model.PostStatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AggregateStatus(tc.attempts))
		})
	}
}

func TestResultWriterPersistsOutcome(t *testing.T) {
	db := newServiceTestDB(t)
	posts := repository.NewPostRepository(db)
	ctx := context.Background()

	post := &model.Post{ID: "post-1", UserID: "user-1", Text: "hello", Status: model.PostStatusPublishing}
	require.NoError(t, posts.Create(ctx, post))

	attempts := []*model.PublishAttempt{
		{PostID: "post-1", AccountID: "acc-1", State: model.AttemptSucceeded, MessageID: "msg-1"},
		{PostID: "post-1", AccountID: "acc-2", State: model.AttemptFailed, ErrorKind: "auth_invalid"},
	}
	writer := NewResultWriter(posts)
	status, err := writer.Write(ctx, "post-1", attempts)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPartiallyPublished, status)

	saved, err := posts.GetByID(ctx, "user-1", "post-1")
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPartiallyPublished, saved.Status)
	require.Len(t, saved.PublishedTo, 2)
	assert.Equal(t, "acc-1", saved.PublishedTo[0].AccountID)
	assert.True(t, saved.PublishedTo[0].Success)
	assert.Equal(t, "msg-1", saved.PublishedTo[0].MessageID)
	assert.False(t, saved.PublishedTo[1].Success)
}

func TestResultWriterSingleUse(t *testing.T) {
	db := newServiceTestDB(t)
	posts := repository.NewPostRepository(db)
	ctx := context.Background()
	require.NoError(t, posts.Create(ctx, &model.Post{ID: "post-1", UserID: "user-1", Text: "hi"}))

	writer := NewResultWriter(posts)
	_, err := writer.Write(ctx, "post-1", []*model.PublishAttempt{att(model.AttemptSucceeded)})
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = writer.Write(ctx, "post-1", []*model.PublishAttempt{att(model.AttemptSucceeded)})
	})
}
