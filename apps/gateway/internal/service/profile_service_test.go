package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newProfileService(env *testEnv, provider *fakeProvider) ProfileService {
	embeddings := NewEmbeddingService(env.store, provider, nil, 0)
	return NewProfileService(env.store, memBlocks{env.store}, env.relations, embeddings, env.presence, nil, nil, nil)
}

// fixedMatches 固定返回的推荐列表
type fixedMatches struct {
	MatchService
	recs []*dto.MatchCandidate
}

var _ MatchService = (*fixedMatches)(nil)

func (f *fixedMatches) Recommendations(context.Context, string) *dto.RecommendationsResponse {
	return &dto.RecommendationsResponse{Recommendations: f.recs}
}

func TestProfileService_SaveHobbiesNotifiesMatches(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.store.addUser("u1", "Ann")
	matches := &fixedMatches{recs: []*dto.MatchCandidate{
		{UserID: "u2", MatchPercentage: 90, SharedHobbies: []string{"Chess", "Hiking"}},
		{UserID: "u3", MatchPercentage: 72, SharedHobbies: []string{}},
	}}
	embeddings := NewEmbeddingService(env.store, &fakeProvider{}, nil, 0)
	svc := NewProfileService(env.store, memBlocks{env.store}, env.relations, embeddings, env.presence,
		matches, memNotifications{env.store}, env.bus)

	_, err := svc.SaveHobbies(ctx, "u1", &dto.SaveHobbiesRequest{Hobbies: []string{"Chess", "Hiking"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(env.store.notificationsFor("u1")) == 1
	}, time.Second, 10*time.Millisecond)

	got := env.store.notificationsFor("u2")
	require.Len(t, got, 1)
	assert.Equal(t, model.NotificationTypeMatch, got[0].Type)
	assert.Equal(t, "u1", got[0].ActorID)
	assert.Equal(t, "Ann shares your interests in Chess, Hiking", got[0].Message)
	assert.Empty(t, env.store.notificationsFor("u3"), "no shared hobbies, no notification")
	assert.Equal(t, "Found 2 users with similar interests!", env.store.notificationsFor("u1")[0].Message)

	pushed := env.bus.userEvents(dto.EventNewNotification)
	require.Len(t, pushed, 1)
	assert.Equal(t, "u2", pushed[0].Target)
	ev := pushed[0].Data.(*dto.NewNotificationEvent)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, []string{"Chess", "Hiking"}, ev.SharedHobbies)

	t.Run("resave_refreshes_instead_of_duplicating", func(t *testing.T) {
		matches.recs = matches.recs[:1]
		_, err := svc.SaveHobbies(ctx, "u1", &dto.SaveHobbiesRequest{Hobbies: []string{"Chess"}})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			list := env.store.notificationsFor("u1")
			return len(list) == 1 && list[0].Message == "Found 1 users with similar interests!"
		}, time.Second, 10*time.Millisecond)
		assert.Len(t, env.store.notificationsFor("u2"), 1)
	})
}

func TestProfileService_SaveHobbies(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes_and_embeds", func(t *testing.T) {
		env := newTestEnv()
		svc := newProfileService(env, &fakeProvider{})

		resp, err := svc.SaveHobbies(ctx, "u1", &dto.SaveHobbiesRequest{Hobbies: []string{" Chess", "chess", "", "Hiking "}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Chess", "Hiking"}, resp.Hobbies)
		assert.True(t, resp.Embedded)
		assert.Equal(t, 2, resp.HobbyEmbeddings)

		p := env.store.profile("u1")
		assert.Equal(t, []string{"Chess", "Hiking"}, p.Hobbies)
		assert.True(t, p.HasEmbedding())
	})

	t.Run("embedding_failure_still_saves", func(t *testing.T) {
		env := newTestEnv()
		provider := &fakeProvider{errFor: map[string]error{"Opera": errors.New("timeout")}}
		svc := newProfileService(env, provider)

		resp, err := svc.SaveHobbies(ctx, "u1", &dto.SaveHobbiesRequest{Hobbies: []string{"Opera"}})
		require.NoError(t, err)
		assert.False(t, resp.Embedded)
		assert.Equal(t, "Hobbies saved without embedding", resp.Message)
		assert.Equal(t, []string{"Opera"}, env.store.profile("u1").Hobbies)
	})

	t.Run("empty_list_clears_vectors", func(t *testing.T) {
		env := newTestEnv()
		withEmbedding(env.store.addUser("u1", "U1", "chess"), vecX)
		svc := newProfileService(env, &fakeProvider{})

		resp, err := svc.SaveHobbies(ctx, "u1", &dto.SaveHobbiesRequest{Hobbies: []string{}})
		require.NoError(t, err)
		assert.Equal(t, "Hobbies cleared", resp.Message)
		assert.Empty(t, resp.Hobbies)

		got, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, got.HasEmbedding)
		assert.Zero(t, got.HobbyEmbeddings)
	})
}

func TestProfileService_GetPublic(t *testing.T) {
	ctx := context.Background()

	t.Run("annotates_status_and_presence", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("me", "Me")
		env.store.addUser("you", "You", "chess")
		env.connect("me", "you")
		env.presence.online["you"] = true
		svc := newProfileService(env, &fakeProvider{})

		resp, err := svc.GetPublic(ctx, "me", "you")
		require.NoError(t, err)
		assert.Equal(t, "You", resp.Name)
		assert.Equal(t, dto.FollowStatusAccepted, resp.FollowStatus)
		assert.True(t, resp.Online)
	})

	t.Run("blocked_is_hidden", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("me", "Me")
		env.store.addUser("you", "You")
		require.NoError(t, memBlocks{env.store}.Block(ctx, "you", "me"))
		svc := newProfileService(env, &fakeProvider{})

		_, err := svc.GetPublic(ctx, "me", "you")
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestProfileService_UpdateBasic(t *testing.T) {
	env := newTestEnv()
	svc := newProfileService(env, &fakeProvider{})

	resp, err := svc.UpdateBasic(context.Background(), "u1", &dto.UpdateProfileRequest{Name: "Ada", Age: 36, Location: "London"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", resp.Name)
	assert.Equal(t, 36, resp.Age)
	assert.Equal(t, "London", resp.Location)
}

func TestPresenceService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := NewPresenceService(env.presence, env.store)

	t.Run("offline_reports_last_seen", func(t *testing.T) {
		at := time.UnixMilli(1_700_000_000_000)
		svc.RecordOffline(ctx, "u1", at)

		resp := svc.Presence(ctx, "u1")
		assert.False(t, resp.Online)
		assert.Equal(t, at.UnixMilli(), resp.LastSeen)
	})

	t.Run("online_skips_last_seen", func(t *testing.T) {
		env.presence.online["u2"] = true
		resp := svc.Presence(ctx, "u2")
		assert.True(t, resp.Online)
		assert.Zero(t, resp.LastSeen)
	})
}
