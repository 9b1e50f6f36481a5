package service

import (
	"context"
	"strings"
	"testing"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestFollowStatusOf(t *testing.T) {
	pending := func(from, to string) *model.Follow {
		return &model.Follow{FollowerID: from, FollowingID: to, Status: model.FollowStatusPending}
	}
	accepted := func(from, to string) *model.Follow {
		return &model.Follow{FollowerID: from, FollowingID: to, Status: model.FollowStatusAccepted}
	}

	tests := []struct {
		name  string
		edges []*model.Follow
		want  string
	}{
		{name: "no_edges", edges: nil, want: dto.FollowStatusNone},
		{name: "sent_pending", edges: []*model.Follow{pending("me", "you")}, want: dto.FollowStatusPending},
		{name: "received_pending", edges: []*model.Follow{pending("you", "me")}, want: dto.FollowStatusReceived},
		{name: "accepted_either_direction", edges: []*model.Follow{accepted("you", "me")}, want: dto.FollowStatusAccepted},
		{name: "accepted_wins", edges: []*model.Follow{pending("me", "you"), accepted("you", "me")}, want: dto.FollowStatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FollowStatusOf("me", tt.edges))
		})
	}
}

func TestRelationService_SendFollowRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_pending_and_notifies", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("alice", "Alice")
		env.store.addUser("bob", "Bob")

		resp, err := env.relations.SendFollowRequest(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, dto.FollowStatusPending, resp.Status)

		notes := env.store.notificationsFor("bob")
		require.Len(t, notes, 1)
		assert.Equal(t, model.NotificationTypeChatRequest, notes[0].Type)
		assert.Equal(t, "Alice wants to connect with you", notes[0].Message)
		assert.True(t, env.dashboard.pushedTo("bob"))

		st, err := env.relations.FollowStatus(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, dto.FollowStatusReceived, st)
	})

	t.Run("rejects_self_and_duplicates", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("alice", "Alice")
		env.store.addUser("bob", "Bob")

		_, err := env.relations.SendFollowRequest(ctx, "alice", "alice")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = env.relations.SendFollowRequest(ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = env.relations.SendFollowRequest(ctx, "alice", "bob")
		assert.Equal(t, codes.AlreadyExists, status.Code(err))
	})

	t.Run("unknown_target", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.relations.SendFollowRequest(ctx, "alice", "ghost")
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("blocked_either_direction", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("alice", "Alice")
		env.store.addUser("bob", "Bob")
		require.NoError(t, env.relations.Block(ctx, "bob", "alice"))

		_, err := env.relations.SendFollowRequest(ctx, "alice", "bob")
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("reverse_pending_auto_accepts", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("alice", "Alice")
		env.store.addUser("bob", "Bob")
		_, err := env.relations.SendFollowRequest(ctx, "alice", "bob")
		require.NoError(t, err)

		resp, err := env.relations.SendFollowRequest(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, dto.FollowStatusAccepted, resp.Status)
		assert.Len(t, env.store.followsInvolving("alice"), 1)
	})
}

func TestRelationService_AcceptAndReject(t *testing.T) {
	ctx := context.Background()

	t.Run("accept_replaces_request_notification", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("alice", "Alice")
		env.store.addUser("bob", "Bob")
		_, err := env.relations.SendFollowRequest(ctx, "alice", "bob")
		require.NoError(t, err)

		require.NoError(t, env.relations.AcceptFollowRequest(ctx, "bob", "alice"))

		assert.Empty(t, env.store.notificationsFor("bob"))
		notes := env.store.notificationsFor("alice")
		require.Len(t, notes, 1)
		assert.Equal(t, model.NotificationTypeFollowAccepted, notes[0].Type)
		assert.Equal(t, "Bob accepted your request", notes[0].Message)

		conns, err := env.relations.ListConnections(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, conns, 1)
		assert.Equal(t, "bob", conns[0].UserID)
	})

	t.Run("accept_without_request", func(t *testing.T) {
		env := newTestEnv()
		err := env.relations.AcceptFollowRequest(ctx, "bob", "alice")
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("reject_then_reapply", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("alice", "Alice")
		env.store.addUser("bob", "Bob")
		_, err := env.relations.SendFollowRequest(ctx, "alice", "bob")
		require.NoError(t, err)

		require.NoError(t, env.relations.RejectFollowRequest(ctx, "bob", "alice"))
		assert.Empty(t, env.store.followsInvolving("alice"))
		assert.Empty(t, env.store.notificationsFor("bob"))

		resp, err := env.relations.SendFollowRequest(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, dto.FollowStatusPending, resp.Status)
	})

	t.Run("pending_list", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("alice", "Alice", "chess")
		env.store.addUser("bob", "Bob")
		_, err := env.relations.SendFollowRequest(ctx, "alice", "bob")
		require.NoError(t, err)

		list, err := env.relations.ListPendingRequests(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Alice", list[0].Name)
		assert.Equal(t, []string{"chess"}, list[0].Hobbies)
		assert.NotZero(t, list[0].RequestedAt)
	})
}

func TestRelationService_Block(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.store.addUser("alice", "Alice")
	env.store.addUser("bob", "Bob")
	env.connect("alice", "bob")

	t.Run("cascades_edges", func(t *testing.T) {
		require.NoError(t, env.relations.Block(ctx, "alice", "bob"))
		assert.Empty(t, env.store.followsInvolving("alice"))

		blocked, err := env.relations.ListBlocked(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, blocked, 1)
		assert.Equal(t, "Bob", blocked[0].Name)
	})

	t.Run("duplicate_and_self", func(t *testing.T) {
		err := env.relations.Block(ctx, "alice", "bob")
		assert.Equal(t, codes.AlreadyExists, status.Code(err))
		err = env.relations.Block(ctx, "alice", "alice")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("unblock", func(t *testing.T) {
		require.NoError(t, env.relations.Unblock(ctx, "alice", "bob"))
		err := env.relations.Unblock(ctx, "alice", "bob")
		assert.Equal(t, codes.NotFound, status.Code(err))

		st, err := env.relations.FollowStatus(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, dto.FollowStatusNone, st)
	})
}

func TestRelationService_FollowLists(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		env.store.addUser(id, strings.ToUpper(id[:1])+id[1:], "chess")
	}
	env.connect("bob", "alice")
	env.connect("alice", "carol")
	env.presence.online["bob"] = true
	_, err := env.relations.SendFollowRequest(ctx, "dave", "alice")
	require.NoError(t, err)

	t.Run("own_lists_are_directional_and_accepted_only", func(t *testing.T) {
		followers, err := env.relations.ListFollowers(ctx, "alice", "alice")
		require.NoError(t, err)
		require.Len(t, followers, 1)
		assert.Equal(t, "bob", followers[0].UserID)
		assert.Equal(t, "Bob", followers[0].Name)
		assert.True(t, followers[0].Online)

		following, err := env.relations.ListFollowing(ctx, "alice", "alice")
		require.NoError(t, err)
		require.Len(t, following, 1)
		assert.Equal(t, "carol", following[0].UserID)
		assert.False(t, following[0].Online)
	})

	t.Run("other_user", func(t *testing.T) {
		followers, err := env.relations.ListFollowers(ctx, "carol", "alice")
		require.NoError(t, err)
		require.Len(t, followers, 1)
		assert.Equal(t, "bob", followers[0].UserID)

		following, err := env.relations.ListFollowing(ctx, "carol", "dave")
		require.NoError(t, err)
		assert.Empty(t, following)
		assert.NotNil(t, following)
	})

	t.Run("unknown_user", func(t *testing.T) {
		_, err := env.relations.ListFollowers(ctx, "alice", "ghost")
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("blocked_viewer", func(t *testing.T) {
		require.NoError(t, env.relations.Block(ctx, "alice", "dave"))
		_, err := env.relations.ListFollowing(ctx, "dave", "alice")
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})
}
