package chat_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatmodel "github.com/akuru-app/akuru/internal/model/chat"
	chatservice "github.com/akuru-app/akuru/internal/service/chat"
	"github.com/akuru-app/akuru/internal/store"
)

func setup(t *testing.T) (*chatservice.Service, int64) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	user, err := repo.CreateUser(context.Background(), "Aminath", "aminath@example.com", "hash")
	require.NoError(t, err)
	return chatservice.NewService(repo), user.ID
}

func TestOwnershipEnforced(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, userID, "")
	require.NoError(t, err)

	_, err = svc.GetOwnedConversation(ctx, userID+1, conv.ID)
	assert.ErrorIs(t, err, chatservice.ErrForbidden)

	_, err = svc.ListMessages(ctx, userID+1, conv.ID)
	assert.ErrorIs(t, err, chatservice.ErrForbidden)
}

func TestMaybeAutoTitleRenamesPlaceholderOnce(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, userID, "")
	require.NoError(t, err)
	require.Equal(t, chatmodel.DefaultTitle, conv.Title)

	title, renamed, err := svc.MaybeAutoTitle(ctx, conv, "How do I greet someone politely in Dhivehi?")
	require.NoError(t, err)
	assert.True(t, renamed)
	assert.Equal(t, "How do I greet someone politely in Dhivehi?", title)

	// A conversation that already has messages keeps its title.
	_, err = svc.AddMessage(ctx, userID, conv.ID, chatmodel.RoleUser, "hello")
	require.NoError(t, err)
	refreshed, err := svc.GetOwnedConversation(ctx, userID, conv.ID)
	require.NoError(t, err)

	_, renamed, err = svc.MaybeAutoTitle(ctx, refreshed, "another question entirely")
	require.NoError(t, err)
	assert.False(t, renamed)
}

func TestMaybeAutoTitleKeepsExplicitTitle(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, userID, "Trip plan")
	require.NoError(t, err)

	title, renamed, err := svc.MaybeAutoTitle(ctx, conv, "whatever")
	require.NoError(t, err)
	assert.False(t, renamed)
	assert.Equal(t, "Trip plan", title)
}

func TestDeriveTitleTruncatesOnWordBoundary(t *testing.T) {
	long := "this is a rather long first message that should be shortened to a readable title"
	title := chatservice.DeriveTitle(long)
	assert.LessOrEqual(t, len([]rune(title)), 51)
	assert.NotContains(t, title, "  ")

	assert.Equal(t, "short one", chatservice.DeriveTitle("  short   one  "))
	assert.Equal(t, "", chatservice.DeriveTitle("   "))
}

func TestAddMessageRejectsUnknownRole(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, userID, "roles")
	require.NoError(t, err)

	_, err = svc.AddMessage(ctx, userID, conv.ID, "robot", "beep")
	assert.Error(t, err)
}
