package directory

import (
	"context"
	"errors"
	"testing"

	"provisiond/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory(nil)
	email := "cc.unam@awscommunity.mx"

	require.NoError(t, dir.Create(ctx, domain.NewIdentity{Email: email, GivenName: "AWS Cloud Club at UNAM"}))
	require.ErrorIs(t, dir.Create(ctx, domain.NewIdentity{Email: email}), domain.ErrIdentityConflict)
	require.NoError(t, dir.AddToGroup(ctx, email, "cloudclubs@awscommunity.mx"))
	require.True(t, dir.IsMember("cloudclubs@awscommunity.mx", email))

	dir.Fail(OpAddToGroup, errors.New("quota"))
	require.Error(t, dir.AddToGroup(ctx, email, "other@awscommunity.mx"))
	dir.Fail(OpAddToGroup, nil)
	require.NoError(t, dir.AddToGroup(ctx, email, "other@awscommunity.mx"))

	require.NoError(t, dir.UploadPhoto(ctx, email, []byte{1, 2}))
	photo, err := dir.FetchPhoto(ctx, email)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, photo)

	require.NoError(t, dir.Send(ctx, domain.MailMessage{To: "club@unam.mx", Subject: "hi"}))
	require.Len(t, dir.Outbox(), 1)

	require.NoError(t, dir.Delete(ctx, email))
	require.ErrorIs(t, dir.Delete(ctx, email), domain.ErrIdentityNotFound)
	require.False(t, dir.IsMember("cloudclubs@awscommunity.mx", email))
}
