package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"provisiond/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestProfileUpdate_AbsentNullAndValue(t *testing.T) {
	h := newRegistrationHarness(t)
	bio, site := "Serverless fan", "https://example.com"
	req := h.heroRequest()
	req.Profile = domain.Profile{Bio: &bio, Social: domain.SocialLinks{Website: &site}}
	res, err := h.orch.Register(context.Background(), req)
	require.NoError(t, err)

	svc := &ProfileService{Accounts: h.accounts, Provider: h.provider, Audit: h.orch.Audit}
	var patch domain.ProfilePatch
	require.NoError(t, json.Unmarshal([]byte(`{"bio": null, "location": "CDMX", "job_title": "Architect"}`), &patch))

	updated, err := svc.Update(context.Background(), res.Email, patch, domain.DefaultCommunities(), "198.51.100.1")
	require.NoError(t, err)
	require.Nil(t, updated.Profile.Bio)
	require.Equal(t, "CDMX", *updated.Profile.Location)
	require.Equal(t, "Architect", *updated.Profile.JobTitle)
	require.Equal(t, site, *updated.Profile.Social.Website)

	entry, found := h.audit.last(domain.AuditProfileUpdated)
	require.True(t, found)
	require.Equal(t, []string{"bio", "job_title", "location"}, entry.Details["fields"])
}

func TestProfileUpdate_OrganizationIgnoresJobFields(t *testing.T) {
	h := newRegistrationHarness(t)
	res, err := h.orch.Register(context.Background(), RegisterRequest{
		Type:         domain.CommunityUserGroup,
		Secret:       h.secrets[domain.CommunityUserGroup],
		Username:     "gdl",
		FirstName:    "Guadalajara",
		ContactEmail: "gdl@example.com",
	})
	require.NoError(t, err)

	svc := &ProfileService{Accounts: h.accounts, Provider: h.provider, Audit: h.orch.Audit}
	updated, err := svc.Update(context.Background(), res.Email, domain.ProfilePatch{
		Company:  domain.Some("ACME"),
		Location: domain.Some("GDL"),
	}, domain.DefaultCommunities(), "")
	require.NoError(t, err)
	require.Nil(t, updated.Profile.Company)
	require.Equal(t, "GDL", *updated.Profile.Location)
}

func TestProfileUpdate_AvatarSync(t *testing.T) {
	h := newRegistrationHarness(t)
	res, err := h.orch.Register(context.Background(), h.heroRequest())
	require.NoError(t, err)
	svc := &ProfileService{Accounts: h.accounts, Provider: h.provider, Audit: h.orch.Audit}
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	h.provider.rendition = []byte("jpeg-bytes")
	updated, err := svc.Update(context.Background(), res.Email, domain.ProfilePatch{Avatar: domain.Some(encoded)}, domain.DefaultCommunities(), "")
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), updated.Profile.Avatar)

	h.provider.uploadErr = errors.New("quota")
	updated, err = svc.Update(context.Background(), res.Email, domain.ProfilePatch{Avatar: domain.Some(encoded)}, domain.DefaultCommunities(), "")
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), updated.Profile.Avatar)
	_, found := h.audit.last(domain.AuditAvatarSyncDegraded)
	require.True(t, found)

	updated, err = svc.Update(context.Background(), res.Email, domain.ProfilePatch{Avatar: domain.Null[string]()}, domain.DefaultCommunities(), "")
	require.NoError(t, err)
	require.Nil(t, updated.Profile.Avatar)
}

func TestProfileGet_Unknown(t *testing.T) {
	svc := &ProfileService{Accounts: newMemAccounts()}
	_, err := svc.Get(context.Background(), "nobody@awscommunity.mx")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecodeImage(t *testing.T) {
	raw, err := DecodeImage("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, raw)

	raw, err = DecodeImage(base64.StdEncoding.EncodeToString([]byte{4}))
	require.NoError(t, err)
	require.Equal(t, []byte{4}, raw)

	_, err = DecodeImage("data:text/plain;base64,AAAA")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = DecodeImage("%%%")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	big := make([]byte, MaxAvatarBytes+1)
	_, err = DecodeImage(base64.StdEncoding.EncodeToString(big))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
