package usecase

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"

	"provisiond/internal/domain"
)

const (
	defaultCredentialLength = 16
	credentialCharset       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
)

type ProviderName struct {
	GivenName   string
	FamilyName  string
	DisplayName string
}

// FormatProviderName builds the directory name of a new identity.
// Organizations read "<prefix> <name> (<locale>)"; people read
// "<given> <family> (<role>)".
func FormatProviderName(community domain.Community, primary, secondary, locale string) ProviderName {
	primary = strings.TrimSpace(primary)
	secondary = strings.TrimSpace(secondary)
	if community.IsPerson() {
		family := secondary
		if community.RoleAnnotation != "" {
			family = strings.TrimSpace(family + " (" + community.RoleAnnotation + ")")
		}
		return ProviderName{
			GivenName:   primary,
			FamilyName:  family,
			DisplayName: strings.TrimSpace(primary + " " + family),
		}
	}
	given := strings.TrimSpace(community.NamePrefix + " " + primary)
	family := ""
	if locale != "" {
		family = "(" + locale + ")"
	}
	return ProviderName{
		GivenName:   given,
		FamilyName:  family,
		DisplayName: strings.TrimSpace(given + " " + family),
	}
}

// GenerateTemporaryCredential draws a one-time password uniformly from a
// fixed charset.
func GenerateTemporaryCredential(r io.Reader, length int) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	if length <= 0 {
		length = defaultCredentialLength
	}
	charsetLen := big.NewInt(int64(len(credentialCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(r, charsetLen)
		if err != nil {
			return "", err
		}
		out[i] = credentialCharset[n.Int64()]
	}
	if len(out) == 0 {
		return "", errors.New("empty credential")
	}
	return string(out), nil
}
