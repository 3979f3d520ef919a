package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"provisiond/internal/domain"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const minLocalPartLength = 2

var localPartPattern = regexp.MustCompile(`^[a-z0-9]+$`)

type Allocator struct {
	Accounts    AccountRepository
	Communities domain.Communities
	Domain      string
}

type Allocation struct {
	Community domain.Community
	LocalPart string
	Email     string
}

type Availability struct {
	Email     string
	Available bool
}

// Allocate picks the local-part for a community: derived from the names for
// person types, the caller's candidate for organization types.
func (a *Allocator) Allocate(t domain.CommunityType, candidate, givenName, familyName string) (Allocation, error) {
	community, err := a.Communities.Lookup(t)
	if err != nil {
		return Allocation{}, err
	}
	var localPart string
	if community.IsPerson() {
		localPart, err = DeriveLocalPart(givenName, familyName)
	} else {
		localPart = candidate
		err = ValidateLocalPart(candidate)
	}
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{
		Community: community,
		LocalPart: localPart,
		Email:     a.Address(community, localPart),
	}, nil
}

func (a *Allocator) Address(community domain.Community, localPart string) string {
	return community.Prefix + localPart + "@" + a.Domain
}

func (a *Allocator) IsAvailable(ctx context.Context, email string) (bool, error) {
	exists, err := a.Accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return !exists, nil
}

// CheckUsername validates a manual candidate and reports whether its full
// address is free in the local registry.
func (a *Allocator) CheckUsername(ctx context.Context, t domain.CommunityType, candidate string) (Availability, error) {
	community, err := a.Communities.Lookup(t)
	if err != nil {
		return Availability{}, err
	}
	if err := ValidateLocalPart(candidate); err != nil {
		return Availability{}, err
	}
	email := a.Address(community, candidate)
	available, err := a.IsAvailable(ctx, email)
	if err != nil {
		return Availability{}, err
	}
	return Availability{Email: email, Available: available}, nil
}

// DeriveUsername previews the derived local-part of a person type.
func (a *Allocator) DeriveUsername(ctx context.Context, t domain.CommunityType, givenName, familyName string) (Allocation, bool, error) {
	community, err := a.Communities.Lookup(t)
	if err != nil {
		return Allocation{}, false, err
	}
	if !community.IsPerson() {
		return Allocation{}, false, fmt.Errorf("%w: %s usernames are chosen, not derived", domain.ErrInvalidInput, t)
	}
	alloc, err := a.Allocate(t, "", givenName, familyName)
	if err != nil {
		return Allocation{}, false, err
	}
	available, err := a.IsAvailable(ctx, alloc.Email)
	if err != nil {
		return Allocation{}, false, err
	}
	return alloc, available, nil
}

func ValidateLocalPart(candidate string) error {
	if len(candidate) < minLocalPartLength || !localPartPattern.MatchString(candidate) {
		return fmt.Errorf("%w: use at least %d lowercase letters or digits", domain.ErrInvalidFormat, minLocalPartLength)
	}
	return nil
}

// DeriveLocalPart returns the first letter of the given name followed by the
// whole family name, both folded to lowercase ASCII letters.
func DeriveLocalPart(givenName, familyName string) (string, error) {
	given := NormalizeName(givenName)
	family := NormalizeName(familyName)
	if given == "" || family == "" {
		return "", fmt.Errorf("%w: names must contain letters", domain.ErrInvalidName)
	}
	return given[:1] + family, nil
}

// NormalizeName strips diacritics and keeps only a-z.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
