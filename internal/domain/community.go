package domain

import "fmt"

type CommunityType string

const (
	CommunityCloudClub        CommunityType = "cc"
	CommunityUserGroup        CommunityType = "ug"
	CommunityCommunityBuilder CommunityType = "cb"
	CommunityHero             CommunityType = "hero"
)

// CommunityClass selects the naming and allocation convention of a community type.
type CommunityClass string

const (
	ClassOrganization CommunityClass = "organization"
	ClassPerson       CommunityClass = "person"
)

type Community struct {
	Type  CommunityType  `yaml:"type"`
	Label string         `yaml:"label"`
	Class CommunityClass `yaml:"class"`
	// Prefix is prepended to the local-part, e.g. "cb." for cb.jdoe@domain.
	Prefix  string `yaml:"prefix"`
	Group   string `yaml:"group"`
	OrgUnit string `yaml:"org_unit"`
	// NamePrefix heads organization display names ("AWS Cloud Club at").
	NamePrefix string `yaml:"name_prefix"`
	// RoleAnnotation trails person display names ("Community Builder").
	RoleAnnotation string `yaml:"role_annotation"`
}

func (c Community) IsPerson() bool {
	return c.Class == ClassPerson
}

// Communities is the closed set of community types, in display order.
type Communities []Community

func (cs Communities) Lookup(t CommunityType) (Community, error) {
	for _, c := range cs {
		if c.Type == t {
			return c, nil
		}
	}
	return Community{}, fmt.Errorf("%w: %q", ErrInvalidCommunityType, t)
}

func (cs Communities) Types() []CommunityType {
	out := make([]CommunityType, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Type)
	}
	return out
}

func (cs Communities) Validate() error {
	seen := make(map[CommunityType]bool, len(cs))
	for _, c := range cs {
		if c.Type == "" {
			return fmt.Errorf("community type is required")
		}
		if seen[c.Type] {
			return fmt.Errorf("duplicate community type %q", c.Type)
		}
		seen[c.Type] = true
		if c.Class != ClassOrganization && c.Class != ClassPerson {
			return fmt.Errorf("community %q: unknown class %q", c.Type, c.Class)
		}
		if c.Prefix == "" {
			return fmt.Errorf("community %q: prefix is required", c.Type)
		}
	}
	return nil
}

// DefaultCommunities mirrors the membership programs served at launch.
func DefaultCommunities() Communities {
	return Communities{
		{
			Type:       CommunityCloudClub,
			Label:      "AWS Cloud Club",
			Class:      ClassOrganization,
			Prefix:     "cc.",
			Group:      "cloudclubs@awscommunity.mx",
			NamePrefix: "AWS Cloud Club at",
		},
		{
			Type:       CommunityUserGroup,
			Label:      "AWS User Group",
			Class:      ClassOrganization,
			Prefix:     "ug.",
			Group:      "usergroups@awscommunity.mx",
			NamePrefix: "AWS User Group",
		},
		{
			Type:           CommunityCommunityBuilder,
			Label:          "Community Builder",
			Class:          ClassPerson,
			Prefix:         "cb.",
			Group:          "communitybuilders@awscommunity.mx",
			RoleAnnotation: "Community Builder",
		},
		{
			Type:           CommunityHero,
			Label:          "AWS Hero",
			Class:          ClassPerson,
			Prefix:         "hero.",
			Group:          "heroes@awscommunity.mx",
			RoleAnnotation: "AWS Hero",
		},
	}
}
