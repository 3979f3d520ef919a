package domain

import "time"

type Account struct {
	ID                  string
	Email               string
	CommunityType       CommunityType
	LocalPart           string
	PrimaryName         string
	SecondaryName       *string
	Phone               *string
	ContactEmail        string
	ProviderDisplayName string
	CreatedAt           time.Time
	Profile             Profile
}

type Profile struct {
	Bio      *string
	Location *string
	Avatar   []byte
	Company  *string
	JobTitle *string
	Social   SocialLinks
}

type SocialLinks struct {
	LinkedIn  *string
	Twitter   *string
	GitHub    *string
	Instagram *string
	Facebook  *string
	YouTube   *string
	Website   *string
}

// ProfilePatch is a partial profile update; absent fields keep their value and
// explicit nulls clear it. Avatar is an encoded image and is applied by the
// caller after syncing it with the identity provider.
type ProfilePatch struct {
	Bio       Optional[string] `json:"bio"`
	Location  Optional[string] `json:"location"`
	Company   Optional[string] `json:"company"`
	JobTitle  Optional[string] `json:"job_title"`
	Avatar    Optional[string] `json:"profile_image"`
	LinkedIn  Optional[string] `json:"linkedin"`
	Twitter   Optional[string] `json:"twitter"`
	GitHub    Optional[string] `json:"github"`
	Instagram Optional[string] `json:"instagram"`
	Facebook  Optional[string] `json:"facebook"`
	YouTube   Optional[string] `json:"youtube"`
	Website   Optional[string] `json:"website"`
}

func (p ProfilePatch) Apply(profile Profile) Profile {
	profile.Bio = p.Bio.ApplyPtr(profile.Bio)
	profile.Location = p.Location.ApplyPtr(profile.Location)
	profile.Company = p.Company.ApplyPtr(profile.Company)
	profile.JobTitle = p.JobTitle.ApplyPtr(profile.JobTitle)
	profile.Social.LinkedIn = p.LinkedIn.ApplyPtr(profile.Social.LinkedIn)
	profile.Social.Twitter = p.Twitter.ApplyPtr(profile.Social.Twitter)
	profile.Social.GitHub = p.GitHub.ApplyPtr(profile.Social.GitHub)
	profile.Social.Instagram = p.Instagram.ApplyPtr(profile.Social.Instagram)
	profile.Social.Facebook = p.Facebook.ApplyPtr(profile.Social.Facebook)
	profile.Social.YouTube = p.YouTube.ApplyPtr(profile.Social.YouTube)
	profile.Social.Website = p.Website.ApplyPtr(profile.Social.Website)
	return profile
}

type AccountFilter struct {
	Search        string
	CommunityType CommunityType
	Page          int
	PageSize      int
}

type AccountPage struct {
	Accounts   []Account
	Total      int64
	Page       int
	TotalPages int
}
