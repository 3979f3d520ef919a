package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"provisiond/internal/domain"
	"provisiond/internal/usecase"

	"github.com/gin-gonic/gin"
)

type verifySecretRequest struct {
	Type   string `json:"type"`
	Secret string `json:"secret"`
}

type checkUsernameRequest struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type checkUsernameResponse struct {
	Available bool   `json:"available"`
	Email     string `json:"email,omitempty"`
	Error     string `json:"error,omitempty"`
}

type deriveUsernameRequest struct {
	Type      string `json:"type"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type deriveUsernameResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

type registerRequest struct {
	Type         string  `json:"type"`
	Secret       string  `json:"secret"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Phone        string  `json:"phone"`
	ContactEmail string  `json:"contact_email"`
	Bio          *string `json:"bio"`
	Location     *string `json:"location"`
	Company      *string `json:"company"`
	JobTitle     *string `json:"job_title"`
	ProfileImage string  `json:"profile_image"`
	LinkedIn     *string `json:"linkedin"`
	Twitter      *string `json:"twitter"`
	GitHub       *string `json:"github"`
	Instagram    *string `json:"instagram"`
	Facebook     *string `json:"facebook"`
	YouTube      *string `json:"youtube"`
	Website      *string `json:"website"`
}

type registerResponse struct {
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
	AddedToGroup bool   `json:"added_to_group"`
	Notified     bool   `json:"notified"`
}

type socialResponse struct {
	LinkedIn  *string `json:"linkedin"`
	Twitter   *string `json:"twitter"`
	GitHub    *string `json:"github"`
	Instagram *string `json:"instagram"`
	Facebook  *string `json:"facebook"`
	YouTube   *string `json:"youtube"`
	Website   *string `json:"website"`
}

type accountResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Type         string         `json:"type"`
	FirstName    string         `json:"first_name"`
	LastName     *string        `json:"last_name"`
	Phone        *string        `json:"phone"`
	ContactEmail string         `json:"contact_email"`
	DisplayName  string         `json:"display_name"`
	Bio          *string        `json:"bio"`
	Location     *string        `json:"location"`
	Company      *string        `json:"company"`
	JobTitle     *string        `json:"job_title"`
	ProfileImage *string        `json:"profile_image,omitempty"`
	Social       socialResponse `json:"social"`
	CreatedAt    string         `json:"created_at"`
}

func (s *Server) handleVerifySecret(c *gin.Context) {
	var req verifySecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Type == "" || req.Secret == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", "type and secret are required")
		return
	}
	address := clientAddress(c)
	if !s.admit(c, domain.TierVerifySecret, address) {
		return
	}
	valid, err := s.secrets.Verify(c.Request.Context(), usecase.VerifySecretRequest{
		Type:          domain.CommunityType(req.Type),
		Secret:        req.Secret,
		Actor:         s.optionalActor(c),
		SourceAddress: address,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (s *Server) handleCheckUsername(c *gin.Context) {
	var req checkUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Type == "" || req.Username == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", "type and username are required")
		return
	}
	if !s.admit(c, domain.TierCheckUsername, clientAddress(c)) {
		return
	}
	availability, err := s.allocator.CheckUsername(c.Request.Context(), domain.CommunityType(req.Type), req.Username)
	if errors.Is(err, domain.ErrInvalidFormat) {
		c.JSON(http.StatusOK, checkUsernameResponse{Available: false, Error: err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkUsernameResponse{Available: availability.Available, Email: availability.Email})
}

func (s *Server) handleDeriveUsername(c *gin.Context) {
	var req deriveUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if !s.admit(c, domain.TierCheckUsername, clientAddress(c)) {
		return
	}
	alloc, available, err := s.allocator.DeriveUsername(c.Request.Context(), domain.CommunityType(req.Type), req.FirstName, req.LastName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deriveUsernameResponse{
		Username:  alloc.LocalPart,
		Email:     alloc.Email,
		Available: available,
	})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	var avatar []byte
	if req.ProfileImage != "" {
		decoded, err := usecase.DecodeImage(req.ProfileImage)
		if err != nil {
			writeError(c, err)
			return
		}
		avatar = decoded
	}
	result, err := s.registrations.Register(c.Request.Context(), usecase.RegisterRequest{
		Type:          domain.CommunityType(strings.TrimSpace(req.Type)),
		Secret:        req.Secret,
		Username:      strings.TrimSpace(req.Username),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		ContactEmail:  req.ContactEmail,
		Avatar:        avatar,
		SourceAddress: clientAddress(c),
		Profile: domain.Profile{
			Bio:      nonEmpty(req.Bio),
			Location: nonEmpty(req.Location),
			Company:  nonEmpty(req.Company),
			JobTitle: nonEmpty(req.JobTitle),
			Social: domain.SocialLinks{
				LinkedIn:  nonEmpty(req.LinkedIn),
				Twitter:   nonEmpty(req.Twitter),
				GitHub:    nonEmpty(req.GitHub),
				Instagram: nonEmpty(req.Instagram),
				Facebook:  nonEmpty(req.Facebook),
				YouTube:   nonEmpty(req.YouTube),
				Website:   nonEmpty(req.Website),
			},
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, registerResponse{
		Email:        result.Email,
		TempPassword: result.TemporaryCredential,
		AddedToGroup: result.AddedToGroup,
		Notified:     result.Notified,
	})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	principal, ok := s.requireSession(c)
	if !ok {
		return
	}
	account, err := s.profiles.Get(c.Request.Context(), principal.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(*account, true))
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	principal, ok := s.requireSession(c)
	if !ok {
		return
	}
	var patch domain.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	account, err := s.profiles.Update(c.Request.Context(), principal.Email, patch, s.communities, clientAddress(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(*account, true))
}

// admit runs the admission check for a public endpoint and writes the
// rejection when the caller is over budget.
func (s *Server) admit(c *gin.Context, tier domain.RateLimitTier, identifier string) bool {
	decision, err := s.admission.Check(c.Request.Context(), tier, identifier)
	if err != nil {
		writeError(c, err)
		return false
	}
	writeRateLimitHeaders(c, decision)
	return true
}

func toAccountResponse(a domain.Account, withAvatar bool) accountResponse {
	out := accountResponse{
		ID:           a.ID,
		Email:        a.Email,
		Type:         string(a.CommunityType),
		FirstName:    a.PrimaryName,
		LastName:     a.SecondaryName,
		Phone:        a.Phone,
		ContactEmail: a.ContactEmail,
		DisplayName:  a.ProviderDisplayName,
		Bio:          a.Profile.Bio,
		Location:     a.Profile.Location,
		Company:      a.Profile.Company,
		JobTitle:     a.Profile.JobTitle,
		Social: socialResponse{
			LinkedIn:  a.Profile.Social.LinkedIn,
			Twitter:   a.Profile.Social.Twitter,
			GitHub:    a.Profile.Social.GitHub,
			Instagram: a.Profile.Social.Instagram,
			Facebook:  a.Profile.Social.Facebook,
			YouTube:   a.Profile.Social.YouTube,
			Website:   a.Profile.Social.Website,
		},
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if withAvatar && len(a.Profile.Avatar) > 0 {
		encoded := "data:" + http.DetectContentType(a.Profile.Avatar) + ";base64," + base64.StdEncoding.EncodeToString(a.Profile.Avatar)
		out.ProfileImage = &encoded
	}
	return out
}

func nonEmpty(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
