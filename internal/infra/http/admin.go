package http

import (
	"net/http"
	"strconv"
	"time"

	"provisiond/internal/domain"
	"provisiond/internal/usecase"

	"github.com/gin-gonic/gin"
)

type secretStatusResponse struct {
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Configured bool    `json:"configured"`
	UpdatedAt  *string `json:"updated_at"`
}

type accountListResponse struct {
	Accounts   []accountResponse `json:"accounts"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
}

type auditEntryResponse struct {
	ID            string         `json:"id"`
	Action        string         `json:"action"`
	Level         string         `json:"level"`
	Actor         string         `json:"actor"`
	Details       map[string]any `json:"details"`
	SourceAddress *string        `json:"source_address"`
	CreatedAt     string         `json:"created_at"`
}

type auditListResponse struct {
	Entries    []auditEntryResponse `json:"entries"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"total_pages"`
	Actions    []string             `json:"actions"`
}

func (s *Server) handleListSecrets(c *gin.Context) {
	if _, ok := s.requireAdmin(c, domain.PermissionSecretsRead); !ok {
		return
	}
	statuses, err := s.secrets.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]secretStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		item := secretStatusResponse{
			Type:       string(status.CommunityType),
			Label:      status.Label,
			Configured: status.Configured,
		}
		if status.UpdatedAt != nil {
			updated := status.UpdatedAt.UTC().Format(time.RFC3339)
			item.UpdatedAt = &updated
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"secrets": out})
}

func (s *Server) handleRotateSecret(c *gin.Context) {
	principal, ok := s.requireAdmin(c, domain.PermissionSecretsRotate)
	if !ok {
		return
	}
	t := domain.CommunityType(c.Param("type"))
	plaintext, err := s.secrets.Rotate(c.Request.Context(), usecase.RotateSecretRequest{
		Type:          t,
		Principal:     principal,
		Actor:         actorOf(principal),
		SourceAddress: clientAddress(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": string(t), "secret": plaintext})
}

func (s *Server) handleListAccounts(c *gin.Context) {
	principal, ok := s.requireAdmin(c, domain.PermissionAccountsRead)
	if !ok {
		return
	}
	page, err := s.adminQueries.ListAccounts(c.Request.Context(), principal, domain.AccountFilter{
		Search:        c.Query("search"),
		CommunityType: domain.CommunityType(c.Query("type")),
		Page:          queryInt(c, "page"),
		PageSize:      queryInt(c, "page_size"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	out := accountListResponse{
		Accounts:   make([]accountResponse, 0, len(page.Accounts)),
		Total:      page.Total,
		Page:       page.Page,
		TotalPages: page.TotalPages,
	}
	for _, account := range page.Accounts {
		out.Accounts = append(out.Accounts, toAccountResponse(account, false))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteAccount(c *gin.Context) {
	principal, ok := s.requireAdmin(c, domain.PermissionAccountsDelete)
	if !ok {
		return
	}
	result, err := s.deprovisioner.Deprovision(c.Request.Context(), usecase.DeprovisionRequest{
		Identifier:    c.Param("id"),
		Principal:     principal,
		SourceAddress: clientAddress(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted":       true,
		"id":            result.Account.ID,
		"email":         result.Account.Email,
		"remote_absent": result.RemoteAbsent,
	})
}

func (s *Server) handleListAudit(c *gin.Context) {
	principal, ok := s.requireAdmin(c, domain.PermissionAuditRead)
	if !ok {
		return
	}
	page, err := s.adminQueries.ListAudit(c.Request.Context(), principal, domain.AuditFilter{
		ActorSearch: c.Query("actor"),
		Action:      domain.AuditAction(c.Query("action")),
		Page:        queryInt(c, "page"),
		PageSize:    queryInt(c, "page_size"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	out := auditListResponse{
		Entries:    make([]auditEntryResponse, 0, len(page.Entries)),
		Total:      page.Total,
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Actions:    make([]string, 0, len(page.Actions)),
	}
	for _, entry := range page.Entries {
		out.Entries = append(out.Entries, auditEntryResponse{
			ID:            entry.ID,
			Action:        string(entry.Action),
			Level:         string(entry.Level),
			Actor:         entry.Actor,
			Details:       entry.Details,
			SourceAddress: entry.SourceAddress,
			CreatedAt:     entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	for _, action := range page.Actions {
		out.Actions = append(out.Actions, string(action))
	}
	c.JSON(http.StatusOK, out)
}

// queryInt returns 0 for a missing or malformed value so the use case
// applies its default.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
