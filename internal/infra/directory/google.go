package directory

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"provisiond/internal/domain"

	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var googleScopes = []string{
	admin.AdminDirectoryUserScope,
	admin.AdminDirectoryGroupMemberScope,
	gmail.GmailSendScope,
}

// GoogleDirectory drives Google Workspace. Every call impersonates the
// configured admin through domain-wide delegation.
type GoogleDirectory struct {
	directory *admin.Service
	gmail     *gmail.Service
	sender    string
	timeout   time.Duration
	log       *slog.Logger
}

type GoogleConfig struct {
	AdminEmail string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// NewGoogleDirectory builds the client from a service-account JSON key.
func NewGoogleDirectory(ctx context.Context, keyJSON []byte, cfg GoogleConfig) (*GoogleDirectory, error) {
	if cfg.AdminEmail == "" {
		return nil, errors.New("admin email is required")
	}
	jwtConfig, err := google.JWTConfigFromJSON(keyJSON, googleScopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	jwtConfig.Subject = cfg.AdminEmail
	return NewGoogleDirectoryWithOptions(ctx, cfg, option.WithHTTPClient(jwtConfig.Client(ctx)))
}

func NewGoogleDirectoryWithOptions(ctx context.Context, cfg GoogleConfig, opts ...option.ClientOption) (*GoogleDirectory, error) {
	dir, err := admin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("directory service: %w", err)
	}
	mail, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GoogleDirectory{
		directory: dir,
		gmail:     mail,
		sender:    cfg.AdminEmail,
		timeout:   cfg.Timeout,
		log:       cfg.Logger,
	}, nil
}

func (g *GoogleDirectory) Exists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	_, err := g.directory.Users.Get(email).Fields("id").Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	if statusCode(err) == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("get user: %w", err)
}

func (g *GoogleDirectory) Create(ctx context.Context, identity domain.NewIdentity) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	user := &admin.User{
		PrimaryEmail: identity.Email,
		Name: &admin.UserName{
			GivenName:  identity.GivenName,
			FamilyName: identity.FamilyName,
		},
		Password:                  identity.Password,
		ChangePasswordAtNextLogin: true,
		OrgUnitPath:               identity.OrgUnit,
	}
	_, err := g.directory.Users.Insert(user).Context(ctx).Do()
	if err == nil {
		return nil
	}
	switch statusCode(err) {
	case http.StatusConflict:
		return domain.ErrIdentityConflict
	case http.StatusBadRequest:
		if isOrgUnitError(err) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidOrgUnit, identity.OrgUnit)
		}
	}
	return fmt.Errorf("insert user: %w", err)
}

func (g *GoogleDirectory) Delete(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	err := g.directory.Users.Delete(email).Context(ctx).Do()
	if err == nil {
		return nil
	}
	if statusCode(err) == http.StatusNotFound {
		return domain.ErrIdentityNotFound
	}
	return fmt.Errorf("delete user: %w", err)
}

func (g *GoogleDirectory) AddToGroup(ctx context.Context, email, group string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	_, err := g.directory.Members.Insert(group, &admin.Member{Email: email, Role: "MEMBER"}).Context(ctx).Do()
	if err == nil {
		return nil
	}
	if statusCode(err) == http.StatusConflict {
		g.log.Debug("already a group member", slog.String("email", email), slog.String("group", group))
		return nil
	}
	return fmt.Errorf("insert member: %w", err)
}

func (g *GoogleDirectory) UploadPhoto(ctx context.Context, email string, image []byte) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	photo := &admin.UserPhoto{
		PhotoData: base64.URLEncoding.EncodeToString(image),
		MimeType:  photoMimeType(image),
	}
	if _, err := g.directory.Users.Photos.Update(email, photo).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	return nil
}

// FetchPhoto returns the provider's re-encoded rendition of the photo.
func (g *GoogleDirectory) FetchPhoto(ctx context.Context, email string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	photo, err := g.directory.Users.Photos.Get(email).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return decodePhotoData(photo.PhotoData)
}

// Send delivers through the admin's mailbox.
func (g *GoogleDirectory) Send(ctx context.Context, msg domain.MailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	raw := base64.RawURLEncoding.EncodeToString(composeMessage(g.sender, msg))
	if _, err := g.gmail.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func composeMessage(from string, msg domain.MailMessage) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

func isOrgUnitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid_ou_id") || strings.Contains(msg, "org unit") || strings.Contains(msg, "orgunit")
}

func photoMimeType(image []byte) string {
	switch http.DetectContentType(image) {
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	case "image/bmp":
		return "BMP"
	default:
		return "JPEG"
	}
}

// decodePhotoData accepts web-safe and standard base64.
func decodePhotoData(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	if raw, err := base64.URLEncoding.DecodeString(data); err == nil {
		return raw, nil
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return raw, nil
}
