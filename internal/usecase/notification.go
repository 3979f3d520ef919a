package usecase

import (
	"bytes"
	"fmt"
	"text/template"

	"provisiond/internal/domain"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`Hello!

Your @{{.Domain}} email has been successfully created.

Email: {{.Email}}
Temporary Password: {{.Credential}}

To get started:
1. Go to https://mail.google.com
2. Sign in with {{.Email}}
3. Enter the temporary password above
4. You will be prompted to set a new password

Welcome to the {{.Organization}}!

Best regards,
{{.Organization}} Team
`))

type confirmationData struct {
	Domain       string
	Email        string
	Credential   string
	Organization string
}

// ConfirmationMessage builds the mail sent to the contact address after an
// identity is created.
func ConfirmationMessage(to, email, credential, emailDomain, organization string) (domain.MailMessage, error) {
	if organization == "" {
		organization = "AWS Community"
	}
	var body bytes.Buffer
	err := confirmationTemplate.Execute(&body, confirmationData{
		Domain:       emailDomain,
		Email:        email,
		Credential:   credential,
		Organization: organization,
	})
	if err != nil {
		return domain.MailMessage{}, fmt.Errorf("render confirmation: %w", err)
	}
	return domain.MailMessage{
		To:      to,
		Subject: fmt.Sprintf("Your %s Email Has Been Created", organization),
		Body:    body.String(),
	}, nil
}
