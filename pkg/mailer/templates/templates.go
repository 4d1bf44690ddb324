package templates

import (
	"bytes"
	"fmt"
	"html/template"
)

// ResetPassword is the template name used for password-reset emails.
const ResetPassword = "reset_password"

var resetPasswordHTML = template.Must(template.New(ResetPassword).Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Password reset</h2>
  <p>Hi {{.Username}},</p>
  <p>We received a request to reset the password for your account.
     Use the token below to complete the reset. It expires in {{.ExpiresIn}}.</p>
  <p style="font-size: 14px; background: #f4f4f4; padding: 12px; word-break: break-all;">
    <code>{{.Token}}</code>
  </p>
  <p>If you did not request this, you can safely ignore this email.</p>
</body>
</html>
`))

// Render renders the named template with data and returns subject, text and
// html bodies.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	switch name {
	case ResetPassword:
		var buf bytes.Buffer
		if err := resetPasswordHTML.Execute(&buf, data); err != nil {
			return "", "", "", err
		}
		text = fmt.Sprintf("Use this token to reset your password: %v (expires in %v)",
			data["Token"], data["ExpiresIn"])
		return "Reset your password", text, buf.String(), nil
	default:
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
}
