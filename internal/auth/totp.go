package auth

import (
	"fmt"
	"net/url"

	"github.com/pquerna/otp/totp"
)

const totpIssuer = "CertLedger"

// GenerateTOTPSecret generates a new TOTP secret for an admin account
func GenerateTOTPSecret(username string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	return key.Secret(), nil
}

// ProvisioningURL builds the otpauth URL an authenticator app enrolls from
func ProvisioningURL(secret, username string) string {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s",
		url.QueryEscape(totpIssuer),
		url.QueryEscape(username),
		secret,
		url.QueryEscape(totpIssuer))
}

// ValidateTOTP validates a TOTP code against a secret
func ValidateTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
