/*
Package authsdk provides a client SDK for the devhub identity service.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (signup, email verification,
    password reset, login) and the creation of Sessions
  - Session: operations that need a bearer token (profile, 2FA management)

Create an SDKClient and sign up:

	client := authsdk.NewSDKClient("https://identity.example.com")

	created, err := client.Signup(ctx, authsdk.SignupRequest{
		Username: "dev1",
		Email:    "dev1@example.com",
		Password: "secret1",
	})

	// The token arrives by email.
	err = client.VerifyEmail(ctx, token)

# Logging In

	session, err := client.AuthenticateWithPassword(ctx, "dev1@example.com", "secret1")
	var mfa *authsdk.MFARequiredError
	if errors.As(err, &mfa) {
		session, err = client.CompleteMFALogin(ctx, mfa, totpCode)
	}

Sessions are not refreshed. Once the access token expires every Session
method returns ErrSessionExpired and the caller logs in again.

# Two-Factor Authentication

	enroll, err := session.EnrollMFA(ctx)
	// Show enroll.QRCode (a PNG data URL) or enroll.Secret to the user.
	err = session.ConfirmMFA(ctx, enroll.EnrollmentToken, code)

	// Later:
	err = session.DisableMFA(ctx, code)

# Error Handling

Every non-2xx response becomes an *APIError (or *MFARequiredError for the
409 second-factor answer). APIError implements Is on its Code, so

	errors.Is(err, authsdk.ErrInvalidCode)

works regardless of the description text.

# Verifying Sessions in Other Services

	verifier, err := client.NewVerifier(ctx, "devhub-identity", nil)
	claims, err := verifier.Verify(bearer)

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
