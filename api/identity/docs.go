// Package identity registers the identity service's OpenAPI document with
// swag so http-swagger can serve it under /swagger/. Keep it in step with the
// handler annotations in internal/auth/http:
//
//	swag init -g internal/auth/http/router.go -o api/identity --packageName identity
package identity

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/devhub"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/.well-known/jwks.json": {
            "get": {
                "description": "Returns the JSON Web Key Set used to verify session tokens.",
                "produces": ["application/json"],
                "tags": ["well-known"],
                "summary": "Get JWKS",
                "responses": {
                    "200": {"description": "The JSON Web Key Set", "schema": {"$ref": "#/definitions/authsdk.JWKSResponse"}}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Liveness probe endpoint returning basic service health status, uptime, and version information",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Readiness probe endpoint returning service health status and checks for critical dependencies",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}},
                    "503": {"description": "service not ready", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/v1/auth/signup": {
            "post": {
                "description": "Creates an unverified identity and emails a verification token. The email is stored lowercased.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Account"],
                "summary": "Create an account",
                "parameters": [
                    {"description": "Username, email and password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Identity created", "schema": {"$ref": "#/definitions/authsdk.SignupResponse"}},
                    "400": {"description": "invalid_username, invalid_email or weak_password", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "username_taken or email_taken", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/email/verify": {
            "post": {
                "description": "Consumes an emailed verification token. Unknown and expired tokens get the same answer.",
                "consumes": ["application/json"],
                "tags": ["Account"],
                "summary": "Verify an email address",
                "parameters": [
                    {"description": "Verification token", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.TokenRequest"}}
                ],
                "responses": {
                    "204": {"description": "Email verified"},
                    "400": {"description": "invalid_token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/email/resend": {
            "post": {
                "description": "Always answers 202 so the response does not reveal whether the address is registered.",
                "consumes": ["application/json"],
                "tags": ["Account"],
                "summary": "Resend the verification email",
                "parameters": [
                    {"description": "Email address", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.EmailRequest"}}
                ],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/v1/auth/password/forgot": {
            "post": {
                "description": "Emails a reset token valid for one hour. Always answers 202.",
                "consumes": ["application/json"],
                "tags": ["Account"],
                "summary": "Request a password reset",
                "parameters": [
                    {"description": "Email address", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.EmailRequest"}}
                ],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/v1/auth/password/reset": {
            "post": {
                "description": "Consumes a reset token and sets the new password.",
                "consumes": ["application/json"],
                "tags": ["Account"],
                "summary": "Reset a password",
                "parameters": [
                    {"description": "Reset token and new password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.ResetPasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "Password changed"},
                    "400": {"description": "invalid_token or weak_password", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/login": {
            "post": {
                "description": "Returns a session, or 409 mfa_required with an mfa_token when two-factor is enabled.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Login"],
                "summary": "Sign in with email and password",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Authenticated", "schema": {"$ref": "#/definitions/authsdk.SessionResponse"}},
                    "401": {"description": "invalid_credentials", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "email_not_verified or account_suspended", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "mfa_required", "schema": {"$ref": "#/definitions/authsdk.MFARequiredError"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/login/mfa": {
            "post": {
                "description": "Redeems the mfa_token from a 409 mfa_required answer. A wrong code may be retried until the attempt cap.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Login"],
                "summary": "Complete sign-in with a TOTP code",
                "parameters": [
                    {"description": "MFA token and code", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.MFALoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Authenticated", "schema": {"$ref": "#/definitions/authsdk.SessionResponse"}},
                    "400": {"description": "invalid_token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "invalid_code", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/oauth/{provider}/start": {
            "get": {
                "description": "Redirects to the provider's consent page with a single-use state and a PKCE challenge.",
                "tags": ["Login"],
                "summary": "Start federated sign-in",
                "parameters": [
                    {"type": "string", "description": "github or google", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Redirect to provider"},
                    "404": {"description": "unknown_provider", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/oauth/{provider}/callback": {
            "get": {
                "description": "Exchanges the authorization code, links or creates the identity and answers like /v1/auth/login.",
                "produces": ["application/json"],
                "tags": ["Login"],
                "summary": "Finish federated sign-in",
                "parameters": [
                    {"type": "string", "description": "github or google", "name": "provider", "in": "path", "required": true},
                    {"type": "string", "description": "State from the start redirect", "name": "state", "in": "query", "required": true},
                    {"type": "string", "description": "Authorization code", "name": "code", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "Authenticated", "schema": {"$ref": "#/definitions/authsdk.SessionResponse"}},
                    "400": {"description": "invalid_state", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "404": {"description": "unknown_provider", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "linkage_conflict or mfa_required", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/mfa/enroll": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Generates a TOTP secret and returns it with an otpauth URL and QR code. Two-factor stays off until confirmed.",
                "produces": ["application/json"],
                "tags": ["MFA"],
                "summary": "Start TOTP enrollment",
                "responses": {
                    "200": {"description": "Secret, provisioning URL and QR code", "schema": {"$ref": "#/definitions/authsdk.MFAEnrollResponse"}},
                    "401": {"description": "Invalid or missing access token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "mfa_already_enabled", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/mfa/enroll/confirm": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Checks a code generated from the pending secret and enables two-factor.",
                "consumes": ["application/json"],
                "tags": ["MFA"],
                "summary": "Confirm TOTP enrollment",
                "parameters": [
                    {"description": "Enrollment token and code", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.MFAConfirmRequest"}}
                ],
                "responses": {
                    "204": {"description": "Two-factor enabled"},
                    "400": {"description": "invalid_token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "invalid_code", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "mfa_already_enabled", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/mfa/disable": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Turns two-factor off. A current code is required.",
                "consumes": ["application/json"],
                "tags": ["MFA"],
                "summary": "Disable TOTP",
                "parameters": [
                    {"description": "Current code", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.MFADisableRequest"}}
                ],
                "responses": {
                    "204": {"description": "Two-factor disabled"},
                    "401": {"description": "invalid_code", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "mfa_not_enabled", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Account"],
                "summary": "Get own profile",
                "responses": {
                    "200": {"description": "Profile", "schema": {"$ref": "#/definitions/authsdk.ProfileResponse"}},
                    "401": {"description": "Invalid or missing access token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"}
            }
        },
        "authsdk.MFARequiredError": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "mfa_required"},
                "error_description": {"type": "string"},
                "mfa_token": {"type": "string"},
                "mfa_methods": {"type": "array", "items": {"type": "string"}, "example": ["totp"]}
            }
        },
        "authsdk.SignupRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string", "example": "dev1"},
                "email": {"type": "string", "example": "dev1@example.com"},
                "password": {"type": "string", "example": "secret1"}
            }
        },
        "authsdk.SignupResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "01HZX3J4V6Q8N5T2W7Y9K1M3P5"}
            }
        },
        "authsdk.TokenRequest": {
            "type": "object",
            "properties": {"token": {"type": "string"}}
        },
        "authsdk.EmailRequest": {
            "type": "object",
            "properties": {"email": {"type": "string", "example": "dev1@example.com"}}
        },
        "authsdk.ResetPasswordRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "authsdk.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "dev1@example.com"},
                "password": {"type": "string", "example": "secret1"}
            }
        },
        "authsdk.MFALoginRequest": {
            "type": "object",
            "properties": {
                "mfa_token": {"type": "string"},
                "code": {"type": "string", "example": "123456"}
            }
        },
        "authsdk.SessionResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string", "example": "Bearer"},
                "expires_in": {"type": "integer", "example": 43200},
                "identity_id": {"type": "string"},
                "amr": {"type": "array", "items": {"type": "string"}}
            }
        },
        "authsdk.MFAEnrollResponse": {
            "type": "object",
            "properties": {
                "enrollment_token": {"type": "string"},
                "secret": {"type": "string", "example": "JBSWY3DPEHPK3PXP"},
                "otpauth_url": {"type": "string"},
                "qr_code": {"type": "string"},
                "issuer": {"type": "string", "example": "DevHub"},
                "account": {"type": "string", "example": "dev1@example.com"},
                "expires_at": {"type": "string"}
            }
        },
        "authsdk.MFAConfirmRequest": {
            "type": "object",
            "properties": {
                "enrollment_token": {"type": "string"},
                "code": {"type": "string", "example": "123456"}
            }
        },
        "authsdk.MFADisableRequest": {
            "type": "object",
            "properties": {"code": {"type": "string", "example": "123456"}}
        },
        "authsdk.ProfileResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "avatar_url": {"type": "string"},
                "is_email_verified": {"type": "boolean"},
                "two_factor_enabled": {"type": "boolean"},
                "is_admin": {"type": "boolean"},
                "is_verified": {"type": "boolean"},
                "linked_providers": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"}
            }
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "authsdk.JWKSResponse": {
            "type": "object",
            "properties": {
                "keys": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "kty": {"type": "string", "example": "OKP"},
                            "crv": {"type": "string", "example": "Ed25519"},
                            "alg": {"type": "string", "example": "EdDSA"},
                            "use": {"type": "string", "example": "sig"},
                            "kid": {"type": "string"},
                            "x": {"type": "string"}
                        }
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Session token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "DevHub Identity Service API",
	Description:      "Accounts, password and federated login, TOTP two-factor and session issuance for DevHub.\n\nSession tokens are EdDSA (Ed25519) JWTs and can be verified using the JWKS endpoint.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
