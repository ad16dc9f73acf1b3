package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"barterhub/pkg/errors"
)

// FirebaseAuthClient verifies Firebase ID tokens and mints custom tokens.
type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}

	if result.Claims != nil {
		if disabled, ok := result.Claims["disabled"].(bool); ok && disabled {
			return "", errors.Unauthorized("Account disabled", nil)
		}
	}

	return result.UID, nil
}

// IssueToken returns a custom token for uid. Clients exchange it for an ID
// token through the Firebase client SDK.
func (f *FirebaseAuthClient) IssueToken(ctx context.Context, uid string) (string, error) {
	token, err := f.client.CustomToken(ctx, uid)
	if err != nil {
		return "", errors.Internal("Failed to issue token", err)
	}

	return token, nil
}
