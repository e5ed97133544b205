package mediator

import (
	"context"
	"fmt"
	"net/http"
)

// Token is the credential returned by the auth endpoint.
type Token struct {
	Authorization string `json:"authorization"`
}

// Authenticate exchanges the client key and secret for a token and attaches
// it to every later call.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.clientKey == "" || c.clientSecret == "" {
		return fmt.Errorf("client key and secret are required")
	}

	req := struct {
		ClientKey    string `json:"clientKey"`
		ClientSecret string `json:"clientSecret"`
	}{c.clientKey, c.clientSecret}

	var token Token
	if err := c.do(ctx, http.MethodPost, "/auth/access-token", false, req, &token); err != nil {
		return err
	}
	if token.Authorization == "" {
		return fmt.Errorf("auth response carried no authorization")
	}

	c.mu.Lock()
	c.token = token.Authorization
	c.mu.Unlock()
	return nil
}
