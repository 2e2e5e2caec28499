package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthIdentity is what the provider vouches for. It never includes a
// password or phone number, which is why profile completion exists.
type OAuthIdentity struct {
	Email     string
	FirstName string
	LastName  string
}

type OAuthProvider interface {
	AuthCodeURL(state string) string
	FetchIdentity(ctx context.Context, code string) (*OAuthIdentity, error)
}

type GoogleOAuthProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
	HTTPTimeout time.Duration
}

func NewGoogleOAuthProvider(clientID string, clientSecret string, redirectURL string) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		HTTPTimeout: 10 * time.Second,
	}
}

func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

func (p *GoogleOAuthProvider) FetchIdentity(ctx context.Context, code string) (*OAuthIdentity, error) {
	if p.HTTPTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.HTTPTimeout)
		defer cancel()
	}

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth code exchange: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	response, err := p.Config.Client(ctx, token).Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode >= 300 {
		return nil, fmt.Errorf("userinfo request failed with status %d", response.StatusCode)
	}

	var info struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.NewDecoder(response.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &OAuthIdentity{
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	}, nil
}
