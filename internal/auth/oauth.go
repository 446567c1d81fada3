package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/accounts-api/internal/model"
)

// Profile is the normalized identity returned by every provider exchange.
// Each exchanger maps its provider's userinfo response into this shape so the
// account service never sees provider-specific fields.
type Profile struct {
	ProviderID   string
	Provider     model.ProviderType
	Email        string
	Username     string
	FirstName    string
	LastName     string
	ProfilePhoto string
}

// Exchanger trades a provider access token for a normalized profile.
//
// The client completed the provider's consent flow on its own and sends us
// the resulting access token; our only job is the server-to-server userinfo
// call. Exchange returns an error on any transport failure, timeout, or
// non-200 response — the caller treats all of those as upstream failures.
type Exchanger interface {
	Exchange(ctx context.Context, accessToken string) (*Profile, error)
}

const (
	googleUserInfoURL   = "https://www.googleapis.com/userinfo/v2/me"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=email,name,picture"
)

// httpClient wraps the token in an oauth2 static source so every request
// carries "Authorization: Bearer <token>", with a hard per-call timeout.
func httpClient(ctx context.Context, accessToken string, timeout time.Duration) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = timeout
	return client
}

// fetchUserInfo performs the userinfo GET and decodes the JSON body into out.
func fetchUserInfo(ctx context.Context, accessToken string, timeout time.Duration, url, provider string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("auth: building %s userinfo request: %w", provider, err)
	}

	resp, err := httpClient(ctx, accessToken, timeout).Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling %s userinfo API: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: %s userinfo API returned status %d", provider, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: decoding %s userinfo response: %w", provider, err)
	}
	return nil
}

// GoogleExchanger resolves profiles via Google's userinfo/v2 endpoint.
type GoogleExchanger struct {
	url     string
	timeout time.Duration
}

// NewGoogleExchanger creates a GoogleExchanger with the given per-call timeout.
func NewGoogleExchanger(timeout time.Duration) *GoogleExchanger {
	return &GoogleExchanger{url: googleUserInfoURL, timeout: timeout}
}

// googleUser is the subset of Google's userinfo response we unmarshal.
type googleUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (g *GoogleExchanger) Exchange(ctx context.Context, accessToken string) (*Profile, error) {
	var gu googleUser
	if err := fetchUserInfo(ctx, accessToken, g.timeout, g.url, "Google", &gu); err != nil {
		return nil, err
	}
	if gu.ID == "" {
		return nil, fmt.Errorf("auth: Google returned a profile with no id")
	}

	return &Profile{
		ProviderID:   gu.ID,
		Provider:     model.ProviderGoogle,
		Email:        gu.Email,
		Username:     strings.TrimSpace(gu.GivenName + " " + gu.FamilyName),
		FirstName:    gu.GivenName,
		LastName:     gu.FamilyName,
		ProfilePhoto: gu.Picture,
	}, nil
}

// FacebookExchanger resolves profiles via the Facebook Graph API.
type FacebookExchanger struct {
	url     string
	timeout time.Duration
}

// NewFacebookExchanger creates a FacebookExchanger with the given per-call timeout.
func NewFacebookExchanger(timeout time.Duration) *FacebookExchanger {
	return &FacebookExchanger{url: facebookUserInfoURL, timeout: timeout}
}

// facebookUser is the subset of the Graph API /me response we unmarshal.
// Facebook nests the avatar URL two levels deep.
type facebookUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (f *FacebookExchanger) Exchange(ctx context.Context, accessToken string) (*Profile, error) {
	var fu facebookUser
	if err := fetchUserInfo(ctx, accessToken, f.timeout, f.url, "Facebook", &fu); err != nil {
		return nil, err
	}
	if fu.ID == "" {
		return nil, fmt.Errorf("auth: Facebook returned a profile with no id")
	}

	// Facebook only exposes the display name; split on the first space so
	// "Ann van Dam" becomes first "Ann", last "van Dam".
	first, last, _ := strings.Cut(fu.Name, " ")

	return &Profile{
		ProviderID:   fu.ID,
		Provider:     model.ProviderFacebook,
		Email:        fu.Email,
		Username:     fu.Name,
		FirstName:    first,
		LastName:     last,
		ProfilePhoto: fu.Picture.Data.URL,
	}, nil
}
