package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public web3.bio profile API.
const DefaultBaseURL = "https://api.web3.bio"

const maxSocialLinks = 3

// ErrNotFound is returned when no profile resolves for an identity.
var ErrNotFound = errors.New("profile not found")

// Profile is a resolved identity: wallet address, display metadata and up to
// three social links.
type Profile struct {
	Identity    string
	Address     string
	DisplayName string
	Description string
	Avatar      string
	Socials     []string
}

type bioLink struct {
	Link   string `json:"link"`
	Handle string `json:"handle"`
}

type bioProfile struct {
	Address     string             `json:"address"`
	Identity    string             `json:"identity"`
	Platform    string             `json:"platform"`
	DisplayName string             `json:"displayName"`
	Avatar      string             `json:"avatar"`
	Description string             `json:"description"`
	Links       map[string]bioLink `json:"links"`
}

// Resolver looks up profile pages by wallet address, ENS/Base name, or
// social handle through web3.bio.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
}

// NewResolver creates a resolver. An empty baseURL selects the public API.
func NewResolver(baseURL string, timeout time.Duration) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Resolve returns the profile for an identity. The first platform entry
// wins for address and display metadata; social links are deduplicated
// across all entries and capped at three.
func (r *Resolver) Resolve(ctx context.Context, identity string) (*Profile, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrNotFound
	}

	u := r.baseURL + "/profile/" + url.PathEscape(identity)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile lookup failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("profile lookup: reading response: %w", err)
	}

	var entries []bioProfile
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("profile lookup: malformed response: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}

	first := entries[0]

	address := first.Address
	if address == "" {
		return nil, ErrNotFound
	}

	displayName := first.DisplayName
	if displayName == "" {
		displayName = identity
	}

	avatar := first.Avatar
	if avatar == "" {
		avatar = "https://effigy.im/a/" + address + ".png"
	}

	seen := make(map[string]struct{})
	var socials []string
	for _, entry := range entries {
		for _, link := range entry.Links {
			if link.Link == "" {
				continue
			}
			if _, dup := seen[link.Link]; dup {
				continue
			}
			seen[link.Link] = struct{}{}
			socials = append(socials, link.Link)
		}
	}
	if len(socials) > maxSocialLinks {
		socials = socials[:maxSocialLinks]
	}

	return &Profile{
		Identity:    identity,
		Address:     address,
		DisplayName: displayName,
		Description: first.Description,
		Avatar:      avatar,
		Socials:     socials,
	}, nil
}
