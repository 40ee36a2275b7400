package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/kha159-create/alsani-cockpit/internal/config"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/httpretry"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleUserInfo represents the user info returned by Google
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HD            string `json:"hd"` // Hosted domain (Workspace domain)
}

// Session represents an authenticated user session
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionKey struct{}

// FromContext returns the session RequireAuth attached to the request, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// AuthManager handles Google OAuth authentication
type AuthManager struct {
	config       config.AuthConfig
	oauth2Config *oauth2.Config
	userInfoURL  string
	sessions     map[string]*Session
	sessionMu    sync.RWMutex
}

// NewAuthManager creates a new authentication manager. When cfg.RedirectURL
// is empty the callback is baseURL + "/auth/callback".
func NewAuthManager(cfg config.AuthConfig, baseURL string) *AuthManager {
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = strings.TrimRight(baseURL, "/") + "/auth/callback"
	}
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  redirect,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &AuthManager{
		config:       cfg,
		oauth2Config: oauth2Config,
		userInfoURL:  googleUserInfoURL,
		sessions:     make(map[string]*Session),
	}
}

// Enabled reports whether logins are enforced.
func (am *AuthManager) Enabled() bool { return am.config.Enabled }

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HandleLogin initiates the Google OAuth flow
func (am *AuthManager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if am.config.AllowedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", am.config.AllowedDomain))
	}
	http.Redirect(w, r, am.oauth2Config.AuthCodeURL(state, opts...), http.StatusTemporaryRedirect)
}

// HandleCallback processes the OAuth callback from Google
func (am *AuthManager) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || r.URL.Query().Get("state") != stateCookie.Value {
		log.Printf("Auth: state missing or mismatched")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusTemporaryRedirect)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		log.Printf("Auth: Google returned error: %s", errMsg)
		http.Redirect(w, r, "/?error="+url.QueryEscape(errMsg), http.StatusTemporaryRedirect)
		return
	}

	token, err := am.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Printf("Auth: Failed to exchange code: %v", err)
		http.Redirect(w, r, "/?error=exchange_failed", http.StatusTemporaryRedirect)
		return
	}

	userInfo, err := am.getUserInfo(r.Context(), token)
	if err != nil {
		log.Printf("Auth: Failed to get user info: %v", err)
		http.Redirect(w, r, "/?error=userinfo_failed", http.StatusTemporaryRedirect)
		return
	}

	if !am.domainAllowed(userInfo.Email) {
		log.Printf("Auth: Domain not allowed: %s (expected %s)", userInfo.Email, am.config.AllowedDomain)
		http.Redirect(w, r, "/?error=domain_not_allowed", http.StatusTemporaryRedirect)
		return
	}

	sessionID, err := randomToken()
	if err != nil {
		log.Printf("Auth: Failed to generate session ID: %v", err)
		http.Redirect(w, r, "/?error=session_failed", http.StatusTemporaryRedirect)
		return
	}

	now := time.Now()
	am.sessionMu.Lock()
	am.sessions[sessionID] = &Session{
		UserID:    userInfo.ID,
		Email:     userInfo.Email,
		Name:      userInfo.Name,
		Picture:   userInfo.Picture,
		Domain:    userInfo.HD,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(am.config.CookieMaxAge) * time.Second),
	}
	am.sessionMu.Unlock()

	log.Printf("Auth: User logged in: %s (%s)", userInfo.Email, userInfo.Name)

	http.SetCookie(w, &http.Cookie{
		Name:     am.config.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   am.config.CookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (am *AuthManager) domainAllowed(email string) bool {
	if am.config.AllowedDomain == "" {
		return true
	}
	_, domain, ok := strings.Cut(email, "@")
	return ok && strings.EqualFold(domain, am.config.AllowedDomain)
}

// HandleLogout logs out the user
func (am *AuthManager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(am.config.CookieName); err == nil {
		am.sessionMu.Lock()
		delete(am.sessions, cookie.Value)
		am.sessionMu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:   am.config.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// HandleUserInfo returns the current user's info as JSON
func (am *AuthManager) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !am.config.Enabled {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"authenticated": true,
			"authDisabled":  true,
		})
		return
	}
	session := am.GetSession(r)
	if session == nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"authenticated": false,
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": true,
		"user": map[string]string{
			"id":      session.UserID,
			"email":   session.Email,
			"name":    session.Name,
			"picture": session.Picture,
			"domain":  session.Domain,
		},
	})
}

// GetSession returns the session for the current request, or nil if not authenticated
func (am *AuthManager) GetSession(r *http.Request) *Session {
	cookie, err := r.Cookie(am.config.CookieName)
	if err != nil {
		return nil
	}

	am.sessionMu.RLock()
	session, exists := am.sessions[cookie.Value]
	am.sessionMu.RUnlock()
	if !exists {
		return nil
	}

	if time.Now().After(session.ExpiresAt) {
		am.sessionMu.Lock()
		delete(am.sessions, cookie.Value)
		am.sessionMu.Unlock()
		return nil
	}
	return session
}

// RequireAuth is middleware that requires authentication on /api/ routes.
// It passes everything through when auth is disabled.
func (am *AuthManager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.config.Enabled || strings.HasPrefix(r.URL.Path, "/auth/") || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		session := am.GetSession(r)
		if session == nil {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "unauthorized",
				})
				return
			}
			// the frontend shows its own login page
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

// getUserInfo fetches the user's profile from Google
func (am *AuthManager) getUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	resp, err := am.oauth2Config.Client(ctx, token).Get(am.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API error: %s", string(body))
	}

	var userInfo GoogleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return &userInfo, nil
}

// ValidateCredentials probes Google's token endpoint with a dummy code so
// rotated or wrong client credentials show up at boot instead of at the
// first login. Google answers invalid_client for bad credentials and
// invalid_grant for a bad code.
func (am *AuthManager) ValidateCredentials(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {"validation_probe"},
		"client_id":     {am.oauth2Config.ClientID},
		"client_secret": {am.oauth2Config.ClientSecret},
		"redirect_uri":  {am.oauth2Config.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, am.oauth2Config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpretry.NewRetryClient(nil, 3).Do(req)
	if err != nil {
		return fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	switch {
	case strings.Contains(bodyStr, "invalid_grant"), strings.Contains(bodyStr, "invalid_request"), strings.Contains(bodyStr, "redirect_uri_mismatch"):
		return nil
	case strings.Contains(bodyStr, "invalid_client"):
		return fmt.Errorf("google OAuth client credentials were rejected")
	}
	return fmt.Errorf("unexpected response from Google token endpoint (HTTP %d): %s", resp.StatusCode, bodyStr)
}

// CleanupExpiredSessions removes expired sessions every five minutes
// until ctx is cancelled.
func (am *AuthManager) CleanupExpiredSessions(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				am.removeExpired(time.Now())
			}
		}
	}()
}

func (am *AuthManager) removeExpired(now time.Time) {
	am.sessionMu.Lock()
	defer am.sessionMu.Unlock()
	for id, session := range am.sessions {
		if now.After(session.ExpiresAt) {
			delete(am.sessions, id)
		}
	}
}
