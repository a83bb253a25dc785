package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"talentpool-backend/internal/model"
)

// MockOAuth2Server imitate google token and userinfo endpoints
type MockOAuth2Server struct {
	*httptest.Server
	Config           *oauth2.Config
	MockInfoEndpoint string

	mu        sync.Mutex
	users     map[string]model.GoogleUserInfo
	exchanged map[string]bool
}

// NewMockOAuth2Server start server knowing given google users
func NewMockOAuth2Server(users []model.GoogleUserInfo) *MockOAuth2Server {
	m := &MockOAuth2Server{
		users:     make(map[string]model.GoogleUserInfo),
		exchanged: make(map[string]bool),
	}
	for _, u := range users {
		m.users[u.GID] = u
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", m.handleToken)
	mux.HandleFunc("/userinfo", m.handleUserInfo)
	m.Server = httptest.NewServer(mux)

	m.Config = &oauth2.Config{
		ClientID:     "mock-client",
		ClientSecret: "mock-secret",
		RedirectURL:  "postmessage",
		Endpoint: oauth2.Endpoint{
			AuthURL:   m.URL + "/auth",
			TokenURL:  m.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	m.MockInfoEndpoint = m.URL + "/userinfo"
	return m
}

// GetAuthCode return authorization code that exchange into token of gid
func (m *MockOAuth2Server) GetAuthCode(gid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[gid]; !ok {
		return "", fmt.Errorf("unknown google user %s", gid)
	}
	return "code-" + gid, nil
}

// IsUserTokenExchanged tell whether code of gid was exchanged
func (m *MockOAuth2Server) IsUserTokenExchanged(gid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchanged[gid]
}

func (m *MockOAuth2Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	gid := strings.TrimPrefix(r.PostForm.Get("code"), "code-")

	m.mu.Lock()
	_, ok := m.users[gid]
	if ok {
		m.exchanged[gid] = true
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": "token-" + gid,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (m *MockOAuth2Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	gid := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer token-")

	m.mu.Lock()
	user, ok := m.users[gid]
	m.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(user)
}
