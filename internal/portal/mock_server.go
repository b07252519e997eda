// SPDX-License-Identifier: MIT
package portal

import (
	"bytes"
	"crypto/des"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockChannel is a catalog entry served by MockServer.
type MockChannel struct {
	ID   string
	Name string
	URL  string // raw ChannelURL value, "|" separated
}

// MockServer emulates the portal endpoints used by Client for tests.
type MockServer struct {
	*httptest.Server
	mu        sync.RWMutex
	password  string
	userID    string
	token     string
	channels  []MockChannel
	programs  map[string][]playbill
	guideFail map[string]bool
	failures  map[string]int // forced HTTP status per path
	delay     map[string]time.Duration
	catalog   string // raw catalog page override
	calls     map[string]int
	lastAuth  string
}

// NewMockServer starts a portal mock accepting the given credentials.
func NewMockServer(userID, password string) *MockServer {
	m := &MockServer{
		password:  password,
		userID:    userID,
		token:     "ENCRY-TOKEN-0001",
		programs:  make(map[string][]playbill),
		guideFail: make(map[string]bool),
		failures:  make(map[string]int),
		delay:     make(map[string]time.Duration),
		calls:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/EDS/jsp/AuthenticationURL", m.handleLogin)
	mux.HandleFunc("/EPG/oauth/v2/authorize", m.handleAuthorize)
	mux.HandleFunc("/EPG/oauth/v2/token", m.handleToken)
	mux.HandleFunc("/EPG/jsp/getchannellistHWCTC.jsp", m.handleCatalog)
	mux.HandleFunc("/EPG/jsp/iptvsnmv3/en/play/ajax/_ajax_getPlaybillList.jsp", m.handleGuide)
	mux.HandleFunc("/EPG/jsp/iptvsnmv3/en/list/images/channelIcon/", m.handleIcon)

	m.Server = httptest.NewServer(mux)
	return m
}

// AuthURL returns the login endpoint of the mock.
func (m *MockServer) AuthURL() string {
	return m.URL + "/EDS/jsp/AuthenticationURL"
}

// AddChannel appends a catalog entry.
func (m *MockServer) AddChannel(ch MockChannel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// SetCatalogPage overrides the generated catalog page.
func (m *MockServer) SetCatalogPage(page string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = page
}

// AddProgram adds a guide entry for a channel id.
func (m *MockServer) AddProgram(channelID, name string, start, end int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[channelID] = append(m.programs[channelID], playbill{Name: name, StartTime: start, EndTime: end})
}

// FailGuide makes guide requests for channelID answer with HTTP 500.
func (m *MockServer) FailGuide(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guideFail[channelID] = true
}

// SetFailure forces path to answer with status.
func (m *MockServer) SetFailure(path string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = status
}

// SetDelay delays responses on path.
func (m *MockServer) SetDelay(path string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay[path] = d
}

// Calls returns how often path was requested.
func (m *MockServer) Calls(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[path]
}

// LastAuthInfo returns the decrypted authinfo of the last token request.
func (m *MockServer) LastAuthInfo() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAuth
}

func (m *MockServer) begin(w http.ResponseWriter, r *http.Request) bool {
	m.mu.Lock()
	m.calls[r.URL.Path]++
	status := m.failures[r.URL.Path]
	delay := m.delay[r.URL.Path]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return false
		}
	}
	if status != 0 {
		w.WriteHeader(status)
		return false
	}
	return true
}

func (m *MockServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	c, err := r.Cookie("JSESSIONID")
	if err != nil || c.Value != m.token {
		w.WriteHeader(http.StatusForbidden)
		return false
	}
	return true
}

func (m *MockServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !m.begin(w, r) {
		return
	}
	if r.URL.Query().Get("Action") != "Login" || r.URL.Query().Get("UserID") != m.userID {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"epgurl": m.URL + "/EPG/jsp/defaultHSVIP/en/go_authorization.jsp"})
}

func (m *MockServer) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if !m.begin(w, r) {
		return
	}
	q := r.URL.Query()
	if q.Get("response_type") != "EncryToken" || q.Get("client_id") != clientID || q.Get("userid") != m.userID {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"EncryToken": m.token})
}

func (m *MockServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if !m.begin(w, r) {
		return
	}
	q := r.URL.Query()
	plain, err := DecryptAuthInfo(m.password, q.Get("authinfo"))
	if err != nil || q.Get("grant_type") != "EncryToken" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	parts := strings.Split(plain, "$")
	if len(parts) != 8 || parts[1] != m.token || parts[2] != m.userID || parts[7] != "CTC" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	m.mu.Lock()
	m.lastAuth = plain
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: m.token, Path: "/"})
	writeJSON(w, map[string]string{"access_token": "ignored"})
}

func (m *MockServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if !m.begin(w, r) || !m.authorized(w, r) {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.catalog != "" {
		_, _ = w.Write([]byte(m.catalog))
		return
	}
	var b strings.Builder
	b.WriteString("<script>\n")
	for _, ch := range m.channels {
		fmt.Fprintf(&b, "Authentication.CTCSetConfig('Channel','ChannelID=\"%s\",ChannelName=\"%s\",UserChannelID=\"%s\",ChannelURL=\"%s\",TimeShift=\"1\"');\n",
			ch.ID, ch.Name, ch.ID, ch.URL)
	}
	b.WriteString("</script>\n")
	_, _ = w.Write([]byte(b.String()))
}

func (m *MockServer) handleGuide(w http.ResponseWriter, r *http.Request) {
	if !m.begin(w, r) || !m.authorized(w, r) {
		return
	}
	id := r.URL.Query().Get("channelId")
	if _, err := strconv.ParseInt(r.URL.Query().Get("begin"), 10, 64); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	fail := m.guideFail[id]
	list := append([]playbill(nil), m.programs[id]...)
	m.mu.RUnlock()

	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, playbillList{Lites: list})
}

// mockPNG is a 1x1 transparent PNG.
var mockPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// MockPNG returns the icon bytes served by the mock.
func MockPNG() []byte {
	return append([]byte(nil), mockPNG...)
}

func (m *MockServer) handleIcon(w http.ResponseWriter, r *http.Request) {
	if !m.begin(w, r) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/EPG/jsp/iptvsnmv3/en/list/images/channelIcon/")
	id := strings.TrimSuffix(name, ".png")

	m.mu.RLock()
	known := false
	for _, ch := range m.channels {
		if ch.ID == id {
			known = true
			break
		}
	}
	m.mu.RUnlock()

	if !known {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(mockPNG)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// DecryptAuthInfo reverses DeriveAuthInfo. It exists for portal emulation.
func DecryptAuthInfo(password, authinfo string) (string, error) {
	raw, err := hex.DecodeString(authinfo)
	if err != nil {
		return "", err
	}
	block, err := des.NewTripleDESCipher(authKey(password))
	if err != nil {
		return "", err
	}
	bs := block.BlockSize()
	if len(raw) == 0 || len(raw)%bs != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of %d", len(raw), bs)
	}
	plain := make([]byte, len(raw))
	for off := 0; off < len(raw); off += bs {
		block.Decrypt(plain[off:off+bs], raw[off:off+bs])
	}
	n := int(plain[len(plain)-1])
	if n == 0 || n > bs || !bytes.Equal(plain[len(plain)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return "", fmt.Errorf("invalid padding")
	}
	return string(plain[:len(plain)-n]), nil
}
