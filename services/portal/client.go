package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// RootURL is the portal account root, shared by every box.
	RootURL = "https://wodbuster.com"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"

	requestTimeout = 10 * time.Second

	notAcceptingRequestsMessage = "WodBuster is not accepting more requests at this time. Try again in a minute"
	moreThanOneBoxMessage       = "User can access more than one box"
)

// authCookieName is the portal session cookie whose expiry decides
// whether a stored blob is still worth probing.
const authCookieName = ".WBAuth"

// Scraper is a stateful per-user portal session. It is safe for use by
// multiple goroutines; portal interactions are serialized per user.
type Scraper struct {
	mu       sync.Mutex
	email    string
	password string
	logged   bool

	jar        *cookiejar.Jar
	client     *http.Client
	noRedirect *http.Client
	stream     *http.Client

	meta BoxMetaCache

	logger *zap.Logger
}

// NewScraper builds a session for the given user. The cookie blob, when
// present, seeds the session so a credential login may be skipped.
func NewScraper(email, password string, cookie []byte, meta BoxMetaCache) *Scraper {
	s := &Scraper{
		email:    email,
		password: password,
		meta:     meta,
		logger:   zap.L().With(zap.String("user", email)),
	}
	s.resetSession()
	if len(cookie) > 0 {
		if err := s.loadCookies(cookie); err != nil {
			s.logger.Warn("Discarding unreadable cookie blob", zap.Error(err))
		}
	}
	return s
}

// resetSession discards every cookie and rebuilds the HTTP clients.
func (s *Scraper) resetSession() {
	jar, _ := cookiejar.New(nil)
	s.jar = jar
	s.client = &http.Client{Jar: jar, Timeout: requestTimeout}
	s.noRedirect = &http.Client{
		Jar:     jar,
		Timeout: requestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	// The SSE stream is expected to block; its lifetime is bounded by
	// the request context, not a client timeout.
	s.stream = &http.Client{Jar: jar}
}

// Email returns the user the session belongs to.
func (s *Scraper) Email() string {
	return s.email
}

// Login attempts to log the user into the portal. It is idempotent: once
// a session is established later calls return immediately.
func (s *Scraper) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login(ctx)
}

func (s *Scraper) login(ctx context.Context) error {
	if s.logged {
		return nil
	}

	if s.hasSessionCookie() {
		resp, err := s.get(ctx, s.noRedirect, RootURL+"/account/roadtobox.aspx")
		if err != nil {
			return err
		}
		resp.Body.Close()

		location := resp.Header.Get("Location")
		if location != "" && strings.Contains(location, "login") {
			s.logger.Warn("Cookie is outdated, attempting login with password")
			return s.loginWithCredentials(ctx)
		}
		s.logger.Info("Logged successfully with cookie")
		s.logged = true
		return nil
	}

	return s.loginWithCredentials(ctx)
}

func (s *Scraper) loginWithCredentials(ctx context.Context) error {
	if s.password == "" {
		return NewError(KindPasswordRequired, "password is required")
	}

	s.resetSession()
	loginURL := RootURL + "/account/login.aspx"

	resp, err := s.get(ctx, s.client, loginURL)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}

	tokens, err := extractLoginTokens(body)
	if err != nil {
		s.logger.Error("Portal login form cannot be parsed", zap.Error(err))
		return WrapError(KindUnparseableResponse, notAcceptingRequestsMessage, err)
	}

	loginFields := url.Values{
		"ctl00$ctl00$body$ctl00":                      {"ctl00$ctl00$body$ctl00|ctl00$ctl00$body$body$CtlLogin$CtlAceptar"},
		"ctl00$ctl00$body$body$CtlLogin$IoTri":        {""},
		"ctl00$ctl00$body$body$CtlLogin$IoTrg":        {""},
		"ctl00$ctl00$body$body$CtlLogin$IoTra":        {""},
		"ctl00$ctl00$body$body$CtlLogin$IoEmail":      {s.email},
		"ctl00$ctl00$body$body$CtlLogin$IoPassword":   {s.password},
		"ctl00$ctl00$body$body$CtlLogin$cIoUid":       {""},
		"ctl00$ctl00$body$body$CtlLogin$CtlAceptar":   {"Aceptar\n"},
	}

	loginBody, err := s.loginRequest(ctx, loginURL, tokens.ViewStateC, tokens.EventValidation, tokens.CSRFToken, loginFields)
	if err != nil {
		return err
	}

	if strings.Contains(loginBody, `class="Warning"`) {
		return NewError(KindLoginFailed, "invalid credentials")
	}

	viewStateConfirm, err := lookupHeaderValue(loginBody, "__VIEWSTATEC")
	if err != nil {
		return WrapError(KindUnparseableResponse, notAcceptingRequestsMessage, err)
	}
	eventValidationConfirm, err := lookupHeaderValue(loginBody, "__EVENTVALIDATION")
	if err != nil {
		return WrapError(KindUnparseableResponse, notAcceptingRequestsMessage, err)
	}

	confirmFields := url.Values{
		"ctl00$ctl00$body$ctl00":                     {"ctl00$ctl00$body$ctl00|ctl00$ctl00$body$body$CtlConfiar$CtlSeguro"},
		"ctl00$ctl00$body$body$CtlConfiar$CtlSeguro": {"Recordar\n"},
	}

	if _, err := s.loginRequest(ctx, loginURL, viewStateConfirm, eventValidationConfirm, tokens.CSRFToken, confirmFields); err != nil {
		return err
	}

	s.logger.Info("Logged successfully with credentials")
	s.logged = true
	s.password = ""
	return nil
}

// loginRequest posts one step of the login conversation with the shared
// anti-forgery fields filled in.
func (s *Scraper) loginRequest(ctx context.Context, target, viewStateC, eventValidation, csrfToken string, extra url.Values) (string, error) {
	form := url.Values{
		"CSRFToken":          {csrfToken},
		"__EVENTTARGET":      {""},
		"__EVENTARGUMENT":    {""},
		"__VIEWSTATEC":       {viewStateC},
		"__VIEWSTATE":        {""},
		"__EVENTVALIDATION":  {eventValidation},
		"__ASYNCPOST":        {"true"},
	}
	for key, values := range extra {
		form[key] = values
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return "", WrapError(KindTransient, "building login request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", WrapError(KindTransient, "login request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", NewError(KindUnparseableResponse, notAcceptingRequestsMessage)
	}
	return readBody(resp)
}

// get issues a GET with the portal User-Agent through the given client.
func (s *Scraper) get(ctx context.Context, client *http.Client, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, WrapError(KindTransient, "building request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, WrapError(KindTransient, "request failed", err)
	}
	return resp, nil
}

func readBody(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", WrapError(KindTransient, "reading response body", err)
	}
	return string(data), nil
}

// lookupHeaderValue extracts a pipe-delimited hidden field value from an
// ASP.NET async postback body.
func lookupHeaderValue(text, name string) (string, error) {
	index := strings.Index(text, name)
	if index < 0 {
		return "", fmt.Errorf("field %s not found in response", name)
	}
	rest := text[index+len(name)+1:]
	return strings.SplitN(rest, "|", 2)[0], nil
}

// storedCookie is the serialized form of one session cookie. The blob
// persisted on the user row is an opaque JSON array of these.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"httpOnly"`
}

// Cookies serializes the current session cookies for persistence.
func (s *Scraper) Cookies() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	rootURL, _ := url.Parse(RootURL)
	var stored []storedCookie
	for _, c := range s.jar.Cookies(rootURL) {
		stored = append(stored, storedCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: "wodbuster.com",
			Path:   "/",
		})
	}
	blob, err := json.Marshal(stored)
	if err != nil {
		return nil
	}
	return blob
}

func (s *Scraper) loadCookies(blob []byte) error {
	var stored []storedCookie
	if err := json.Unmarshal(blob, &stored); err != nil {
		return fmt.Errorf("unmarshalling cookie blob: %w", err)
	}
	rootURL, _ := url.Parse(RootURL)
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	s.jar.SetCookies(rootURL, cookies)
	return nil
}

func (s *Scraper) hasSessionCookie() bool {
	rootURL, _ := url.Parse(RootURL)
	return len(s.jar.Cookies(rootURL)) > 0
}

// CookieExpiry reads the portal auth cookie expiry out of a stored blob.
// The blob is otherwise opaque; this is the only inspection the system
// performs on it.
func CookieExpiry(blob []byte) (time.Time, error) {
	var stored []storedCookie
	if err := json.Unmarshal(blob, &stored); err != nil {
		return time.Time{}, fmt.Errorf("unmarshalling cookie blob: %w", err)
	}
	for _, c := range stored {
		if c.Name == authCookieName {
			return c.Expires, nil
		}
	}
	return time.Time{}, fmt.Errorf("cookie %s not present", authCookieName)
}

// GetBoxURL resolves the box URL associated with the user. It only
// succeeds when the user has exactly one box.
func (s *Scraper) GetBoxURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.login(ctx); err != nil {
		return "", err
	}

	resp, err := s.get(ctx, s.noRedirect, RootURL+"/account/roadtobox.aspx")
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	return boxURLFromLocation(resp.Header.Get("Location"))
}

// boxURLFromLocation derives the box root URL from the "road to box"
// redirect target. An absent redirect means the account can enter more
// than one box, so no single URL can be picked.
func boxURLFromLocation(location string) (string, error) {
	if location == "" {
		return "", NewError(KindUnparseableResponse, moreThanOneBoxMessage)
	}
	if strings.Contains(location, "login") {
		return "", NewError(KindLoginFailed, "invalid credentials")
	}
	if idx := strings.Index(location, "/user"); idx >= 0 {
		return location[:idx], nil
	}
	return location, nil
}
