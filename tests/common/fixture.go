package common

import (
	"fmt"
	"html"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// DefaultTopicID is the topic the fixture serves at /topics/{id}.
const DefaultTopicID = "1420fda9-dad4-4ea2-876e-9e04891ef3ca"

const sessionCookie = "cortex_session"

// FixtureOption changes what the fixture renders.
type FixtureOption func(*CortexFixture)

// WithoutCSILink omits the CSI Backtesting link from /topics.
func WithoutCSILink() FixtureOption {
	return func(f *CortexFixture) { f.csiLink = false }
}

// WithoutLoginFields renders a login page with only a submit button.
func WithoutLoginFields() FixtureOption {
	return func(f *CortexFixture) { f.loginFields = false }
}

// WithoutSearchInput renders /search with no input.
func WithoutSearchInput() FixtureOption {
	return func(f *CortexFixture) { f.searchInput = false }
}

// CortexFixture is a minimal stand-in for the Cortex web app: a cookie login,
// the topic pages and a search page.
type CortexFixture struct {
	Server *httptest.Server

	csiLink     bool
	loginFields bool
	searchInput bool

	mu       sync.Mutex
	logins   []string
	searches []string
}

// NewCortexFixture starts the fixture on a loopback port.
func NewCortexFixture(opts ...FixtureOption) *CortexFixture {
	f := &CortexFixture{csiLink: true, loginFields: true, searchInput: true}
	for _, o := range opts {
		o(f)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", f.handleLoginPage)
	mux.HandleFunc("POST /login", f.handleLogin)
	mux.HandleFunc("GET /{$}", f.authed(f.handleDashboard))
	mux.HandleFunc("GET /topics", f.authed(f.handleTopics))
	mux.HandleFunc("GET /topics/{id}", f.authed(f.handleTopic))
	mux.HandleFunc("GET /search", f.authed(f.handleSearch))
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	f.Server = httptest.NewServer(mux)
	return f
}

// URL is the fixture base URL on the host.
func (f *CortexFixture) URL() string {
	return f.Server.URL
}

// Port is the listening port.
func (f *CortexFixture) Port() int {
	return f.Server.Listener.Addr().(*net.TCPAddr).Port
}

func (f *CortexFixture) Close() {
	f.Server.Close()
}

// Logins returns the emails submitted to the login form.
func (f *CortexFixture) Logins() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logins...)
}

// Searches returns the submitted search queries.
func (f *CortexFixture) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *CortexFixture) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(sessionCookie); err != nil || c.Value == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (f *CortexFixture) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	var fields string
	if f.loginFields {
		fields = `<input type="email" name="email" placeholder="Email">
<input type="password" name="password" placeholder="Password">`
	}
	writePage(w, "Login", fmt.Sprintf(`<form method="post" action="/login">
%s
<button type="submit">Sign in</button>
</form>`, fields))
}

func (f *CortexFixture) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	if email == "" || r.PostForm.Get("password") == "" {
		http.Redirect(w, r, "/login?error=1", http.StatusSeeOther)
		return
	}

	f.mu.Lock()
	f.logins = append(f.logins, email)
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "ok", Path: "/", HttpOnly: true})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (f *CortexFixture) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writePage(w, "Dashboard", `<h1>Dashboard</h1><p>Recent activity</p>`)
}

func (f *CortexFixture) handleTopics(w http.ResponseWriter, r *http.Request) {
	links := fmt.Sprintf(`<li><a href="/topics/%s">SPY VWAP Mean Reversion</a></li>`, DefaultTopicID)
	if f.csiLink {
		links += `<li><a href="/topics/csi-backtesting">CSI Backtesting Framework</a></li>`
	}
	writePage(w, "Topics", "<h1>Topics</h1><ul>"+links+"</ul>")
}

func (f *CortexFixture) handleTopic(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "csi-backtesting" {
		writePage(w, "CSI Backtesting", `<h1>CSI Backtesting</h1><p>Walk-forward results.</p>`)
		return
	}
	if id != DefaultTopicID {
		http.NotFound(w, r)
		return
	}
	spacer := `<div style="height:1200px"></div>`
	writePage(w, "SPY VWAP Mean Reversion", `<h1>SPY VWAP Mean Reversion</h1>
<section><h2>First Principles</h2></section>`+spacer+`
<section><h2>Progress Scorecard</h2><table><tr><td>Sharpe</td><td>1.4</td></tr></table></section>`+spacer+`
<section><h2>AI Research Pipeline</h2><button>Run Full Cycle</button></section>`+spacer)
}

func (f *CortexFixture) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q != "" {
		f.mu.Lock()
		f.searches = append(f.searches, q)
		f.mu.Unlock()
	}

	var body strings.Builder
	body.WriteString("<h1>Search</h1>")
	if f.searchInput {
		body.WriteString(`<form method="get" action="/search"><input type="search" name="q" placeholder="Search topics"></form>`)
	}
	if q != "" {
		fmt.Fprintf(&body, `<p class="results">Results for %s</p>`, html.EscapeString(q))
	}
	writePage(w, "Search", body.String())
}

func writePage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html>
<html><head><meta charset="utf-8"><title>%s</title>
<style>body{font-family:sans-serif;margin:0;padding:24px;background:#f8fafc}</style>
</head><body>%s</body></html>`, html.EscapeString(title), body)
}
