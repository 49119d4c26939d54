package inquire

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// fakeBackend is an in-process backend serving canned submit and poll
// responses in order.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	submits     int
	polls       int
	logins      int
	logouts     int
	submitQuery url.Values
	submitForm  url.Values
	rawQuery    string
	rawForm     string
	pollIDs     []string
	authHeaders []string

	submitStatus int
	submitBody   string
	pollQueue    []reply
	catalog      map[string]string
	token        string
}

type reply struct {
	status int
	body   string
}

func newFakeBackend(t *testing.T, prefix string) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		t:            t,
		submitStatus: http.StatusOK,
		catalog:      map[string]string{},
		token:        "tok-123",
	}

	pollPath := "/rest/tql/poll"
	if prefix == "/v2" {
		pollPath = "/rest/v2/tql/poll"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest"+prefix+"/auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		b.logins++
		b.mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"password":"secret","username":"alice"}` {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = fmt.Fprint(w, b.token)
	})
	mux.HandleFunc("POST /rest"+prefix+"/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		b.logouts++
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /rest"+prefix+"/tql/{lds}/shared-queries", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		body, ok := b.catalog[r.PathValue("lds")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, body)
	})
	mux.HandleFunc("POST /rest"+prefix+"/tql/{lds}/shared-queries/submit", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		raw, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(raw))
		b.mu.Lock()
		b.submits++
		b.submitQuery = r.URL.Query()
		b.rawQuery = r.URL.RawQuery
		b.submitForm = form
		b.rawForm = string(raw)
		status, body := b.submitStatus, b.submitBody
		b.mu.Unlock()
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	})
	mux.HandleFunc("GET "+pollPath, func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		b.polls++
		b.pollIDs = append(b.pollIDs, r.URL.Query().Get("id"))
		if len(b.pollQueue) == 0 {
			b.mu.Unlock()
			t.Errorf("unexpected poll call %d", b.polls)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		next := b.pollQueue[0]
		b.pollQueue = b.pollQueue[1:]
		b.mu.Unlock()
		w.WriteHeader(next.status)
		_, _ = fmt.Fprint(w, next.body)
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) record(r *http.Request) {
	b.mu.Lock()
	b.authHeaders = append(b.authHeaders, r.Header.Get("Authorization"))
	b.mu.Unlock()
}

func (b *fakeBackend) onSubmit(status int, body string) {
	b.mu.Lock()
	b.submitStatus, b.submitBody = status, body
	b.mu.Unlock()
}

func (b *fakeBackend) queuePoll(status int, body string) {
	b.mu.Lock()
	b.pollQueue = append(b.pollQueue, reply{status, body})
	b.mu.Unlock()
}

func (b *fakeBackend) counts() (submits, polls int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submits, b.polls
}

func (b *fakeBackend) session(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()
	s, err := NewSession(b.server.URL, opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func (b *fakeBackend) client(t *testing.T, version int, opts ...Option) Client {
	t.Helper()
	c, err := New(version, b.session(t), opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func startMsg(tag, id, estimate string) string {
	return fmt.Sprintf(`{"type":%q,"id":%q,"lds":"web","query":"q","error":false,"time":12,`+
		`"executionConfiguration":{"commandExecutionOnly":false,"executeCommandIteratively":true,"timeEstimate":%q,"limitDuringExecution":true},`+
		`"result":[]}`, tag, id, estimate)
}

func partialMsg(tag, id, rows string) string {
	return fmt.Sprintf(`{"type":%q,"id":%q,"lds":"web","query":"q","time":40,`+
		`"progress":{"seenResults":3,"pagesProcessed":1,"estimatedPages":4},`+
		`"aggregationMethod":{"method":"APPEND","orderKeys":[{"key":"date","direction":"ASCENDING"}],"keys":["date"]},`+
		`"result":%s}`, tag, id, rows)
}

func finalMsg(tag, id, rows string) string {
	return fmt.Sprintf(`{"type":%q,"id":%q,"lds":"web","query":"q","time":90,"result":%s}`, tag, id, rows)
}

func failureMsg(tag, id, text string) string {
	return fmt.Sprintf(`{"type":%q,"id":%q,"lds":"web","query":"q","error":true,"errorMessage":%q,"stacktrace":"at line 1"}`, tag, id, text)
}
