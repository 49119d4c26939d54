package export

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/inquire/inquire"
)

// backend is an in-process v1 backend. Submit replies are keyed by query
// identifier; poll replies are queued per execution id.
type backend struct {
	server *httptest.Server

	mu       sync.Mutex
	catalog  string
	submit   map[string]string
	polls    map[string][]string
	logins   int
	logouts  int
	submits  []string
	inflight int
	peak     int
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		catalog: "[]",
		submit:  map[string]string{},
		polls:   map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.logins++
		b.mu.Unlock()
		if string(body) != `{"password":"secret","username":"alice"}` {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = fmt.Fprint(w, "tok-1")
	})
	mux.HandleFunc("POST /rest/v1/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		b.logouts++
		b.mu.Unlock()
	})
	mux.HandleFunc("GET /rest/v1/tql/{lds}/shared-queries", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("lds") != "web" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		b.mu.Lock()
		body := b.catalog
		b.mu.Unlock()
		_, _ = fmt.Fprint(w, body)
	})
	mux.HandleFunc("POST /rest/v1/tql/{lds}/shared-queries/submit", func(w http.ResponseWriter, r *http.Request) {
		identifier := r.URL.Query().Get("identifier")
		b.mu.Lock()
		b.submits = append(b.submits, identifier)
		b.inflight++
		b.peak = max(b.peak, b.inflight)
		body, ok := b.submit[identifier]
		b.mu.Unlock()

		// Hold the request briefly so parallel submits overlap.
		time.Sleep(20 * time.Millisecond)
		b.mu.Lock()
		b.inflight--
		b.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = fmt.Fprint(w, body)
	})
	mux.HandleFunc("GET /rest/tql/poll", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		b.mu.Lock()
		queue := b.polls[id]
		if len(queue) == 0 {
			b.mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		b.polls[id] = queue[1:]
		b.mu.Unlock()
		_, _ = fmt.Fprint(w, queue[0])
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) setCatalog(names ...string) {
	body := "["
	for i, n := range names {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id":"00000000-0000-0000-0000-00000000000%d","publishedName":%q,"ldsId":"00000000-0000-0000-0000-0000000000aa"}`, i+1, n)
	}
	body += "]"
	b.mu.Lock()
	b.catalog = body
	b.mu.Unlock()
}

func (b *backend) onSubmit(identifier, body string) {
	b.mu.Lock()
	b.submit[identifier] = body
	b.mu.Unlock()
}

func (b *backend) queuePoll(id string, bodies ...string) {
	b.mu.Lock()
	b.polls[id] = append(b.polls[id], bodies...)
	b.mu.Unlock()
}

func (b *backend) stats() (logins, logouts int, submits []string, peak int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logins, b.logouts, append([]string(nil), b.submits...), b.peak
}

func (b *backend) client(t *testing.T, opts ...inquire.SessionOption) inquire.Client {
	t.Helper()
	s, err := inquire.NewSession(b.server.URL, opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	c, err := inquire.New(1, s)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func startMsg(id, estimate, rows string) string {
	return fmt.Sprintf(`{"type":"StartExecutionMessage","id":%q,"lds":"web","query":"q","time":1,`+
		`"executionConfiguration":{"timeEstimate":%q},"result":%s}`, id, estimate, rows)
}

func partialMsg(id, rows string) string {
	return fmt.Sprintf(`{"type":"PartialUpdateMessage","id":%q,"lds":"web","query":"q","time":2,"result":%s}`, id, rows)
}

func finalMsg(id, rows string) string {
	return fmt.Sprintf(`{"type":"FinalResultMessage","id":%q,"lds":"web","query":"q","time":3,"result":%s}`, id, rows)
}

func failureMsg(id, text string) string {
	return fmt.Sprintf(`{"type":"FailureMessage","id":%q,"lds":"web","query":"q","error":true,"errorMessage":%q}`, id, text)
}
