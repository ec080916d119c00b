package ditraheat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// fakeService is an in-memory stand-in for the vendor cloud.
type fakeService struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	signIns      int
	signInCode   int
	session      string
	thermostat   map[string]any
	account      map[string]any
	writes       []map[string]any
	accountPuts  []map[string]any
	queries      []url.Values
	rejectNext   bool // next authenticated request gets a 401
	failStatus   int  // authenticated requests answer with this status when set
	signInBodies []signInRequest
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{
		t:          t,
		thermostat: map[string]any{"Temperature": 2150, "SetPointTemp": 2200},
		account:    map[string]any{"TempUnitIsCelsius": true},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeService) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(f.server.URL)}, opts...)
	c, err := NewClient("user@example.com", "hunter2", "SN123", opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == PathSignIn {
		f.handleSignIn(w, r)
		return
	}

	q := r.URL.Query()
	f.queries = append(f.queries, q)

	if q.Get(ParamSessionID) == "" || q.Get(ParamSessionID) != f.session {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.rejectNext {
		f.rejectNext = false
		f.session = ""
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.failStatus != 0 {
		http.Error(w, "upstream exploded", f.failStatus)
		return
	}

	switch r.URL.Path {
	case PathThermostat:
		if q.Get(ParamSerialNumber) != "SN123" {
			http.Error(w, "unknown thermostat", http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, f.thermostat)
		case http.MethodPost:
			f.writes = append(f.writes, decodeBody(f.t, r))
			writeJSON(w, map[string]any{"Success": true})
		}
	case PathAccount:
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, f.account)
		case http.MethodPut:
			f.accountPuts = append(f.accountPuts, decodeBody(f.t, r))
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeService) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.signIns++
	f.signInBodies = append(f.signInBodies, req)

	if f.signInCode != SignInOK {
		writeJSON(w, map[string]any{"ErrorCode": f.signInCode})
		return
	}
	f.session = fmt.Sprintf("session-%d", f.signIns)
	writeJSON(w, map[string]any{"ErrorCode": 0, "SessionId": f.session})
}

func (f *fakeService) signInCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signIns
}

func (f *fakeService) lastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeService) lastWrite() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return nil
	}
	return f.writes[len(f.writes)-1]
}

func (f *fakeService) set(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return m
}
