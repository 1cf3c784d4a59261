package quiz

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/selfquiz/backend/internal/middleware"
	"github.com/selfquiz/backend/internal/models"
)

func newTestServer(t *testing.T, questions int) (*httptest.Server, *http.Client) {
	t.Helper()

	service, _ := newTestService(t, questions)
	handler := NewHandler(service)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.NewManager("test-secret").Session)
	handler.RegisterRoutes(api)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return ts, &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body string, out interface{}) int {
	t.Helper()

	var req *http.Request
	var err error
	if body != "" {
		req, err = http.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHandlerQuizFlow(t *testing.T) {
	ts, client := newTestServer(t, 2)

	var view models.RunView
	status := doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/start",
		`{"module": "Module_1", "length": "full"}`, &view)
	if status != http.StatusCreated {
		t.Fatalf("start status = %d, want 201", status)
	}
	if view.Question == nil || view.Question.Total != 2 {
		t.Fatalf("start view = %+v, want a 2-question run", view)
	}

	var result models.GradingResult
	status = doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/answer",
		`{"selected": [0]}`, &result)
	if status != http.StatusOK || !result.Correct {
		t.Fatalf("answer status=%d correct=%v, want 200 correct", status, result.Correct)
	}

	// Re-grading the same question is a conflict.
	status = doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/answer", `{"selected": [1]}`, nil)
	if status != http.StatusConflict {
		t.Errorf("re-answer status = %d, want 409", status)
	}

	status = doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/next", "", &view)
	if status != http.StatusOK || view.Question == nil || view.Question.Number != 2 {
		t.Fatalf("next status=%d view=%+v, want question 2", status, view)
	}

	doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/answer", `{"selected": [1]}`, nil)
	status = doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/next", "", &view)
	if status != http.StatusOK || view.State != models.RunCompleted {
		t.Fatalf("final next status=%d state=%v, want 200 completed", status, view.State)
	}
	if view.Summary == nil || view.Summary.FirstTryCorrect != 1 {
		t.Errorf("Summary = %+v, want 1 first-try correct", view.Summary)
	}
}

func TestHandlerErrorStatuses(t *testing.T) {
	ts, client := newTestServer(t, 1)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"current without run", "GET", "/api/v1/quiz", "", http.StatusNotFound},
		{"answer without run", "POST", "/api/v1/quiz/answer", `{"selected": [0]}`, http.StatusNotFound},
		{"resume without snapshot", "POST", "/api/v1/quiz/resume", "", http.StatusNotFound},
		{"start unknown module", "POST", "/api/v1/quiz/start", `{"module": "Nope"}`, http.StatusBadGateway},
		{"start without module", "POST", "/api/v1/quiz/start", `{}`, http.StatusBadRequest},
		{"start malformed body", "POST", "/api/v1/quiz/start", `{`, http.StatusBadRequest},
		{"start negative length", "POST", "/api/v1/quiz/start", `{"module": "Module_1", "length": -1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := doJSON(t, client, tt.method, ts.URL+tt.path, tt.body, nil); status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
		})
	}
}

func TestHandlerSelectionOutOfRange(t *testing.T) {
	ts, client := newTestServer(t, 1)

	doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/start", `{"module": "Module_1"}`, nil)
	status := doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/answer", `{"selected": [9]}`, nil)
	if status != http.StatusBadRequest {
		t.Errorf("out-of-range answer status = %d, want 400", status)
	}
}

func TestHandlerResetAndModules(t *testing.T) {
	ts, client := newTestServer(t, 1)

	doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/start", `{"module": "Module_1"}`, nil)
	if status := doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/reset", "", nil); status != http.StatusNoContent {
		t.Errorf("reset status = %d, want 204", status)
	}
	if status := doJSON(t, client, "GET", ts.URL+"/api/v1/quiz", "", nil); status != http.StatusNotFound {
		t.Errorf("current after reset status = %d, want 404", status)
	}

	var modules models.ModulesResponse
	if status := doJSON(t, client, "GET", ts.URL+"/api/v1/modules", "", &modules); status != http.StatusOK {
		t.Fatalf("modules status = %d, want 200", status)
	}
	if len(modules.Modules) != 1 || modules.Modules[0] != "Module_1" {
		t.Errorf("modules = %v, want [Module_1]", modules.Modules)
	}
}

func TestHandlerSessionsIsolatedByCookie(t *testing.T) {
	ts, client := newTestServer(t, 1)

	doJSON(t, client, "POST", ts.URL+"/api/v1/quiz/start", `{"module": "Module_1"}`, nil)

	// A fresh jar is a fresh browser: it gets its own session and no run.
	jar, _ := cookiejar.New(nil)
	other := &http.Client{Jar: jar}
	if status := doJSON(t, other, "GET", ts.URL+"/api/v1/quiz", "", nil); status != http.StatusNotFound {
		t.Errorf("other browser current status = %d, want 404", status)
	}

	if status := doJSON(t, client, "GET", ts.URL+"/api/v1/quiz", "", nil); status != http.StatusOK {
		t.Errorf("original browser current status = %d, want 200", status)
	}
}
