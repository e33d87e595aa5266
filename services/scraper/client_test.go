package scraper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ptehtimetable_go/config"
)

func newTestClient(baseURL string, retries int) *Client {
	return NewClient(&config.Config{
		EdupageBaseURL:   baseURL,
		EdupageSessionID: "test-session",
		FetchTimeout:     5 * time.Second,
		FetchRetries:     retries,
	})
}

func TestListTimetablesRequestShape(t *testing.T) {
	var captured struct {
		method string
		path   string
		query  string
		cookie string
		body   map[string]interface{}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.cookie = r.Header.Get("Cookie")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &captured.body); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Write([]byte(`{"r":{"regular":{"timetables":[{"tt_num":"42","text":"septembris","datefrom":"2024-09-01"}]}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	timetables, payload, err := client.ListTimetables(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ListTimetables failed: %v", err)
	}

	if captured.method != http.MethodPost {
		t.Errorf("method = %s, want POST", captured.method)
	}
	if captured.path != "/timetable/server/ttviewer.js" {
		t.Errorf("path = %s, want /timetable/server/ttviewer.js", captured.path)
	}
	if captured.query != "__func=getTTViewerData" {
		t.Errorf("query = %s, want __func=getTTViewerData", captured.query)
	}
	if !strings.Contains(captured.cookie, "PHPSESSID=test-session") {
		t.Errorf("cookie = %q, want PHPSESSID=test-session", captured.cookie)
	}

	args, ok := captured.body["__args"].([]interface{})
	if !ok || len(args) != 2 {
		t.Fatalf("body __args = %v, want [null, 2024]", captured.body["__args"])
	}
	if args[0] != nil {
		t.Errorf("first arg = %v, want null", args[0])
	}
	if year, ok := args[1].(float64); !ok || year != 2024 {
		t.Errorf("second arg = %v, want 2024", args[1])
	}
	if captured.body["__gsh"] != "00000000" {
		t.Errorf("__gsh = %v, want 00000000", captured.body["__gsh"])
	}

	if len(timetables) != 1 || timetables[0].Number != "42" {
		t.Errorf("unexpected timetables: %+v", timetables)
	}
	if len(payload) == 0 {
		t.Error("raw payload not returned")
	}
}

func TestTimetableDetailsPassesNumberAndParses(t *testing.T) {
	detailPayload := buildDetailPayload(t, map[int]interface{}{
		tableSubjects: []map[string]interface{}{{"id": "31", "name": "Sports"}},
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/timetable/server/regulartt.js" {
			t.Errorf("path = %s, want /timetable/server/regulartt.js", r.URL.Path)
		}
		var body struct {
			Args []interface{} `json:"__args"`
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		if len(body.Args) != 2 || body.Args[1] != "42" {
			t.Errorf("__args = %v, want [null, \"42\"]", body.Args)
		}
		w.Write(detailPayload)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	tables, payload, err := client.TimetableDetails(context.Background(), "42")
	if err != nil {
		t.Fatalf("TimetableDetails failed: %v", err)
	}
	if _, ok := tables.Subjects["31"]; !ok {
		t.Error("subject table not parsed")
	}
	if len(payload) == 0 {
		t.Error("raw payload not returned")
	}
}

func TestPostJSONRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"r":{"regular":{"timetables":[]}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	if _, _, err := client.ListTimetables(context.Background(), 2024); err != nil {
		t.Fatalf("expected retry to recover, got: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server hit %d times, want 2", got)
	}
}

func TestPostJSONExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	_, _, err := client.ListTimetables(context.Background(), 2024)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("error %q does not report attempt count", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server hit %d times, want 2", got)
	}
}
