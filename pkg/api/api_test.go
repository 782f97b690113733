package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/h2non/gock"
	log "github.com/sirupsen/logrus"

	"teamsbridge/pkg/bot"
	"teamsbridge/pkg/inspector"
)

const channelServiceURL = "http://channel.example"

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

func TestAPI_inspectAllMethods(t *testing.T) {
	api := New("teamsbridge", nil, nil)

	methods := []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions,
	}

	for _, method := range methods {
		req := httptest.NewRequest(method, inspector.Route, nil)
		rr := httptest.NewRecorder()
		api.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("%s: want status code %v, got %v", method, http.StatusOK, rr.Code)
		}

		var ack inspector.Ack
		if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
			t.Fatalf("%s: failed to unmarshal response body: %v", method, err)
		}
		if ack.Status != "received" {
			t.Errorf("%s: want status %q, got %q", method, "received", ack.Status)
		}
		wantMsg := fmt.Sprintf("%s request logged successfully", method)
		if ack.Message != wantMsg {
			t.Errorf("%s: want message %q, got %q", method, wantMsg, ack.Message)
		}
		if _, err := time.Parse(time.RFC3339, ack.Timestamp); err != nil {
			t.Errorf("%s: want RFC3339 timestamp, got %q: %v", method, ack.Timestamp, err)
		}
	}
}

func TestAPI_inspectMalformedBodies(t *testing.T) {
	api := New("teamsbridge", nil, nil)

	bodies := map[string][]byte{
		"invalid JSON": []byte("not json"),
		"invalid UTF8": {0xff, 0xfe, 0xfd},
	}

	for name, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, inspector.Route, bytes.NewReader(body))
		rr := httptest.NewRecorder()
		api.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("%s: want status code %v, got %v", name, http.StatusOK, rr.Code)
		}

		var ack inspector.Ack
		if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
			t.Fatalf("%s: failed to unmarshal response body: %v", name, err)
		}
		if ack.Status != "received" {
			t.Errorf("%s: want status %q, got %q", name, "received", ack.Status)
		}
	}
}

func TestAPI_inspectJSONBodyResponseUnaffected(t *testing.T) {
	api := New("teamsbridge", nil, nil)

	req := httptest.NewRequest(http.MethodPost, inspector.Route, strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got %v", http.StatusOK, rr.Code)
	}

	var ack inspector.Ack
	if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if ack.Message != "POST request logged successfully" {
		t.Errorf("want message %q, got %q", "POST request logged successfully", ack.Message)
	}
}

func TestAPI_health(t *testing.T) {
	api := New("teamsbridge", nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got %v", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("want Content-Type %q, got %q", "application/json", ct)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("want status %q, got %q", "healthy", resp.Status)
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("want RFC3339 timestamp, got %q: %v", resp.Timestamp, err)
	}
}

func TestAPI_dispatchEchoActivity(t *testing.T) {
	defer gock.Off()

	connector := bot.NewConnector(channelServiceURL, bot.StaticProvider{Value: "test-token"})
	api := New("teamsbridge", bot.Default(connector), nil)

	// Typing indicator replies to the inbound activity first, then the echo
	// goes out as a plain send.
	gock.New(channelServiceURL).
		Post("/v3/conversations/conv1/activities/act1$").
		Reply(http.StatusOK)
	gock.New(channelServiceURL).
		Post("/v3/conversations/conv1/activities$").
		Reply(http.StatusOK)

	// Text chosen to dodge the greeting pattern, which is unanchored.
	activity := `{"type":"message","id":"act1","text":"good day to you","conversation":{"id":"conv1"}}`
	req := httptest.NewRequest(http.MethodPost, inspector.Route, strings.NewReader(activity))
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got %v", http.StatusOK, rr.Code)
	}
	if !gock.IsDone() {
		t.Error("want typing reply and echo send delivered to channel service")
	}
}

func TestAPI_dispatchFailureAbsorbed(t *testing.T) {
	defer gock.Off()

	connector := bot.NewConnector(channelServiceURL, bot.StaticProvider{Value: "test-token"})
	api := New("teamsbridge", bot.Default(connector), nil)

	gock.New(channelServiceURL).
		Post("/v3/conversations/conv1/activities$").
		Reply(http.StatusBadGateway)

	activity := `{"type":"message","id":"act1","text":"hello","conversation":{"id":"conv1"}}`
	req := httptest.NewRequest(http.MethodPost, inspector.Route, strings.NewReader(activity))
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)

	// Channel failure must never fail the inspection endpoint.
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got %v", http.StatusOK, rr.Code)
	}

	var ack inspector.Ack
	if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if ack.Status != "received" {
		t.Errorf("want status %q, got %q", "received", ack.Status)
	}
}

func TestAPI_nonActivityJSONNotDispatched(t *testing.T) {
	defer gock.Off()

	connector := bot.NewConnector(channelServiceURL, bot.StaticProvider{Value: "test-token"})
	api := New("teamsbridge", bot.Default(connector), nil)

	// Interception on, no mocks: any outbound call would show up unmatched.
	gock.Intercept()
	req := httptest.NewRequest(http.MethodPost, inspector.Route, strings.NewReader(`{"a":1}`))
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got %v", http.StatusOK, rr.Code)
	}
	if len(gock.GetUnmatchedRequests()) != 0 {
		t.Errorf("want no outbound requests for non-activity JSON, got %d", len(gock.GetUnmatchedRequests()))
	}
}
