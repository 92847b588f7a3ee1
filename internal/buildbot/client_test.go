package buildbot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, builderJSON, buildsJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/json/builders/runtests", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(builderJSON))
	})
	mux.HandleFunc("/json/builders/runtests/builds", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("select") != "-1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(buildsJSON))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchStatus(t *testing.T) {
	tests := []struct {
		name        string
		builderJSON string
		buildsJSON  string
		want        Status
	}{
		{
			name:        "building",
			builderJSON: `{"state": "building", "currentBuilds": [12]}`,
			want:        StatusBuilding,
		},
		{
			name:        "offline",
			builderJSON: `{"state": "offline"}`,
			want:        StatusOffline,
		},
		{
			name:        "idle with passing build",
			builderJSON: `{"state": "idle"}`,
			buildsJSON:  `{"-1": {"number": 12, "results": 0}}`,
			want:        StatusSuccess,
		},
		{
			name:        "idle with no results field",
			builderJSON: `{"state": "idle"}`,
			buildsJSON:  `{"-1": {"number": 12}}`,
			want:        StatusSuccess,
		},
		{
			name:        "idle with failing build",
			builderJSON: `{"state": "idle"}`,
			buildsJSON:  `{"-1": {"number": 12, "results": 2}}`,
			want:        StatusFailure,
		},
		{
			name:        "idle with exception build",
			builderJSON: `{"state": "idle"}`,
			buildsJSON:  `{"-1": {"number": 12, "results": 5}}`,
			want:        StatusException,
		},
		{
			name:        "idle with no builds",
			builderJSON: `{"state": "idle"}`,
			buildsJSON:  `{}`,
			want:        StatusUnknown,
		},
		{
			name:        "unrecognized builder state",
			builderJSON: `{"state": "snoozing"}`,
			want:        StatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.builderJSON, tt.buildsJSON)
			client := NewClient(server.URL, "runtests", time.Second)

			got, err := client.FetchStatus(context.Background())
			if err != nil {
				t.Fatalf("FetchStatus() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FetchStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchStatusServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "runtests", time.Second)
	if _, err := client.FetchStatus(context.Background()); err == nil {
		t.Fatal("FetchStatus() with 500 response returned nil error")
	}
}

func TestFetchStatusUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "runtests", time.Second)
	if _, err := client.FetchStatus(context.Background()); err == nil {
		t.Fatal("FetchStatus() against closed server returned nil error")
	}
}

func TestFetchStatusBuilderNameEscaped(t *testing.T) {
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write([]byte(`{"state": "building"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "CloudBrowse Builder", time.Second)
	if _, err := client.FetchStatus(context.Background()); err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if requested != "/json/builders/CloudBrowse%20Builder" && requested != "/json/builders/CloudBrowse Builder" {
		t.Errorf("requested path = %q, want escaped builder name", requested)
	}
}
