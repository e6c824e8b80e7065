package fhir

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientEverything(t *testing.T) {
	var gotPath, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Write([]byte(sampleBundle))
	}))
	defer srv.Close()

	b, err := NewClient(srv.URL+"/", srv.Client()).Everything(context.Background(), " 592011 ")
	if err != nil {
		t.Fatalf("Everything: %v", err)
	}
	if gotPath != "/Patient/592011/$everything" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAccept != "application/fhir+json" {
		t.Errorf("accept = %q", gotAccept)
	}
	if len(b.Entry) != 15 {
		t.Errorf("entries = %d, want 15", len(b.Entry))
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"resourceType":"OperationOutcome"}`, ErrFetchFailed},
		{"bad json", http.StatusOK, `{`, ErrFetchFailed},
		{"no entries", http.StatusOK, `{"resourceType":"Bundle"}`, ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client()).Everything(context.Background(), "1")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClientRequiresID(t *testing.T) {
	if _, err := NewClient("", nil).Everything(context.Background(), "  "); err == nil {
		t.Error("expected error for empty id")
	}
}
