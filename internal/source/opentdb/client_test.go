package opentdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"trivia-quiz/internal/domain"
)

func TestFetchBuildsContractQueryAndDecodesBatch(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"amount":   r.URL.Query().Get("amount"),
			"category": r.URL.Query().Get("category"),
			"type":     r.URL.Query().Get("type"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"response_code": 0,
			"results": [
				{"question": "Capital of France?", "correct_answer": "Paris", "incorrect_answers": ["Lyon", "Nice", "Marseille"]}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 9, server.Client())
	records, err := client.Fetch(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotQuery["amount"] != "5" || gotQuery["category"] != "9" || gotQuery["type"] != "multiple" {
		t.Fatalf("unexpected query params: %+v", gotQuery)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.CorrectAnswer != "Paris" || len(rec.IncorrectAnswers) != 3 {
		t.Fatalf("record not decoded: %+v", rec)
	}
}

func TestFetchOmitsCategoryWhenUnset(t *testing.T) {
	var hadCategory bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hadCategory = r.URL.Query().Has("category")
		w.Write([]byte(`{"response_code": 0, "results": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, server.Client())
	if _, err := client.Fetch(context.Background(), 3); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if hadCategory {
		t.Fatalf("category param must be omitted when no topic filter is set")
	}
}

func TestFetchFailuresAreSourceUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200 status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"unparseable body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}},
		{"api error code", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response_code": 1, "results": []}`))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			client := NewClient(server.URL, 0, server.Client())
			_, err := client.Fetch(context.Background(), 5)
			if !errors.Is(err, domain.ErrSourceUnavailable) {
				t.Fatalf("expected ErrSourceUnavailable, got %v", err)
			}
		})
	}
}

func TestFetchNetworkErrorIsSourceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, 0, nil)
	_, err := client.Fetch(context.Background(), 5)
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
