package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_History(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/history/4012" {
			t.Errorf("path = %q, want /history/4012", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"interval":10,"end_of_interval":1700000010,"latency":2,"rank":50}]`))
	}))
	defer srv.Close()

	recs, err := New(srv.URL).History(context.Background(), "4012")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Interval != 10 || recs[0].Rank != 50 {
		t.Errorf("History() = %+v, want one record interval=10 rank=50", recs)
	}
}

func TestClient_History_EmptyBusID(t *testing.T) {
	if _, err := New("http://localhost:1").History(context.Background(), ""); err == nil {
		t.Error("History(\"\") succeeded, want error")
	}
}

func TestClient_Anomalies_MinRankParam(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"bus_id":"4012","score":40,"history":[]}]`))
	}))
	defer srv.Close()

	c := New(srv.URL)

	anomalies, err := c.Anomalies(context.Background(), 95)
	if err != nil {
		t.Fatalf("Anomalies(95) error = %v", err)
	}
	if gotQuery != "min_rank=95" {
		t.Errorf("query = %q, want min_rank=95", gotQuery)
	}
	if len(anomalies) != 1 || anomalies[0].BusID != "4012" || anomalies[0].Score != 40 {
		t.Errorf("Anomalies() = %+v, want 4012 scored 40", anomalies)
	}

	// Negative minRank defers to the server default: no query parameter.
	if _, err := c.Anomalies(context.Background(), -1); err != nil {
		t.Fatalf("Anomalies(-1) error = %v", err)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want empty", gotQuery)
	}
}

func TestClient_Stats_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Stats(context.Background()); err == nil {
		t.Error("Stats() succeeded on 500, want error")
	}
}
