package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/api/"})
}

func TestBarsSendsRangeQueryAndDecodesDates(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"bars":[
			{"time":1672531200,"open":1,"high":2,"low":0.5,"close":1.5,"volume":100},
			{"time":"2023-01-02","open":1.5,"high":2,"low":1,"close":1.2,"volume":80}
		]}`)
	})

	bars, err := c.Bars(context.Background(), "zh_stocks", "X", "2023-01-01", "2023-12-31")
	if err != nil {
		t.Fatalf("Bars() error = %v", err)
	}
	if got, want := gotPath, "/api/zh_stocks/bars"; got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
	for _, part := range []string{"symbol=X", "start_date=2023-01-01", "end_date=2023-12-31"} {
		if !strings.Contains(gotQuery, part) {
			t.Fatalf("query %q missing %q", gotQuery, part)
		}
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if got, want := int64(bars[1].Time), int64(1672617600); got != want {
		t.Fatalf("bars[1].Time = %d, want %d", got, want)
	}
}

func TestErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "backend error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"missing parameters"}`)
			},
			want: apperr.CodeBackend,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `<html>oops</html>`)
			},
			want: apperr.CodeDecode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Symbols(context.Background(), "zh_stocks")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperr.Code(err); got != tt.want {
				t.Fatalf("code = %q, want %q (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestNetworkErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Options{BaseURL: base})
	_, err := c.Projects(context.Background())
	if got, want := apperr.Code(err), apperr.CodeNetwork; got != want {
		t.Fatalf("code = %q, want %q (err=%v)", got, want, err)
	}
}

func TestBackendErrorMessageIncludesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"project demo missing"}`)
	})
	_, err := c.Project(context.Background(), "demo")
	if err == nil || !strings.Contains(err.Error(), "project demo missing") {
		t.Fatalf("error = %v, want backend message", err)
	}
}

func TestRunProjectPostsBody(t *testing.T) {
	var got RunProjectRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/run_project" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"message":"done"}`)
	})

	if _, err := c.RunProject(context.Background(), "demo", "2023-01-01", "2023-06-30"); err != nil {
		t.Fatalf("RunProject() error = %v", err)
	}
	if got.ProjectName != "demo" || got.StartDate != "2023-01-01" || got.EndDate != "2023-06-30" {
		t.Fatalf("body = %+v", got)
	}
}

func TestRunProjectFailureIsBackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":false,"error":"engine busy"}`)
	})
	_, err := c.RunProject(context.Background(), "demo", "2023-01-01", "2023-06-30")
	if got, want := apperr.Code(err), apperr.CodeBackend; got != want {
		t.Fatalf("code = %q, want %q", got, want)
	}
}

func TestStrategyDataDecodesParallelArrays(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"strategy_data":{"time":[1,2,3],"balance":[10,20],"drawdown":[1,2,3],"daily_pnl":[5,5,5],"trades":[]}}`)
	})
	sd, err := c.ProjectData(context.Background(), "demo")
	if err != nil {
		t.Fatalf("ProjectData() error = %v", err)
	}
	if len(sd.Time) != 3 || len(sd.Balance) != 2 || len(sd.DailyPnL) != 3 {
		t.Fatalf("strategy data = %+v", sd)
	}
}
