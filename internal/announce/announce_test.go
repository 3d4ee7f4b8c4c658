package announce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month) *time.Time {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestParse(t *testing.T) {
	f, err := os.Open("testdata/more-fibre.html")
	require.NoError(t, err)
	defer f.Close()

	got, err := Parse(f)
	require.NoError(t, err)

	expected := []Announcement{
		{State: "ACT", Suburb: "Aranda", Date: date(2023, time.June)},
		{State: "ACT", Suburb: "Bruce", Date: date(2023, time.September)},
		{State: "ACT", Suburb: "Cook"},
		{State: "QLD", Suburb: "Anstead", Date: date(2023, time.December)},
		{State: "QLD", Suburb: "Bli-Bli", Date: date(2024, time.March)},
	}
	assert.Equal(t, expected, got)
}

func TestCleanSuburb(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"BRISBANE CITY", "Brisbane City"},
		{"o’connor#", "O'connor"},
		{"  bli-bli*. ", "Bli-Bli"},
		{"***", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanSuburb(tt.in))
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	page, err := os.ReadFile("testdata/more-fibre.html")
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	got, err := NewFetcher(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.URL, time.Second).Fetch(context.Background())
	assert.ErrorContains(t, err, "unexpected status 404")
}
