package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

var testNow = time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		VerifyDelayThreshold: 30 * time.Minute,
		VerifyDistanceKM:     25,
	}
}

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	return s.result, s.err
}

type stubAdvisor struct {
	active bool
	err    error
}

func (s *stubAdvisor) Check(_ context.Context, _, _ float64, _ time.Time) (bool, error) {
	return s.active, s.err
}

func newVerifier(geocoder domain.Geocoder, advisor Advisor) *Verifier {
	clock := clockwork.NewFakeClockAt(testNow)
	return New(testConfig(), clock, geocoder, advisor, discardLogger())
}

func TestVerify_DelayedUpload(t *testing.T) {
	tests := []struct {
		name       string
		capturedAt time.Time
		expected   bool
	}{
		{"fresh capture", testNow.Add(-5 * time.Minute), false},
		{"at threshold", testNow.Add(-30 * time.Minute), false},
		{"beyond threshold", testNow.Add(-31 * time.Minute), true},
		{"no capture time", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVerifier(nil, nil)
			meta := v.Verify(context.Background(), domain.Report{CapturedAt: tt.capturedAt})
			assert.Equal(t, tt.expected, meta.DelayedUpload)
		})
	}
}

func TestVerify_LocationMatch(t *testing.T) {
	marina := domain.Geo{Lat: 13.05, Lon: 80.28}
	// Roughly 7 km north of the device coordinate.
	nearby := domain.GeocodingResult{Lat: 13.113, Lon: 80.28, FormattedAddress: "Chennai, IN"}
	// Kochi, several hundred km away.
	distant := domain.GeocodingResult{Lat: 9.93, Lon: 76.26, FormattedAddress: "Kochi, IN"}

	tests := []struct {
		name     string
		geocoder domain.Geocoder
		report   domain.Report
		expected *bool
	}{
		{
			name:     "within distance threshold",
			geocoder: &stubGeocoder{result: nearby},
			report:   domain.Report{Location: &marina, PlaceHint: "Marina Beach"},
			expected: boolPtr(true),
		},
		{
			name:     "beyond distance threshold",
			geocoder: &stubGeocoder{result: distant},
			report:   domain.Report{Location: &marina, PlaceHint: "Marina Beach"},
			expected: boolPtr(false),
		},
		{
			name:     "no device coordinate",
			geocoder: &stubGeocoder{result: nearby},
			report:   domain.Report{PlaceHint: "Marina Beach"},
			expected: nil,
		},
		{
			name:     "no place hint",
			geocoder: &stubGeocoder{result: nearby},
			report:   domain.Report{Location: &marina},
			expected: nil,
		},
		{
			name:     "geocoder error",
			geocoder: &stubGeocoder{err: errors.New("upstream down")},
			report:   domain.Report{Location: &marina, PlaceHint: "Marina Beach"},
			expected: nil,
		},
		{
			name:     "geocoder found nothing",
			geocoder: &stubGeocoder{},
			report:   domain.Report{Location: &marina, PlaceHint: "nowhere"},
			expected: nil,
		},
		{
			name:     "no geocoder configured",
			geocoder: nil,
			report:   domain.Report{Location: &marina, PlaceHint: "Marina Beach"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVerifier(tt.geocoder, nil)
			meta := v.Verify(context.Background(), tt.report)
			if tt.expected == nil {
				assert.Nil(t, meta.LocationMatch)
			} else {
				require.NotNil(t, meta.LocationMatch)
				assert.Equal(t, *tt.expected, *meta.LocationMatch)
			}
		})
	}
}

func TestVerify_AuthorityStatus(t *testing.T) {
	marina := domain.Geo{Lat: 13.05, Lon: 80.28}

	tests := []struct {
		name     string
		advisor  Advisor
		report   domain.Report
		expected domain.AuthorityStatus
	}{
		{
			name:     "advisory active",
			advisor:  &stubAdvisor{active: true},
			report:   domain.Report{Location: &marina},
			expected: domain.AuthorityVerified,
		},
		{
			name:     "no advisory",
			advisor:  &stubAdvisor{active: false},
			report:   domain.Report{Location: &marina},
			expected: domain.AuthorityNotVerified,
		},
		{
			name:     "advisor failure",
			advisor:  &stubAdvisor{err: errors.New("timeout")},
			report:   domain.Report{Location: &marina},
			expected: domain.AuthorityError,
		},
		{
			name:     "unconfigured",
			advisor:  nil,
			report:   domain.Report{Location: &marina},
			expected: domain.AuthorityDisabled,
		},
		{
			name:     "no coordinate to check",
			advisor:  &stubAdvisor{active: true},
			report:   domain.Report{},
			expected: domain.AuthorityDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVerifier(nil, tt.advisor)
			meta := v.Verify(context.Background(), tt.report)
			assert.Equal(t, tt.expected, meta.AuthorityStatus)
		})
	}
}

func TestHaversineKM(t *testing.T) {
	// Chennai to Kochi, roughly 560 km.
	d := haversineKM(13.0827, 80.2707, 9.9312, 76.2673)
	assert.InDelta(t, 560, d, 20)

	assert.InDelta(t, 0, haversineKM(13.05, 80.28, 13.05, 80.28), 1e-9)
}

func TestAuthorityClient_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"active":true}`))
	}))
	defer srv.Close()

	client := NewAuthorityClient(srv.URL, time.Second, discardLogger())
	active, err := client.Check(context.Background(), 13.05, 80.28, testNow)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestAuthorityClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewAuthorityClient(srv.URL, time.Second, discardLogger())
	_, err := client.Check(context.Background(), 13.05, 80.28, testNow)
	require.Error(t, err)
}

func boolPtr(b bool) *bool { return &b }
