package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"carrental/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheets answers Sheets API calls by request path and records them.
type fakeSheets struct {
	mu       sync.Mutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	calls    []string
}

func (f *fakeSheets) handle(path string, h func(w http.ResponseWriter, r *http.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeSheets) called(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == path {
			return true
		}
	}
	return false
}

func setupMockServer(t *testing.T) (*fakeSheets, *SheetsService) {
	t.Helper()
	fake := &fakeSheets{handlers: make(map[string]func(w http.ResponseWriter, r *http.Request))}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		fake.calls = append(fake.calls, r.URL.Path)
		h, ok := fake.handlers[r.URL.Path]
		fake.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("failed to create sheets service: %v", err)
	}
	return fake, newSheetsService(srv, "bookings_tid")
}

func writeJSON(v interface{}) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func testBooking(id int64) *models.Booking {
	return &models.Booking{
		ID:        id,
		UserID:    2,
		CarID:     3,
		StartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	fake, s := setupMockServer(t)
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A1", writeJSON(sheets.ValueRange{Values: [][]interface{}{{"ID"}}}))

	if err := s.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	fake, s := setupMockServer(t)
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", writeJSON(sheets.ValueRange{
		Values: [][]interface{}{{"ID"}, {"123"}, {}, {float64(456)}},
	}))

	if err := s.WarmUpCache(context.Background()); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow(123); !ok || row != 2 {
		t.Errorf("Expected row 2 for ID 123, got %d", row)
	}
	if row, ok := s.getCachedRow(456); !ok || row != 4 {
		t.Errorf("Expected row 4 for ID 456, got %d", row)
	}
}

func TestSheetsService_AppendBooking(t *testing.T) {
	fake, s := setupMockServer(t)
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", writeJSON(sheets.AppendValuesResponse{
		Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:G10"},
	}))

	if err := s.AppendBooking(context.Background(), testBooking(789)); err != nil {
		t.Fatalf("AppendBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow(789); row != 10 {
		t.Errorf("Expected cached row 10, got %d", row)
	}
}

func TestSheetsService_UpsertBooking_Update(t *testing.T) {
	fake, s := setupMockServer(t)
	s.setCachedRow(123, 2)

	var body sheets.ValueRange
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A2:G2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	if err := s.UpsertBooking(context.Background(), testBooking(123)); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if len(body.Values) != 1 || len(body.Values[0]) != len(bookingHeaders) {
		t.Fatalf("unexpected row written: %v", body.Values)
	}
	if body.Values[0][3] != "2025-03-10" {
		t.Errorf("expected start date in column D, got %v", body.Values[0][3])
	}
}

func TestSheetsService_UpsertBooking_Append(t *testing.T) {
	fake, s := setupMockServer(t)
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", writeJSON(sheets.ValueRange{
		Values: [][]interface{}{{"ID"}, {"1"}},
	}))
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", writeJSON(sheets.AppendValuesResponse{
		Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A3:G3"},
	}))

	if err := s.UpsertBooking(context.Background(), testBooking(2)); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if !fake.called("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append") {
		t.Errorf("expected append for an unknown booking")
	}
	if row, _ := s.getCachedRow(2); row != 3 {
		t.Errorf("Expected cached row 3, got %d", row)
	}
}

func TestSheetsService_UpsertBooking_Nil(t *testing.T) {
	_, s := setupMockServer(t)
	if err := s.UpsertBooking(context.Background(), nil); err == nil {
		t.Errorf("expected error for nil booking")
	}
}

func TestSheetsService_DeleteBookingRow(t *testing.T) {
	fake, s := setupMockServer(t)
	s.setCachedRow(456, 3)
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A3:G3:clear", writeJSON(sheets.ClearValuesResponse{}))

	if err := s.DeleteBookingRow(context.Background(), 456); err != nil {
		t.Errorf("DeleteBookingRow failed: %v", err)
	}
	if _, ok := s.getCachedRow(456); ok {
		t.Error("Expected 456 to be removed from cache")
	}
}

func TestSheetsService_DeleteBookingRow_Missing(t *testing.T) {
	fake, s := setupMockServer(t)
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", writeJSON(sheets.ValueRange{
		Values: [][]interface{}{{"ID"}},
	}))

	err := s.DeleteBookingRow(context.Background(), 77)
	if !errors.Is(err, ErrRowNotFound) {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}
}

func TestSheetsService_FindBookingRow_FullScan(t *testing.T) {
	fake, s := setupMockServer(t)
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", writeJSON(sheets.ValueRange{
		Values: [][]interface{}{{"ID"}, {"999"}},
	}))

	row, err := s.FindBookingRow(context.Background(), 999)
	if err != nil {
		t.Fatalf("FindBookingRow failed: %v", err)
	}
	if row != 2 {
		t.Errorf("Expected row 2, got %d", row)
	}

	if _, err := s.FindBookingRow(context.Background(), 0); err == nil {
		t.Errorf("expected error for zero booking id")
	}
}

func TestSheetsService_ReplaceBookingsSheet(t *testing.T) {
	fake, s := setupMockServer(t)
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A1:Z:clear", writeJSON(sheets.ClearValuesResponse{}))

	var body sheets.ValueRange
	fake.handle("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	bookings := []*models.Booking{testBooking(5), testBooking(9)}
	if err := s.ReplaceBookingsSheet(context.Background(), bookings); err != nil {
		t.Fatalf("ReplaceBookingsSheet failed: %v", err)
	}
	if len(body.Values) != 3 {
		t.Errorf("expected header plus 2 rows, got %d", len(body.Values))
	}
	if row, _ := s.getCachedRow(9); row != 3 {
		t.Errorf("Expected cached row 3, got %d", row)
	}
}

func TestCacheOperations(t *testing.T) {
	s := newSheetsService(nil, "id")

	s.setCachedRow(100, 5)
	row, ok := s.getCachedRow(100)
	if !ok || row != 5 {
		t.Errorf("Expected row 5, got %d (ok=%v)", row, ok)
	}

	s.deleteCacheRow(100)
	if _, ok = s.getCachedRow(100); ok {
		t.Errorf("Expected row to be deleted from cache")
	}

	s.setCachedRow(200, 10)
	s.ClearCache()
	if _, ok = s.getCachedRow(200); ok {
		t.Errorf("Expected cache to be cleared")
	}
}

func TestBookingRowValues(t *testing.T) {
	values := bookingRowValues(testBooking(123))

	expected := []interface{}{
		int64(123),
		int64(2),
		int64(3),
		"2025-03-10",
		"2025-03-12",
		2,
		"2025-03-01 09:30:00",
	}

	if len(values) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(values))
	}
	for i, v := range values {
		if v != expected[i] {
			t.Errorf("At index %d: expected %v, got %v", i, expected[i], v)
		}
	}
}

func TestRowFromRange(t *testing.T) {
	tests := []struct {
		in   string
		row  int
		isOK bool
	}{
		{"Bookings!A10:G10", 10, true},
		{"A7", 7, true},
		{"Bookings!A:A", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		row, ok := rowFromRange(tt.in)
		if row != tt.row || ok != tt.isOK {
			t.Errorf("rowFromRange(%q) = %d, %v; want %d, %v", tt.in, row, ok, tt.row, tt.isOK)
		}
	}
}

func TestServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`{"client_email":"robot@project.iam.gserviceaccount.com"}`), 0o600); err != nil {
		t.Fatalf("write creds: %v", err)
	}

	email, err := ServiceAccountEmail(path)
	if err != nil {
		t.Fatalf("ServiceAccountEmail failed: %v", err)
	}
	if email != "robot@project.iam.gserviceaccount.com" {
		t.Errorf("unexpected email %s", email)
	}

	if _, err := ServiceAccountEmail(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestNewSheetsService_BadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`not json`), 0o600); err != nil {
		t.Fatalf("write creds: %v", err)
	}
	if _, err := NewSheetsService(context.Background(), path, "sheet"); err == nil {
		t.Errorf("expected error for malformed credentials")
	}
}
