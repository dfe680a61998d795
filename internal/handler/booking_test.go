package handler

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/lodgein/stay-booking/internal/repository"
)

var bookingCols = []string{
	"id", "user_id", "listing_id", "check_in", "check_out", "number_of_guests",
	"total_price_cents", "status", "payment_status", "special_requests", "created_at", "updated_at",
}

var listingCols = []string{
	"id", "host_id", "title", "description", "price_cents", "city", "country", "address",
	"max_guests", "rating", "status", "created_at", "updated_at",
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func listingRow(status string) []driver.Value {
	now := time.Now().UTC()
	return []driver.Value{
		uint64(3), uint64(9), "Loft am Kanal", "bright loft", uint32(100), "Berlin", "DE", "Kanalstr. 5",
		uint32(4), 4.5, status, now, now,
	}
}

func bookingRow(id, userID uint64, status string, total uint32) []driver.Value {
	now := time.Now().UTC()
	return []driver.Value{
		id, userID, uint64(3), day(2030, 10, 1), day(2030, 10, 4), uint32(2),
		total, status, "PENDING", nil, now, now,
	}
}

func newBookingTest(t *testing.T) (*BookingHandler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	h := NewBookingHandler(repository.NewBookingRepo(db), repository.NewListingRepo(db))
	return h, mock, db
}

func doRequest(h echo.HandlerFunc, method, path, body string, userID uint64, role string, params map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	c.Set("role", role)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	_ = h(c)
	return rec
}

func TestCreateBookingDerivesTotalPrice(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM listings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(listingCols).AddRow(listingRow("ACTIVE")...))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(uint64(3), "2030-10-01", "2030-10-04").
		WillReturnRows(sqlmock.NewRows(bookingCols))
	// 3 nights at 100 cents = 300.
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(uint64(7), uint64(3), "2030-10-01", "2030-10-04", uint32(2), uint32(300), nil).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "PENDING", 300)...))
	mock.ExpectCommit()

	body := `{"check_in":"2030-10-01","check_out":"2030-10-04","number_of_guests":2}`
	rec := doRequest(h.CreateBooking, http.MethodPost, "/v1/listings/3/bookings", body,
		7, "USER", map[string]string{"id": "3"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp["total_price_cents"].(float64); got != 300 {
		t.Errorf("total_price_cents = %v, want 300", got)
	}
	if got := resp["status"].(string); got != "PENDING" {
		t.Errorf("status = %q, want PENDING", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateBookingConflictingDates(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM listings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(listingCols).AddRow(listingRow("ACTIVE")...))
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(5, 8, "CONFIRMED", 300)...))
	mock.ExpectRollback()

	body := `{"check_in":"2030-10-02","check_out":"2030-10-06","number_of_guests":2}`
	rec := doRequest(h.CreateBooking, http.MethodPost, "/v1/listings/3/bookings", body,
		7, "USER", map[string]string{"id": "3"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rng, ok := resp["conflicting_range"].(map[string]any)
	if !ok {
		t.Fatalf("conflicting_range missing from body: %s", rec.Body.String())
	}
	if rng["check_in"] != "2030-10-01" || rng["check_out"] != "2030-10-04" {
		t.Errorf("conflicting_range = %v, want 2030-10-01..2030-10-04", rng)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateBookingGuestsOverCapacity(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM listings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(listingCols).AddRow(listingRow("ACTIVE")...))
	mock.ExpectRollback()

	body := `{"check_in":"2030-10-01","check_out":"2030-10-04","number_of_guests":9}`
	rec := doRequest(h.CreateBooking, http.MethodPost, "/v1/listings/3/bookings", body,
		7, "USER", map[string]string{"id": "3"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBookingPastDates(t *testing.T) {
	h, _, db := newBookingTest(t)
	defer db.Close()

	body := `{"check_in":"2020-01-01","check_out":"2020-01-05","number_of_guests":2}`
	rec := doRequest(h.CreateBooking, http.MethodPost, "/v1/listings/3/bookings", body,
		7, "USER", map[string]string{"id": "3"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateBookingForbiddenForNonOwner(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "PENDING", 300)...))

	body := `{"number_of_guests":3}`
	rec := doRequest(h.UpdateBooking, http.MethodPatch, "/v1/bookings/11", body,
		8, "USER", map[string]string{"id": "11"})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateBookingSpecialRequestsSkipsAvailability(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "PENDING", 300)...))
	// Only the free-text update runs: no transaction, no overlap query,
	// no price change.
	mock.ExpectExec(`UPDATE bookings SET special_requests = \?`).
		WithArgs("late arrival", uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"special_requests":"late arrival"}`
	rec := doRequest(h.UpdateBooking, http.MethodPatch, "/v1/bookings/11", body,
		7, "USER", map[string]string{"id": "11"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp["total_price_cents"].(float64); got != 300 {
		t.Errorf("total_price_cents = %v, want unchanged 300", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateBookingGuestsWhileConfirmed(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	// A confirmed booking stays patchable; only terminal statuses are
	// immutable.  A guests-only patch recomputes the price but skips
	// the availability check since the dates did not move.
	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "CONFIRMED", 300)...))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM listings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(listingCols).AddRow(listingRow("ACTIVE")...))
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs("2030-10-01", "2030-10-04", uint32(3), uint32(300), nil, uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body := `{"number_of_guests":3}`
	rec := doRequest(h.UpdateBooking, http.MethodPatch, "/v1/bookings/11", body,
		7, "USER", map[string]string{"id": "11"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp["number_of_guests"].(float64); got != 3 {
		t.Errorf("number_of_guests = %v, want 3", got)
	}
	if got := resp["total_price_cents"].(float64); got != 300 {
		t.Errorf("total_price_cents = %v, want 300", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateBookingRejectedWhenCancelled(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "CANCELLED", 300)...))

	body := `{"number_of_guests":3}`
	rec := doRequest(h.UpdateBooking, http.MethodPatch, "/v1/bookings/11", body,
		7, "USER", map[string]string{"id": "11"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCancelBooking(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "CONFIRMED", 300)...))
	mock.ExpectExec(`UPDATE bookings SET status = \?`).
		WithArgs("CANCELLED", uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(h.CancelBooking, http.MethodDelete, "/v1/bookings/11", "",
		7, "USER", map[string]string{"id": "11"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp["status"].(string); got != "CANCELLED" {
		t.Errorf("status = %q, want CANCELLED", got)
	}
}

func TestCancelBookingTerminalStatus(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "COMPLETED", 300)...))

	rec := doRequest(h.CancelBooking, http.MethodDelete, "/v1/bookings/11", "",
		7, "USER", map[string]string{"id": "11"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCancelBookingForbiddenForStranger(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "PENDING", 300)...))

	rec := doRequest(h.CancelBooking, http.MethodDelete, "/v1/bookings/11", "",
		99, "USER", map[string]string{"id": "11"})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestCancelBookingAllowedForAdmin(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "PENDING", 300)...))
	mock.ExpectExec(`UPDATE bookings SET status = \?`).
		WithArgs("CANCELLED", uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(h.CancelBooking, http.MethodDelete, "/v1/bookings/11", "",
		99, "ADMIN", map[string]string{"id": "11"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestConfirmBookingByHost(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "PENDING", 300)...))
	mock.ExpectQuery(`FROM listings WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(listingCols).AddRow(listingRow("ACTIVE")...))
	mock.ExpectExec(`UPDATE bookings SET status = \?`).
		WithArgs("CONFIRMED", uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Host 9 owns listing 3.
	rec := doRequest(h.ConfirmBooking, http.MethodPost, "/v1/bookings/11/confirm", "",
		9, "HOST", map[string]string{"id": "11"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestConfirmBookingForbiddenForOtherHost(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "PENDING", 300)...))
	mock.ExpectQuery(`FROM listings WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(listingCols).AddRow(listingRow("ACTIVE")...))

	rec := doRequest(h.ConfirmBooking, http.MethodPost, "/v1/bookings/11/confirm", "",
		42, "HOST", map[string]string{"id": "11"})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestGetBookingVisibleToListingHost(t *testing.T) {
	h, mock, db := newBookingTest(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingRow(11, 7, "PENDING", 300)...))
	mock.ExpectQuery(`FROM listings WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(listingCols).AddRow(listingRow("ACTIVE")...))

	rec := doRequest(h.GetBooking, http.MethodGet, "/v1/bookings/11", "",
		9, "HOST", map[string]string{"id": "11"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
