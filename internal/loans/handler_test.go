// internal/loans/handler_test.go
package loans

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService lets each test script the coordinator's answers.
type stubService struct {
	reserve       func(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*Reservation, error)
	markCollected func(ctx context.Context, loanID uuid.UUID) (*Loan, error)
	ret           func(ctx context.Context, loanID uuid.UUID) error
	subscribe     func(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*WaitlistEntry, bool, error)
	listWaitlist  func(ctx context.Context, userID string) ([]WaitlistItem, error)
	listLoans     func(ctx context.Context, userID string) ([]LoanItem, error)
}

func (s *stubService) Reserve(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*Reservation, error) {
	return s.reserve(ctx, userID, deviceModelID, contact)
}

func (s *stubService) MarkCollected(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	return s.markCollected(ctx, loanID)
}

func (s *stubService) Return(ctx context.Context, loanID uuid.UUID) error {
	return s.ret(ctx, loanID)
}

func (s *stubService) Subscribe(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*WaitlistEntry, bool, error) {
	return s.subscribe(ctx, userID, deviceModelID, contact)
}

func (s *stubService) ListWaitlist(ctx context.Context, userID string) ([]WaitlistItem, error) {
	return s.listWaitlist(ctx, userID)
}

func (s *stubService) ListLoans(ctx context.Context, userID string) ([]LoanItem, error) {
	return s.listLoans(ctx, userID)
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestHandleReserveSuccess(t *testing.T) {
	loanID := uuid.New()
	due := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	h := NewHandler(&stubService{
		reserve: func(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*Reservation, error) {
			assert.Equal(t, "U1", userID)
			assert.Equal(t, "u1@x.com", contact)
			return &Reservation{LoanID: loanID, ExpectedReturnDate: due}, nil
		},
	})

	body := `{"userId":"U1","deviceModelId":"` + uuid.New().String() + `","contact":"u1@x.com"}`
	rec := postJSON(t, h.HandleReserve, body)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Reservation successful", resp["message"])
	assert.Equal(t, loanID.String(), resp["loanId"])
	assert.Equal(t, "2026-08-30T12:00:00Z", resp["expectedReturnDate"])
}

func TestHandleReserveStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"out of stock", ErrOutOfStock, http.StatusConflict, "Device out of stock"},
		{"unknown device", ErrDeviceNotFound, http.StatusNotFound, "Device not found"},
		{"storage fault", assert.AnError, http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&stubService{
				reserve: func(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*Reservation, error) {
					return nil, tc.err
				},
			})

			body := `{"userId":"U1","deviceModelId":"` + uuid.New().String() + `"}`
			rec := postJSON(t, h.HandleReserve, body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantError, resp["error"])
		})
	}
}

func TestHandleReserveRejectsMissingFields(t *testing.T) {
	h := NewHandler(&stubService{})

	rec := postJSON(t, h.HandleReserve, `{"deviceModelId":"`+uuid.New().String()+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.HandleReserve, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCollectStatusMapping(t *testing.T) {
	h := NewHandler(&stubService{
		markCollected: func(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
			return nil, ErrInvalidStateTransition
		},
	})

	rec := postJSON(t, h.HandleCollect, `{"loanId":"`+uuid.New().String()+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Loan not found or not in RESERVED state", resp["error"])
}

func TestHandleReturnStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"already returned", ErrAlreadyReturned, http.StatusBadRequest},
		{"unknown loan", ErrLoanNotFound, http.StatusNotFound},
		{"storage fault", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&stubService{
				ret: func(ctx context.Context, loanID uuid.UUID) error { return tc.err },
			})

			rec := postJSON(t, h.HandleReturn, `{"loanId":"`+uuid.New().String()+`"}`)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestHandleSubscribeNewAndRepeat(t *testing.T) {
	entry := &WaitlistEntry{ID: uuid.New()}

	for _, already := range []bool{false, true} {
		h := NewHandler(&stubService{
			subscribe: func(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*WaitlistEntry, bool, error) {
				return entry, already, nil
			},
		})

		body := `{"userId":"U2","deviceModelId":"` + uuid.New().String() + `","contact":"u2@x.com"}`
		rec := postJSON(t, h.HandleSubscribe, body)

		wantStatus := http.StatusCreated
		if already {
			wantStatus = http.StatusOK
		}
		require.Equal(t, wantStatus, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, entry.ID.String(), resp["waitlistId"])
	}
}

func TestHandleSubscribeRateLimited(t *testing.T) {
	h := NewHandler(&stubService{
		subscribe: func(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*WaitlistEntry, bool, error) {
			return nil, false, ErrRateLimited
		},
	})

	body := `{"userId":"U3","deviceModelId":"` + uuid.New().String() + `","contact":"u3@x.com"}`
	rec := postJSON(t, h.HandleSubscribe, body)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Too many requests", resp["error"])
}

func TestHandleListWaitlistRequiresUserID(t *testing.T) {
	h := NewHandler(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/waitlist", nil)
	rec := httptest.NewRecorder()
	h.HandleListWaitlist(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListWaitlist(t *testing.T) {
	items := []WaitlistItem{{ID: uuid.New(), DeviceName: "MacBook Pro", QuantityAvailable: 2}}
	h := NewHandler(&stubService{
		listWaitlist: func(ctx context.Context, userID string) ([]WaitlistItem, error) {
			assert.Equal(t, "U1", userID)
			return items, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/waitlist?userId=U1", nil)
	rec := httptest.NewRecorder()
	h.HandleListWaitlist(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []WaitlistItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "MacBook Pro", got[0].DeviceName)
}
