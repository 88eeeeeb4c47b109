package ledgerdelivery

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/internal/middleware"
	"github.com/go-petr/wallet-ledger/internal/test"
	"github.com/go-petr/wallet-ledger/pkg/errorspkg"
	"github.com/go-petr/wallet-ledger/pkg/randompkg"
	"github.com/go-petr/wallet-ledger/pkg/tokenpkg"
	"github.com/go-petr/wallet-ledger/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if err := RegisterValidators(); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

type testServer struct {
	engine     *gin.Engine
	tokenMaker tokenpkg.Maker
}

func newTestServer(t *testing.T, ledger LedgerService, history HistoryService) testServer {
	t.Helper()

	tokenSymmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(tokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", tokenSymmetricKey, err)
	}

	h := NewHandler(ledger, history)

	engine := gin.New()
	auth := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))
	auth.GET("/wallet", h.GetWallet)
	auth.GET("/wallet/transactions", h.ListTransactions)
	auth.GET("/wallet/reconciliation", h.Reconcile)
	auth.POST("/wallet/credit", h.Credit)
	auth.POST("/wallet/debit", h.Debit)
	auth.GET("/wallet/owners/:owner_id", h.GetOwnerWallet)
	auth.GET("/wallet/owners/:owner_id/transactions", h.ListOwnerTransactions)

	return testServer{engine: engine, tokenMaker: tokenMaker}
}

// send performs the request as owner, anonymously when owner is empty.
func (s testServer) send(t *testing.T, method, url string, body any, owner domain.OwnerID) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte

	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("Encoding request body error: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Creating request error: %v", err)
	}

	if owner != "" {
		err := middleware.AddAuthorization(req, s.tokenMaker, middleware.AuthTypeBearer, string(owner), time.Minute)
		if err != nil {
			t.Fatalf("middleware.AddAuthorization(%+v) returned error: %v", req, err)
		}
	}

	recorder := httptest.NewRecorder()
	s.engine.ServeHTTP(recorder, req)

	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder, data any) web.Response {
	t.Helper()

	res := web.Response{Data: data}
	if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
		t.Errorf("Decoding response body error: %v", err)
	}

	return res
}

func TestGetWallet(t *testing.T) {
	owner := domain.OwnerID(randompkg.Owner())
	balance := randompkg.MoneyBetween(1, 10_000)

	testCases := []struct {
		name           string
		owner          domain.OwnerID
		buildStubs     func(history *MockHistoryService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:  "OK",
			owner: owner,
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().GetBalance(gomock.Any(), gomock.Eq(owner)).Times(1).Return(balance, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "NoAuthorization",
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().GetBalance(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name:  "LookupFailure",
			owner: owner,
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().GetBalance(gomock.Any(), gomock.Eq(owner)).Times(1).
					Return(decimal.Zero, domain.ErrAccountLookup)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			history := NewMockHistoryService(ctrl)
			tc.buildStubs(history)

			server := newTestServer(t, NewMockLedgerService(ctrl), history)
			recorder := server.send(t, http.MethodGet, "/wallet", nil, tc.owner)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			var got wallet
			res := decode(t, recorder, &got)

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if got.OwnerID != owner || !got.Balance.Equal(balance) {
				t.Errorf("res.Data = %+v, want owner %q balance %v", got, owner, balance)
			}
		})
	}
}

func TestListTransactions(t *testing.T) {
	owner := domain.OwnerID(randompkg.Owner())
	entries := []domain.Entry{
		test.RandomEntry(1, domain.Debit),
		test.RandomEntry(1, domain.Credit),
	}

	testCases := []struct {
		name           string
		query          string
		buildStubs     func(history *MockHistoryService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:  "OK",
			query: "?page_id=2&page_size=10",
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().ListTransactions(gomock.Any(), gomock.Eq(owner), gomock.Eq(int32(2)), gomock.Eq(int32(10))).
					Times(1).
					Return(entries, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:  "LastPossiblePage",
			query: "?page_id=2147483647&page_size=100",
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().ListTransactions(gomock.Any(), gomock.Eq(owner), gomock.Eq(int32(math.MaxInt32)), gomock.Eq(int32(100))).
					Times(1).
					Return([]domain.Entry{}, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:  "MissingPageID",
			query: "?page_size=10",
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "PageID field is required",
		},
		{
			name:  "PageSizeTooLarge",
			query: "?page_id=1&page_size=101",
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "PageSize must be at most 100",
		},
		{
			name:  "InternalError",
			query: "?page_id=1&page_size=5",
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1).
					Return(nil, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			history := NewMockHistoryService(ctrl)
			tc.buildStubs(history)

			server := newTestServer(t, NewMockLedgerService(ctrl), history)
			recorder := server.send(t, http.MethodGet, "/wallet/transactions"+tc.query, nil, owner)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			var got dataEntries
			res := decode(t, recorder, &got)

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if len(got.Entries) == 0 {
				return
			}

			want := make([]domain.EntryRecord, len(entries))
			for i, e := range entries {
				want[i] = e.Record()
			}

			gotRecords := make([]domain.EntryRecord, len(got.Entries))
			for i, e := range got.Entries {
				gotRecords[i] = e.Record()
			}

			if diff := cmp.Diff(want, gotRecords); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetOwnerWallet(t *testing.T) {
	clerk := domain.OwnerID(randompkg.Owner())
	customer := domain.OwnerID(randompkg.Owner())
	balance := randompkg.MoneyBetween(1, 10_000)

	testCases := []struct {
		name           string
		path           string
		buildStubs     func(history *MockHistoryService)
		wantStatusCode int
		wantError      string
	}{
		{
			name: "OK",
			path: "/wallet/owners/" + string(customer),
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().GetBalance(gomock.Any(), gomock.Eq(customer)).Times(1).Return(balance, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "OwnerTooLong",
			path: "/wallet/owners/" + randompkg.String(129),
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().GetBalance(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "OwnerID must be at most 128",
		},
		{
			name: "LookupFailure",
			path: "/wallet/owners/" + string(customer),
			buildStubs: func(history *MockHistoryService) {
				history.EXPECT().GetBalance(gomock.Any(), gomock.Eq(customer)).Times(1).
					Return(decimal.Zero, domain.ErrAccountLookup)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			history := NewMockHistoryService(ctrl)
			tc.buildStubs(history)

			server := newTestServer(t, NewMockLedgerService(ctrl), history)
			recorder := server.send(t, http.MethodGet, tc.path, nil, clerk)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			var got wallet
			res := decode(t, recorder, &got)

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if got.OwnerID != customer || !got.Balance.Equal(balance) {
				t.Errorf("res.Data = %+v, want owner %q balance %v", got, customer, balance)
			}
		})
	}
}

func TestListOwnerTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clerk := domain.OwnerID(randompkg.Owner())
	customer := domain.OwnerID(randompkg.Owner())
	entries := []domain.Entry{test.RandomEntry(1, domain.Credit)}

	history := NewMockHistoryService(ctrl)
	history.EXPECT().ListTransactions(gomock.Any(), gomock.Eq(customer), gomock.Eq(int32(1)), gomock.Eq(int32(20))).
		Times(1).
		Return(entries, nil)

	server := newTestServer(t, NewMockLedgerService(ctrl), history)
	recorder := server.send(t, http.MethodGet, "/wallet/owners/"+string(customer)+"/transactions?page_id=1&page_size=20", nil, clerk)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Status code: got %v, want %v", recorder.Code, http.StatusOK)
	}

	var got dataEntries
	decode(t, recorder, &got)

	if len(got.Entries) != 1 {
		t.Fatalf("len(res.Data.Entries) = %d, want 1", len(got.Entries))
	}

	if diff := cmp.Diff(entries[0].Record(), got.Entries[0].Record()); diff != "" {
		t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
	}

	recorder = server.send(t, http.MethodGet, "/wallet/owners/"+string(customer)+"/transactions?page_id=0&page_size=20", nil, clerk)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Status code: got %v, want %v", recorder.Code, http.StatusBadRequest)
	}
}

func TestReconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	owner := domain.OwnerID(randompkg.Owner())
	want := domain.Reconciliation{
		OwnerID:    owner,
		Balance:    decimal.NewFromInt(60),
		EntriesSum: decimal.NewFromInt(60),
		Consistent: true,
	}

	history := NewMockHistoryService(ctrl)
	history.EXPECT().Reconcile(gomock.Any(), gomock.Eq(owner)).Times(1).Return(want, nil)

	server := newTestServer(t, NewMockLedgerService(ctrl), history)
	recorder := server.send(t, http.MethodGet, "/wallet/reconciliation", nil, owner)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Status code: got %v, want %v", recorder.Code, http.StatusOK)
	}

	var got domain.Reconciliation
	decode(t, recorder, &got)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
	}
}

func TestMutations(t *testing.T) {
	caller := domain.OwnerID(randompkg.Owner())
	target := domain.OwnerID(randompkg.Owner())
	entry := test.RandomEntry(1, domain.Credit)

	type requestBody struct {
		OwnerID     string `json:"owner_id,omitempty"`
		Amount      string `json:"amount,omitempty"`
		Description string `json:"description,omitempty"`
		ReferenceID string `json:"reference_id,omitempty"`
		Category    string `json:"category,omitempty"`
	}

	body := requestBody{
		OwnerID:     string(target),
		Amount:      "100.50",
		Description: "top-up",
	}

	wantArg := domain.MutationParams{
		OwnerID:     target,
		Amount:      decimal.RequireFromString("100.50"),
		Description: "top-up",
	}

	testCases := []struct {
		name           string
		path           string
		body           requestBody
		buildStubs     func(ledger *MockLedgerService)
		wantStatusCode int
		wantError      string
	}{
		{
			name: "CreditOK",
			path: "/wallet/credit",
			body: body,
			buildStubs: func(ledger *MockLedgerService) {
				ledger.EXPECT().Credit(gomock.Any(), gomock.Eq(wantArg)).Times(1).Return(entry, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "DebitOK",
			path: "/wallet/debit",
			body: body,
			buildStubs: func(ledger *MockLedgerService) {
				ledger.EXPECT().Debit(gomock.Any(), gomock.Eq(wantArg)).Times(1).Return(entry, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "MissingOwner",
			path: "/wallet/credit",
			body: requestBody{Amount: "10"},
			buildStubs: func(ledger *MockLedgerService) {
				ledger.EXPECT().Credit(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "OwnerID field is required",
		},
		{
			name: "NegativeAmount",
			path: "/wallet/credit",
			body: requestBody{OwnerID: string(target), Amount: "-10"},
			buildStubs: func(ledger *MockLedgerService) {
				ledger.EXPECT().Credit(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive amount",
		},
		{
			name: "TooPrecise",
			path: "/wallet/credit",
			body: requestBody{OwnerID: string(target), Amount: "0.001"},
			buildStubs: func(ledger *MockLedgerService) {
				ledger.EXPECT().Credit(gomock.Any(), gomock.Any()).Times(1).Return(domain.Entry{}, domain.ErrInvalidAmount)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrInvalidAmount.Error(),
		},
		{
			name: "InsufficientBalance",
			path: "/wallet/debit",
			body: body,
			buildStubs: func(ledger *MockLedgerService) {
				ledger.EXPECT().Debit(gomock.Any(), gomock.Any()).Times(1).Return(domain.Entry{}, domain.ErrInsufficientBalance)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      domain.ErrInsufficientBalance.Error(),
		},
		{
			name: "ConcurrencyConflict",
			path: "/wallet/debit",
			body: body,
			buildStubs: func(ledger *MockLedgerService) {
				ledger.EXPECT().Debit(gomock.Any(), gomock.Any()).Times(1).Return(domain.Entry{}, domain.ErrConcurrencyConflict)
			},
			wantStatusCode: http.StatusConflict,
			wantError:      domain.ErrConcurrencyConflict.Error(),
		},
		{
			name: "LookupFailure",
			path: "/wallet/credit",
			body: body,
			buildStubs: func(ledger *MockLedgerService) {
				ledger.EXPECT().Credit(gomock.Any(), gomock.Any()).Times(1).Return(domain.Entry{}, domain.ErrAccountLookup)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ledger := NewMockLedgerService(ctrl)
			tc.buildStubs(ledger)

			server := newTestServer(t, ledger, NewMockHistoryService(ctrl))
			recorder := server.send(t, http.MethodPost, tc.path, tc.body, caller)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			var got dataEntry
			res := decode(t, recorder, &got)

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if diff := cmp.Diff(entry.Record(), got.Entry.Record()); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
