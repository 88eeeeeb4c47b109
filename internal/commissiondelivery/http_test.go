package commissiondelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/pkg/errorspkg"
	"github.com/go-petr/wallet-ledger/pkg/randompkg"
	"github.com/go-petr/wallet-ledger/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestPaymentCompleted(t *testing.T) {
	orderID := randompkg.OrderID()
	owner := randompkg.Owner()

	type requestBody struct {
		OrderID           string   `json:"order_id,omitempty"`
		PayerOwnerID      string   `json:"payer_owner_id,omitempty"`
		PaidAmount        string   `json:"paid_amount,omitempty"`
		PayerDesignations []string `json:"payer_designations,omitempty"`
	}

	body := requestBody{
		OrderID:           orderID,
		PayerOwnerID:      owner,
		PaidAmount:        "1000",
		PayerDesignations: []string{"agent"},
	}

	wantEvent := domain.PaymentCompleted{
		OrderID:           orderID,
		PayerOwnerID:      domain.OwnerID(owner),
		PaidAmount:        decimal.RequireFromString("1000"),
		PayerDesignations: []string{"agent"},
	}

	testCases := []struct {
		name           string
		body           requestBody
		buildStubs     func(service *MockService)
		wantStatusCode int
		wantOutcome    domain.CommissionOutcome
		wantError      string
	}{
		{
			name: "Applied",
			body: body,
			buildStubs: func(service *MockService) {
				service.EXPECT().Handle(gomock.Any(), gomock.Eq(wantEvent)).Times(1).
					Return(domain.CommissionResult{Outcome: domain.CommissionApplied, Commission: decimal.NewFromInt(100)}, nil)
			},
			wantStatusCode: http.StatusOK,
			wantOutcome:    domain.CommissionApplied,
		},
		{
			name: "AlreadyApplied",
			body: body,
			buildStubs: func(service *MockService) {
				service.EXPECT().Handle(gomock.Any(), gomock.Eq(wantEvent)).Times(1).
					Return(domain.CommissionResult{Outcome: domain.CommissionAlreadyApplied}, nil)
			},
			wantStatusCode: http.StatusOK,
			wantOutcome:    domain.CommissionAlreadyApplied,
		},
		{
			name: "MissingOrderID",
			body: requestBody{PayerOwnerID: owner, PaidAmount: "10"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Handle(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "OrderID field is required",
		},
		{
			name: "MalformedAmount",
			body: requestBody{OrderID: orderID, PayerOwnerID: owner, PaidAmount: "ten"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Handle(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "PaidAmount is invalid",
		},
		{
			name: "InternalError",
			body: body,
			buildStubs: func(service *MockService) {
				service.EXPECT().Handle(gomock.Any(), gomock.Any()).Times(1).
					Return(domain.CommissionResult{}, domain.ErrAccountLookup)
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

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			h := NewHandler(service)
			engine := gin.New()
			engine.POST("/payments/completed", h.PaymentCompleted)

			payload, err := json.Marshal(tc.body)
			if err != nil {
				t.Fatalf("Encoding request body error: %v", err)
			}

			req, err := http.NewRequest(http.MethodPost, "/payments/completed", bytes.NewReader(payload))
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			recorder := httptest.NewRecorder()
			engine.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			var got domain.CommissionResult
			res := web.Response{Data: &got}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if got.Outcome != tc.wantOutcome {
				t.Errorf("res.Data.Outcome = %q, want %q", got.Outcome, tc.wantOutcome)
			}
		})
	}
}
