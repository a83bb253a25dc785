package payment

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"talentpool-backend/internal/auth"
	"talentpool-backend/internal/database"
	"talentpool-backend/internal/events"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/middleware"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/queue"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/referral"
	"talentpool-backend/internal/testutil"
)

const gatewaySecret = "gateway-secret"

var (
	testDB       *database.DBinstanceStruct
	testQuota    *quota.Service
	testReferral *referral.Service
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	auth.SetSecretKey("payment-test-secret")

	var err error
	var midTeardown func(context.Context, ...testcontainers.TerminateOption) error
	midTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		os.Exit(1)
	}
	testQuota = quota.NewService(testDB.DB, events.NewMemoryBroker(), logging.Discard())
	testReferral = referral.NewService(testDB.DB, nil, logging.Discard())

	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if midTeardown != nil {
		_ = midTeardown(ctx)
	}
	os.Exit(code)
}

type fakeGateway struct {
	mu     sync.Mutex
	orders int
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency string, receipt string) (integrations.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	return integrations.Order{
		ID:       fmt.Sprintf("order_%d_%d", time.Now().UnixNano(), g.orders),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID string, paymentID string, signature string) error {
	if integrations.Sign(gatewaySecret, orderID+"|"+paymentID) != signature {
		return integrations.ErrInvalidSignature
	}
	return nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type fakeMailer struct{}

func (fakeMailer) SendEmail(_ context.Context, _ integrations.Email) error { return nil }

type recordingPublisher struct {
	mu   sync.Mutex
	sent []queue.Notification
}

func (p *recordingPublisher) Enqueue(_ context.Context, n queue.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func paymentEngine(gateway integrations.PaymentGateway, notifier *queue.Notifier) *gin.Engine {
	r := gin.New()
	pc := NewPaymentController(testDB, gateway, "INR", testQuota, testReferral, notifier, logging.Discard())
	group := r.Group("/payment", middleware.RequireAuth(testDB))
	group.POST("/order", middleware.CheckRole(model.RoleHR), pc.CreateOrder)
	group.POST("/verify", middleware.CheckRole(model.RoleHR), pc.VerifyPayment)
	group.GET("/history", pc.GetMyPayments)
	return r
}

func newHR(t *testing.T, username string) (model.HRUser, string) {
	t.Helper()
	hr, err := database.NewTestHR(testDB, username, username+" Co", model.StatusVerified, 10)
	require.NoError(t, err)
	token, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
	require.NoError(t, err)
	return hr, token
}

func TestCreateOrder(t *testing.T) {
	hr, token := newHR(t, "hr_payment_order")

	tests := []struct {
		name     string
		gateway  integrations.PaymentGateway
		plan     string
		wantCode int
	}{
		{"Starter", &fakeGateway{}, model.PlanStarter, http.StatusOK},
		{"Free plan", &fakeGateway{}, model.PlanFree, http.StatusBadRequest},
		{"Unknown plan", &fakeGateway{}, "enterprise", http.StatusBadRequest},
		{"Payment disabled", nil, model.PlanPro, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := testutil.MakeJSONRequest(gin.H{"plan": tt.plan}, token, paymentEngine(tt.gateway, nil), "/payment/order", http.MethodPost)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusOK {
				assert.EqualValues(t, 49900, resp["amount"])
				assert.Equal(t, "INR", resp["currency"])
				assert.Equal(t, "rzp_test_key", resp["key_id"])
			}
		})
	}

	var payments []model.Payment
	require.NoError(t, testDB.Where("user_id = ?", hr.UserID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentCreated, payments[0].Status)
}

func TestCreateOrder_CandidateForbidden(t *testing.T) {
	token, err := auth.GetAccessToken(t, testDB, database.TestUserCandidate1.Username, database.TestSeedPassword)
	require.NoError(t, err)
	rec, _ := testutil.MakeJSONRequest(gin.H{"plan": model.PlanStarter}, token, paymentEngine(&fakeGateway{}, nil), "/payment/order", http.MethodPost)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func createOrder(t *testing.T, engine *gin.Engine, token string, plan string) string {
	t.Helper()
	rec, resp := testutil.MakeJSONRequest(gin.H{"plan": plan}, token, engine, "/payment/order", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return resp["order_id"].(string)
}

func TestVerifyPayment(t *testing.T) {
	hr, token := newHR(t, "hr_payment_verify")
	require.NoError(t, testDB.Model(&model.User{}).Where("id = ?", hr.UserID).Update("email", "buyer@example.com").Error)

	// buyer came from referral link
	referrer, err := database.NewTestCandidate(testDB, "payment_referrer", model.EditableCandidateInfo{FullName: "Referrer"})
	require.NoError(t, err)
	code, err := testReferral.EnsureCode(context.Background(), &referrer.User)
	require.NoError(t, err)
	require.NoError(t, testReferral.MarkSignup(testDB.DB, code, "", hr.UserID))

	pub := &recordingPublisher{}
	engine := paymentEngine(&fakeGateway{}, queue.NewNotifier(pub, &queue.Dispatcher{Mailer: fakeMailer{}}))
	orderID := createOrder(t, engine, token, model.PlanStarter)

	rec, _ := testutil.MakeJSONRequest(gin.H{
		"order_id":   orderID,
		"payment_id": "pay_1",
		"signature":  "forged",
	}, token, engine, "/payment/verify", http.MethodPost)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var payment model.Payment
	require.NoError(t, testDB.Where("order_id = ?", orderID).First(&payment).Error)
	assert.Equal(t, model.PaymentFailed, payment.Status)

	valid := gin.H{
		"order_id":   orderID,
		"payment_id": "pay_1",
		"signature":  integrations.Sign(gatewaySecret, orderID+"|pay_1"),
	}
	rec, resp := testutil.MakeJSONRequest(valid, token, engine, "/payment/verify", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.PaymentPaid, resp["status"])
	assert.Equal(t, "pay_1", resp["payment_id"])

	// verify again does not credit twice
	rec, _ = testutil.MakeJSONRequest(valid, token, engine, "/payment/verify", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)

	usage, err := testQuota.Snapshot(context.Background(), hr.UserID)
	require.NoError(t, err)
	assert.Equal(t, 110, usage.QuotaLeft)
	assert.Equal(t, model.PlanStarter, usage.Plan)

	stats, err := testReferral.Stats(context.Background(), code)
	require.NoError(t, err)
	assert.EqualValues(t, 49900, stats.TotalAmount)
	assert.EqualValues(t, 1, stats.Signups)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "buyer@example.com", pub.sent[0].Email.To)
}

func TestVerifyPayment_NotFound(t *testing.T) {
	_, token := newHR(t, "hr_payment_missing")
	_, ownerToken := newHR(t, "hr_payment_owner")
	engine := paymentEngine(&fakeGateway{}, nil)
	orderID := createOrder(t, engine, ownerToken, model.PlanPro)

	tests := []struct {
		name    string
		orderID string
	}{
		{"Unknown order", "order_unknown"},
		{"Order of other user", orderID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := testutil.MakeJSONRequest(gin.H{
				"order_id":   tt.orderID,
				"payment_id": "pay_x",
				"signature":  integrations.Sign(gatewaySecret, tt.orderID+"|pay_x"),
			}, token, engine, "/payment/verify", http.MethodPost)
			assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		})
	}
}

func TestGetMyPayments(t *testing.T) {
	_, token := newHR(t, "hr_payment_history")
	engine := paymentEngine(&fakeGateway{}, nil)
	first := createOrder(t, engine, token, model.PlanStarter)
	second := createOrder(t, engine, token, model.PlanPro)

	rec := testutil.MakeRequest(nil, token, engine, "/payment/history", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payments, err := testutil.DecodeBody[[]model.Payment](rec)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, second, payments[0].OrderID)
	assert.Equal(t, first, payments[1].OrderID)
}
