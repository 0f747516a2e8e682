package integrationtests

import (
	ledger "auction-ledger/internal/ledgerService"
	"auction-ledger/internal/repository"
	"auction-ledger/internal/server"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// SetupTestRouter initializes the router over an in-memory ledger for integration testing.
func SetupTestRouter(t *testing.T, opts ...ledger.Option) (*gin.Engine, *ledger.LedgerService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := ledger.NewLedgerService(repository.NewMemoryRepo(), opts...)
	require.NoError(t, svc.Restore(t.Context()))
	return server.SetupRouter(svc), svc
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the JSON envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal body")
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "failed to unmarshal response")
	}
	return resp, w
}

// Data returns the "data" object of a success envelope
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return data
}

// RegisterUser registers a user through the API and returns its id
func RegisterUser(t *testing.T, router *gin.Engine, name string) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/users", map[string]any{
		"name":     name,
		"contact":  name + "@example.com",
		"password": name + "-pw",
	})
	require.Equal(t, http.StatusCreated, w.Code, "register %s: %v", name, resp)
	return Data(t, resp)["user_id"].(string)
}

// CreateAuction creates an auction through the API and returns its id
func CreateAuction(t *testing.T, router *gin.Engine, body map[string]any) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auctions", body)
	require.Equal(t, http.StatusCreated, w.Code, "create auction: %v", resp)
	return Data(t, resp)["auction_id"].(string)
}

// testClock is a manually advanced clock shared between the test and the ledger
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
