package credits

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apphttp "tradematch_backend/internal/http"
	"tradematch_backend/platform/events"
	"tradematch_backend/platform/logger"
	"tradematch_backend/platform/validator"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Module) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("test")
	module := NewModule(nil, events.NewInMemoryBus(log), log, validator.New())

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	module.RegisterRoutes(&apphttp.RouterContext{
		Engine: engine,
		V1:     v1,
		Vendor: v1.Group(""),
		Admin:  v1.Group("/admin"),
	})
	return engine, module
}

// Purchase facts are reported by the payment collaborator; the route must
// never be reachable from the vendor surface where the caller could credit
// themselves.
func TestPurchaseRouteMountsAdminOnly(t *testing.T) {
	engine, _ := newTestRouter(t)

	var paths []string
	for _, route := range engine.Routes() {
		if strings.HasSuffix(route.Path, "/credits/purchases") {
			paths = append(paths, route.Path)
		}
	}

	if len(paths) != 1 || paths[0] != "/api/v1/admin/credits/purchases" {
		t.Errorf("purchase routes = %v, want only /api/v1/admin/credits/purchases", paths)
	}
}

func TestRecordPurchaseRequiresVendorInBody(t *testing.T) {
	engine, _ := newTestRouter(t)

	// No vendorId: the credited vendor must be named by the fact, not
	// inferred from the caller.
	body := `{"amountCents": 1000, "externalRef": "stripe_evt_123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/credits/purchases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
