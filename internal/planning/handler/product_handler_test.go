package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitfantasy/nimo-aps/internal/planning/service"
	"github.com/bitfantasy/nimo-aps/internal/planning/testutil"
	"github.com/gin-gonic/gin"
)

func setupProductTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "test-user-001")
		c.Next()
	})

	svc := service.NewProductService(testutil.NewMemoryProductStore(), testutil.NewMemoryInventoryStore())
	h := NewProductHandler(svc)

	products := router.Group("/api/v1/products")
	products.GET("", h.List)
	products.POST("", h.Create)
	products.GET("/:id", h.Get)
	products.PUT("/:id", h.Update)
	products.POST("/:id/deactivate", h.Deactivate)
	products.PUT("/:id/inventory", h.SetInventory)
	products.GET("/:id/on-hand", h.OnHand)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v: %s", err, w.Body.String())
	}
	return resp
}

func TestProductCreateAndGet(t *testing.T) {
	router := setupProductTest(t)

	w := doRequest(router, "POST", "/api/v1/products", map[string]interface{}{
		"code": "FAN-100", "name": "轴流风扇", "lead_time_days": 5, "safety_stock": 2,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(t, w)
	data := resp["data"].(map[string]interface{})
	if data["unit"] != "pcs" {
		t.Errorf("Expected default unit pcs, got %v", data["unit"])
	}
	productID := data["id"].(string)

	w2 := doRequest(router, "GET", "/api/v1/products/"+productID, nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	resp2 := parseResponse(t, w2)
	if resp2["data"].(map[string]interface{})["code"] != "FAN-100" {
		t.Errorf("Unexpected product payload: %s", w2.Body.String())
	}

	// 编码重复按服务器错误返回
	w3 := doRequest(router, "POST", "/api/v1/products", map[string]interface{}{
		"code": "FAN-100", "name": "重复编码",
	})
	if w3.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for duplicate code, got %d", w3.Code)
	}
}

func TestProductCreateBadRequest(t *testing.T) {
	router := setupProductTest(t)

	// 缺少必填字段
	w := doRequest(router, "POST", "/api/v1/products", map[string]interface{}{"code": "FAN-100"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", w.Code)
	}
}

func TestProductGetNotFound(t *testing.T) {
	router := setupProductTest(t)

	w := doRequest(router, "GET", "/api/v1/products/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestProductInventoryEndpoints(t *testing.T) {
	router := setupProductTest(t)

	w := doRequest(router, "POST", "/api/v1/products", map[string]interface{}{
		"code": "FAN-100", "name": "轴流风扇",
	})
	productID := parseResponse(t, w)["data"].(map[string]interface{})["id"].(string)

	w2 := doRequest(router, "PUT", "/api/v1/products/"+productID+"/inventory", map[string]interface{}{
		"warehouse_id": "wh-main", "quantity": 30,
	})
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	w3 := doRequest(router, "GET", "/api/v1/products/"+productID+"/on-hand", nil)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	data := parseResponse(t, w3)["data"].(map[string]interface{})
	if data["on_hand"].(float64) != 30 {
		t.Errorf("Expected on-hand 30, got %v", data["on_hand"])
	}
}
