package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCreateProductHandler_BindFailureReportsFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/catalog/products", createProductHandler())

	req := httptest.NewRequest(http.MethodPost, "/catalog/products",
		strings.NewReader(`{"description":"123-456"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "validation failed") {
		t.Fatalf("expected a validation error, got %s", body)
	}
	// The missing required field is named in the response.
	if !strings.Contains(body, "Name") || !strings.Contains(body, "required") {
		t.Fatalf("expected the Name field to be reported as required, got %s", body)
	}
}

func TestCreateProductHandler_MalformedJson(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/catalog/products", createProductHandler())

	req := httptest.NewRequest(http.MethodPost, "/catalog/products",
		strings.NewReader(`{"name": `))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid request body") {
		t.Fatalf("expected a generic bind error, got %s", w.Body.String())
	}
}
