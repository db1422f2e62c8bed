package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/greenhaus/chargesched/config"
	"github.com/greenhaus/chargesched/control"
	"github.com/greenhaus/chargesched/inverterauth"
)

func TestPostControlRejectsUnknownAction(t *testing.T) {
	loop := control.New(nil, nil, nil, nil, config.Default())
	h := NewControlHandler(loop, inverterauth.New("", "", "", ""))

	router := gin.New()
	router.POST("/api/control", h.PostControl)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"action":"not_a_real_action"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/control", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, expected 400: %s", w.Code, w.Body.String())
	}
}

func TestPostControlRequiresAction(t *testing.T) {
	loop := control.New(nil, nil, nil, nil, config.Default())
	h := NewControlHandler(loop, inverterauth.New("", "", "", ""))

	router := gin.New()
	router.POST("/api/control", h.PostControl)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/api/control", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, expected 400 for a missing action: %s", w.Code, w.Body.String())
	}
}
