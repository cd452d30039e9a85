package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func protectedHandler(key string) (http.Handler, *bool) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	return MaintenanceKey(key)(next), &reached
}

func TestMaintenanceKey_ValidKey(t *testing.T) {
	h, reached := protectedHandler("sweep-key")
	req := httptest.NewRequest(http.MethodPost, "/maintenance/sweep", nil)
	req.Header.Set("Authorization", "Bearer sweep-key")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
}

func TestMaintenanceKey_WrongKey(t *testing.T) {
	h, reached := protectedHandler("sweep-key")
	req := httptest.NewRequest(http.MethodPost, "/maintenance/sweep", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestMaintenanceKey_MissingHeader(t *testing.T) {
	h, reached := protectedHandler("sweep-key")
	req := httptest.NewRequest(http.MethodPost, "/maintenance/sweep", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestMaintenanceKey_NonBearerScheme(t *testing.T) {
	h, reached := protectedHandler("sweep-key")
	req := httptest.NewRequest(http.MethodPost, "/maintenance/sweep", nil)
	req.Header.Set("Authorization", "Basic c3dlZXAta2V5")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}
