package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent_RequiresAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &TransactionHandlers{}
	router := gin.New()
	router.POST("/transactions", h.CreateIntent)

	body, _ := json.Marshal(map[string]string{
		"address": "bc1qexample", "currency": "BTC", "amount": "0.5",
	})
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateIntent_RejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &TransactionHandlers{}
	router := gin.New()
	router.POST("/transactions", func(c *gin.Context) {
		c.Set("user_id", uuid.New())
		h.CreateIntent(c)
	})

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing currency", `{"address":"bc1qexample","amount":"0.5"}`},
		{"missing address", `{"currency":"BTC","amount":"0.5"}`},
		{"non-numeric amount", `{"address":"bc1qexample","currency":"BTC","amount":"half"}`},
		{"unsupported currency", `{"address":"bc1qexample","currency":"DOGE","amount":"0.5"}`},
		{"USD is not depositable", `{"address":"bc1qexample","currency":"USD","amount":"100"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_REQUEST", resp["code"])
		})
	}
}

func TestGetIntent_RejectsInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &TransactionHandlers{}
	router := gin.New()
	router.GET("/transactions/:id", func(c *gin.Context) {
		c.Set("user_id", uuid.New())
		h.GetIntent(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserID_AcceptsUUIDAndString(t *testing.T) {
	gin.SetMode(gin.TestMode)

	id := uuid.New()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("user_id", id)
	got, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Set("user_id", id.String())
	got, err = getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	_, err = getUserID(c)
	assert.Error(t, err)
}
