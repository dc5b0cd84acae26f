package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Levels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, Setup("debug", "text").GetLevel())
	assert.Equal(t, logrus.WarnLevel, Setup("WARN", "json").GetLevel())
	assert.Equal(t, logrus.InfoLevel, Setup("loud", "text").GetLevel())
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithOutput("info", "json", &buf)
	logger.WithField("table", "users").Info("listed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "listed", line["msg"])
	assert.Equal(t, "users", line["table"])
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := SetupWithOutput("info", "json", &buf)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("correlation_id", "abc-123")
		c.Next()
	})
	router.Use(RequestLogger(logger))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/7", nil))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "/items/:id", line["path"])
	assert.Equal(t, float64(404), line["status"])
	assert.Equal(t, "abc-123", line["correlation_id"])
}
