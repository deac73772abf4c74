package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wizfi/ESP8266-AT-Commands-parser/wizfi"
)

func TestServer(t *testing.T) {
	t.Run("status before the module is up", func(t *testing.T) {
		srv := &Server{
			Logger:   zaptest.NewLogger(t),
			Gateway:  NewGateway(EchoConfig{Interval: time.Second}, zaptest.NewLogger(t)),
			Gatherer: prometheus.NewRegistry(),
		}

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"message":"module not initialized"}`, rec.Body.String())
	})

	g, s, reg := newTestGateway(t, EchoConfig{Mode: EchoOff, Interval: time.Second}, wizfi.NewTestTransport().Module())
	srv := &Server{Logger: zaptest.NewLogger(t), Gateway: g, Gatherer: reg}

	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body struct {
			ID            string `json:"id"`
			BaudRate      int    `json:"baud_rate"`
			WifiConnected bool   `json:"wifi_connected"`
			APIP          string `json:"ap_ip"`
			STAMAC        string `json:"sta_mac"`
			ActiveLinks   []int  `json:"active_links"`
			Echoed        uint64 `json:"echoed"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, s.ID(), body.ID)
		assert.Equal(t, wizfi.DefaultBaudRate, body.BaudRate)
		assert.False(t, body.WifiConnected)
		assert.Equal(t, "192.168.4.1", body.APIP)
		assert.Equal(t, "18:fe:34:a1:b2:c3", body.STAMAC)
		assert.Empty(t, body.ActiveLinks)
		assert.Zero(t, body.Echoed)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `wizfi_commands_total{command="CIPMUX",session="`+s.ID()+`"} 1`)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
