package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gettemplate", r.URL.Path)
		assert.Equal(t, "app", r.URL.Query().Get("appkey"))
		assert.Equal(t, "api", r.URL.Query().Get("authkey"))
		assert.Equal(t, "dev-1", r.URL.Query().Get("device_id"))
		_, _ = w.Write([]byte(`{"status":"success","data":[{"id":"t1","name":"Intro","body":"Hello"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", Credentials{APIKey: "api", AppKey: "app", DeviceID: "dev-1"})
	templates, err := client.Templates(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "Intro", templates[0].Name)
}

func TestSendTemplatePrefixesCountryCode(t *testing.T) {
	var got messageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/createmessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"success","message":"queued"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, Credentials{APIKey: "api", AppKey: "app", DeviceID: "dev-1"})
	require.NoError(t, client.SendTemplate(context.Background(), "9876543210", "t1"))
	assert.Equal(t, "919876543210", got.To)
	assert.Equal(t, "t1", got.TemplateID)
	assert.Equal(t, "dev-1", got.DeviceID)
}

func TestSendTemplateRejectsBadMobileWithoutCallingGateway(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, Credentials{})
	require.Error(t, client.SendTemplate(context.Background(), "12345", "t1"))
	assert.False(t, called)
}

func TestGatewayFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"invalid device"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, Credentials{})
	_, err := client.Templates(context.Background())
	require.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "invalid device")
}

func TestGatewayHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, Credentials{})
	err := client.SendTemplate(context.Background(), "9876543210", "t1")
	require.ErrorIs(t, err, ErrGateway)
}
