package easyslip

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"clipbooking/internal/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000000000000000")

const successBody = `{
	"status": 200,
	"data": {
		"payload": "00000000000000000000000000000000000000000000000000000000000",
		"transRef": "68370160657749I376388B35",
		"date": "2024-06-10T14:35:00+07:00",
		"countryCode": "TH",
		"amount": {"amount": 1500, "local": {"amount": 0, "currency": ""}},
		"fee": 0,
		"sender": {
			"bank": {"id": "004", "name": "กสิกรไทย", "short": "KBANK"},
			"account": {"name": {"th": "นาย ผู้โอน", "en": "MR. SENDER"}}
		},
		"receiver": {
			"bank": {"id": "030", "name": "ออมสิน", "short": "GSB"},
			"account": {"name": {"th": "นาย ผู้รับ", "en": "MR. RECEIVER"}, "proxy": {"type": "MSISDN", "account": "xxx-xxx-1234"}}
		}
	}
}`

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient("secret-token", url, timeout, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient("", "https://example.test", time.Second, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, domain.ErrMissingVerifierCredentials)

	_, err = NewClient("token", "", time.Second, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, domain.ErrMissingVerifierCredentials)
}

func TestVerify_EmptyImage(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", time.Second)

	_, err := c.Verify(context.Background(), nil, "slip.png")
	assert.ErrorIs(t, err, domain.ErrEmptyImage)
}

func TestVerify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("checkDuplicate"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "slip.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		content, _ := io.ReadAll(file)
		assert.Equal(t, pngHeader, content)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, successBody)
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL, time.Second).Verify(context.Background(), pngHeader, "slip.png")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	require.NotNil(t, result.Data)
	assert.Equal(t, "68370160657749I376388B35", result.Data.TransRef)
	assert.Equal(t, 1500.0, result.Data.Amount.Amount)
	assert.Equal(t, "นาย ผู้รับ", result.Data.Receiver.Account.Name.TH)
	assert.Equal(t, "กสิกรไทย", result.Data.Sender.Bank.Name)
	assert.Equal(t, "2024-06-10T14:35:00+07:00", result.Data.Date)
}

func TestVerify_ProviderErrorKeepsStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"status": 400, "message": "duplicate slip"}`)
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL, time.Second).Verify(context.Background(), pngHeader, "slip.png")
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, http.StatusBadRequest, result.Status)
	assert.Equal(t, "duplicate slip", result.Message)
	assert.Nil(t, result.Data)
}

func TestVerify_ProviderErrorWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL, time.Second).Verify(context.Background(), pngHeader, "slip.png")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, result.Status)
	assert.Equal(t, "Unknown error", result.Message)
}

func TestVerify_OKWithoutDataIsAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": 200}`)
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL, time.Second).Verify(context.Background(), pngHeader, "slip.png")
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, http.StatusBadGateway, result.Status)
}

func TestVerify_TimeoutBecomesProviderError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	result, err := newTestClient(t, srv.URL, 50*time.Millisecond).Verify(context.Background(), pngHeader, "slip.png")
	require.NoError(t, err)

	assert.Equal(t, http.StatusGatewayTimeout, result.Status)
	assert.Equal(t, "Verification provider timed out", result.Message)
}

func TestVerify_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	result, err := newTestClient(t, url, time.Second).Verify(context.Background(), pngHeader, "slip.png")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, "Internal server error", result.Message)
}
