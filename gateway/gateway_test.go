package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "go.pilab.hu/selfcare/errors"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Token(context.Context) (string, bool) {
	return s.token, s.token != ""
}

type countingNotifier struct {
	rejections atomic.Int32
}

func (n *countingNotifier) CredentialRejected(context.Context) {
	n.rejections.Add(1)
}

func respond(w http.ResponseWriter, status int, success bool, message string, data any) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   success,
		"message":   message,
		"data":      json.RawMessage(raw),
		"timestamp": "2025-01-01 00:00:00",
	})
}

func TestGateway_Authenticate(t *testing.T) {
	t.Run("Successful Login", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth.php", r.URL.Path)
			assert.Equal(t, "login", r.URL.Query().Get("action"))
			assert.Empty(t, r.Header.Get("Authorization"), "no token may be attached to a login")

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "INV-001", body["invoicingid"])

			respond(w, http.StatusOK, true, "Login successful", map[string]any{
				"token": "tok-new",
				"user": map[string]any{
					"id":          "cust-1",
					"invoicingid": "INV-001",
					"firstName":   "Jamie",
					"lastName":    "Customer",
					"email":       "jamie@example.com",
				},
			})
		}))
		defer srv.Close()

		notifier := &countingNotifier{}
		g := New(srv.URL, staticTokens{}, notifier)

		cred, err := g.Authenticate(context.Background(), "INV-001", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok-new", cred.Token)
		assert.Equal(t, "Jamie Customer", cred.Profile.Name)
		assert.Equal(t, "INV-001", cred.Profile.InvoicingID)
	})

	t.Run("Rejected Login Is Not A Forced Logout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(w, http.StatusUnauthorized, false, "Invalid credentials", nil)
		}))
		defer srv.Close()

		notifier := &countingNotifier{}
		// Token present: a stale session re-authenticating must still not
		// trigger the revocation path on a login endpoint.
		g := New(srv.URL, staticTokens{token: "tok-old"}, notifier)

		_, err := g.Authenticate(context.Background(), "INV-001", "wrong")
		require.Error(t, err)
		assert.Equal(t, serrors.CategoryRemote, serrors.CategoryOf(err))
		assert.Zero(t, notifier.rejections.Load())
	})
}

func TestGateway_CheckIdentity(t *testing.T) {
	t.Run("Attaches Bearer Token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
			respond(w, http.StatusOK, true, "", map[string]any{
				"id":          "cust-1",
				"invoicingid": "INV-001",
				"username":    "jamie",
			})
		}))
		defer srv.Close()

		g := New(srv.URL, staticTokens{token: "tok-abc"}, &countingNotifier{})

		profile, err := g.CheckIdentity(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "INV-001", profile.InvoicingID)
		assert.Equal(t, "jamie", profile.Name, "username is the fallback display name")
	})

	t.Run("Rejection With Token Raises The Signal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(w, http.StatusUnauthorized, false, "Token expired", nil)
		}))
		defer srv.Close()

		notifier := &countingNotifier{}
		g := New(srv.URL, staticTokens{token: "tok-stale"}, notifier)

		_, err := g.CheckIdentity(context.Background())
		require.Error(t, err)
		assert.True(t, serrors.IsRejectedCredential(err))
		assert.Equal(t, int32(1), notifier.rejections.Load())
	})

	t.Run("Unauthorized Without Token Does Not Raise The Signal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(w, http.StatusUnauthorized, false, "Unauthorized", nil)
		}))
		defer srv.Close()

		notifier := &countingNotifier{}
		g := New(srv.URL, staticTokens{}, notifier)

		_, err := g.CheckIdentity(context.Background())
		require.Error(t, err)
		assert.False(t, serrors.IsRejectedCredential(err))
		assert.Zero(t, notifier.rejections.Load())
	})
}

func TestGateway_ErrorClassification(t *testing.T) {
	t.Run("Non JSON Body Is A Decode Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>gateway error</html>"))
		}))
		defer srv.Close()

		g := New(srv.URL, staticTokens{}, &countingNotifier{})
		_, err := g.CheckIdentity(context.Background())
		require.Error(t, err)
		assert.Equal(t, serrors.CategoryDecode, serrors.CategoryOf(err))
	})

	t.Run("Envelope Failure Is A Remote Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(w, http.StatusOK, false, "Account suspended", nil)
		}))
		defer srv.Close()

		g := New(srv.URL, staticTokens{token: "tok"}, &countingNotifier{})
		_, err := g.CheckIdentity(context.Background())
		require.Error(t, err)
		assert.Equal(t, serrors.CategoryRemote, serrors.CategoryOf(err))
		assert.Contains(t, err.Error(), "Account suspended")
	})

	t.Run("Connection Failure Is A Network Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // nothing listening anymore

		g := New(srv.URL, staticTokens{}, &countingNotifier{})
		_, err := g.CheckIdentity(context.Background())
		require.Error(t, err)
		assert.True(t, serrors.IsNetwork(err))
	})

	t.Run("Slow Server Is A Timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer func() { close(block); srv.Close() }()

		g := New(srv.URL, staticTokens{}, &countingNotifier{}, WithTimeout(50*time.Millisecond))
		_, err := g.CheckIdentity(context.Background())
		require.Error(t, err)
		assert.Equal(t, serrors.CategoryTimeout, serrors.CategoryOf(err))
	})
}

func TestGateway_CreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mobile-api.php", r.URL.Path)
		assert.Equal(t, "create-payment", r.URL.Query().Get("endpoint"))

		var req PaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.InDelta(t, 150.00, req.Amount, 0.001)

		respond(w, http.StatusOK, true, "", map[string]any{
			"payment_id":  "pf-200",
			"payfast_url": "https://www.payfast.co.za/eng/process",
			"form_data":   map[string]string{"merchant_id": "10000100"},
		})
	}))
	defer srv.Close()

	g := New(srv.URL, staticTokens{token: "tok"}, &countingNotifier{})
	params, err := g.CreatePayment(context.Background(), PaymentRequest{
		Amount:      150.00,
		Description: "Account payment",
	})
	require.NoError(t, err)
	assert.Equal(t, "pf-200", params.PaymentID)
	assert.Equal(t, "https://www.payfast.co.za/eng/process", params.RedirectURL)
	assert.Equal(t, "10000100", params.FormFields["merchant_id"])
}
