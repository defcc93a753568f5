package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.pilab.hu/selfcare/domain"
)

// userPayload is the wire shape of a user record.
type userPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	InvoicingID string `json:"invoicingid"`
	PackageName string `json:"package_name"`
	Status      string `json:"status"`
}

func (u *userPayload) snapshot() domain.ProfileSnapshot {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return domain.ProfileSnapshot{
		CustomerID:  u.ID,
		InvoicingID: u.InvoicingID,
		Name:        name,
		Email:       u.Email,
		PackageName: u.PackageName,
		Status:      u.Status,
	}
}

// CheckIdentity validates the current token by fetching the profile it
// belongs to. Requires an active token.
func (g *Gateway) CheckIdentity(ctx context.Context) (*domain.ProfileSnapshot, error) {
	var user userPayload
	if err := g.do(ctx, http.MethodGet, "/auth.php?action=profile", nil, &user); err != nil {
		return nil, err
	}
	snap := user.snapshot()
	return &snap, nil
}

// authPayload is the wire shape of a successful authentication.
type authPayload struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

// Authenticate exchanges an account identifier and secret for a credential.
// No token is attached; a 401 here is a failed login, never a forced logout.
func (g *Gateway) Authenticate(ctx context.Context, identifier, secret string) (*domain.Credential, error) {
	body := map[string]string{
		"invoicingid": identifier,
		"password":    secret,
	}
	var auth authPayload
	if err := g.do(ctx, http.MethodPost, "/auth.php?action=login", body, &auth); err != nil {
		return nil, err
	}
	return &domain.Credential{
		Token:    auth.Token,
		Profile:  auth.User.snapshot(),
		IssuedAt: time.Now(),
	}, nil
}

// PaymentRequest carries the parameters of a create-payment call.
type PaymentRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Email       string  `json:"email,omitempty"`
}

// PaymentParams is what the server returns for a created payment: the
// processor redirect target and the fields of the form to post there.
type PaymentParams struct {
	PaymentID   string            `json:"payment_id"`
	RedirectURL string            `json:"payfast_url"`
	FormFields  map[string]string `json:"form_data"`
	TestingMode bool              `json:"testing_mode"`
	Amount      float64           `json:"amount"`
	Description string            `json:"description"`
}

// CreatePayment asks the server to set up a redirect-based payment.
func (g *Gateway) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentParams, error) {
	var params PaymentParams
	if err := g.do(ctx, http.MethodPost, "/mobile-api.php?endpoint=create-payment", req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// PaymentStatusInfo is the server's view of a payment after the fact.
type PaymentStatusInfo struct {
	PaymentID string  `json:"payment_id"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
}

// PaymentStatus fetches the server-side status of a payment, for verifying a
// resolution after the redirect flow finished.
func (g *Gateway) PaymentStatus(ctx context.Context, paymentID string) (*PaymentStatusInfo, error) {
	endpoint := fmt.Sprintf("/mobile-api.php?endpoint=payment-status&payment_id=%s", url.QueryEscape(paymentID))
	var info PaymentStatusInfo
	if err := g.do(ctx, http.MethodGet, endpoint, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
