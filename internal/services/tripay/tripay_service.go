package tripay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/config"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/payment"
)

const (
	sandboxURL    = "https://tripay.co.id/api-sandbox"
	productionURL = "https://tripay.co.id/api"
	defaultMethod = "QRIS"
)

// TripayService is the Tripay closed-payment client. It satisfies
// payment.Gateway: the Tripay reference is the intent id and the hosted
// checkout URL is the client secret.
type TripayService struct {
	Client       *http.Client
	APIKey       string
	PrivateKey   string
	MerchantCode string
	Method       string
	BaseURL      string
	CallbackURL  string
	ReturnURL    string
	Now          func() time.Time
}

func NewTripayService(cfg config.Payment, frontendBaseURL string) *TripayService {
	baseURL := sandboxURL
	if cfg.Env == "production" {
		baseURL = productionURL
	}
	method := cfg.Method
	if method == "" {
		method = defaultMethod
	}

	return &TripayService{
		Client:       &http.Client{Timeout: 15 * time.Second},
		APIKey:       cfg.APIKey,
		PrivateKey:   cfg.PrivateKey,
		MerchantCode: cfg.MerchantCode,
		Method:       method,
		BaseURL:      baseURL,
		CallbackURL:  strings.TrimRight(cfg.AppBaseURL, "/") + "/api/v1/payments/callback",
		ReturnURL:    strings.TrimRight(frontendBaseURL, "/") + "/payments",
		Now:          time.Now,
	}
}

var _ payment.Gateway = (*TripayService)(nil)

type OrderItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type TransactionRequest struct {
	Method        string      `json:"method"`
	MerchantRef   string      `json:"merchant_ref"`
	Amount        int64       `json:"amount"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	OrderItems    []OrderItem `json:"order_items"`
	Callback      string      `json:"callback_url"`
	ReturnURL     string      `json:"return_url"`
	ExpiredTime   int64       `json:"expired_time"`
	Signature     string      `json:"signature"`
}

type TransactionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Reference   string `json:"reference"`
		MerchantRef string `json:"merchant_ref"`
		CheckoutURL string `json:"checkout_url"`
		Amount      int64  `json:"amount"`
	} `json:"data"`
}

func (s *TripayService) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	// HMAC-SHA256(merchant_code + merchant_ref + amount, private_key)
	signature := s.sign(fmt.Sprintf("%s%s%d", s.MerchantCode, req.Reference, req.Amount))

	body := TransactionRequest{
		Method:        s.Method,
		MerchantRef:   req.Reference,
		Amount:        req.Amount,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		OrderItems: []OrderItem{
			{Name: req.Description, Price: req.Amount, Quantity: 1},
		},
		Callback:    s.CallbackURL,
		ReturnURL:   s.ReturnURL,
		ExpiredTime: s.Now().Add(24 * time.Hour).Unix(),
		Signature:   signature,
	}

	var resp TransactionResponse
	if err := s.do(ctx, http.MethodPost, "/transaction/create", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("tripay error: %s", resp.Message)
	}
	if resp.Data.Reference == "" {
		return nil, errors.New("tripay error: empty reference")
	}
	return &payment.Intent{ID: resp.Data.Reference, ClientSecret: resp.Data.CheckoutURL}, nil
}

type PaymentChannel struct {
	Group   string `json:"group"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	IconURL string `json:"icon_url"`
	Active  bool   `json:"active"`
}

type ChannelResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    []PaymentChannel `json:"data"`
}

// PaymentChannels lists the methods enabled on the merchant account.
func (s *TripayService) PaymentChannels(ctx context.Context) ([]PaymentChannel, error) {
	var resp ChannelResponse
	if err := s.do(ctx, http.MethodGet, "/merchant/payment-channel", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("tripay error: %s", resp.Message)
	}
	return resp.Data, nil
}

func (s *TripayService) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse tripay response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func (s *TripayService) sign(data string) string {
	h := hmac.New(sha256.New, []byte(s.PrivateKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateSignature checks a callback's X-Callback-Signature, which is
// HMAC-SHA256 of the raw JSON body.
func (s *TripayService) ValidateSignature(incomingSig string, body []byte) bool {
	expected := s.sign(string(body))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(incomingSig)))
}

// CallbackPayload is the body Tripay posts on status changes.
type CallbackPayload struct {
	Reference      string `json:"reference"`
	MerchantRef    string `json:"merchant_ref"`
	PaymentMethod  string `json:"payment_method"`
	TotalAmount    int64  `json:"total_amount"`
	AmountReceived int64  `json:"amount_received"`
	Status         string `json:"status"` // PAID, EXPIRED, FAILED, REFUND
	PaidAt         int64  `json:"paid_at"`
}

func (p CallbackPayload) Paid() bool { return p.Status == "PAID" }
