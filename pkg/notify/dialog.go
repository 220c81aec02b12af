package notify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// DialogGateway implements SMS sending via Dialog eSMS API. It only reaches
// Sri Lankan mobile numbers.
type DialogGateway struct {
	httpClient *resty.Client
	username   string
	password   string
	mask       string

	// Token management
	token       string
	tokenMutex  sync.RWMutex
	tokenExpiry time.Time

	now func() time.Time
}

// DialogConfig holds configuration for Dialog SMS Gateway
type DialogConfig struct {
	APIURL   string
	Username string
	Password string
	Mask     string
}

// NewDialogGateway creates a new Dialog SMS Gateway client
func NewDialogGateway(config DialogConfig) *DialogGateway {
	client := resty.New().
		SetBaseURL(strings.TrimRight(config.APIURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &DialogGateway{
		httpClient: client,
		username:   config.Username,
		password:   config.Password,
		mask:       config.Mask,
		now:        time.Now,
	}
}

type dialogLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type dialogLoginResponse struct {
	Status     string `json:"status"`
	Comment    string `json:"comment"`
	Token      string `json:"token"`
	Expiration int    `json:"expiration"` // seconds
	ErrCode    string `json:"errCode"`
}

type dialogRecipient struct {
	Mobile string `json:"mobile"`
}

type dialogSendRequest struct {
	MSISDN        []dialogRecipient `json:"msisdn"`
	Message       string            `json:"message"`
	SourceAddress string            `json:"sourceAddress,omitempty"`
	TransactionID int64             `json:"transaction_id"`
	PaymentMethod int               `json:"payment_method"` // 0 = wallet
}

type dialogSendResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Data    struct {
		CampaignID   int     `json:"campaignId"`
		CampaignCost float64 `json:"campaignCost"`
	} `json:"data"`
	ErrCode string `json:"errCode"`
}

// login retrieves a fresh access token
func (d *DialogGateway) login(ctx context.Context) error {
	var loginResp dialogLoginResponse
	resp, err := d.httpClient.R().
		SetContext(ctx).
		SetBody(dialogLoginRequest{Username: d.username, Password: d.password}).
		SetResult(&loginResp).
		SetError(&loginResp).
		Post("/login")
	if err != nil {
		return fmt.Errorf("failed to send login request: %w", err)
	}

	if loginResp.Status != "success" || loginResp.Token == "" {
		return &ProviderError{
			Provider:   d.Name(),
			StatusCode: resp.StatusCode(),
			Code:       loginResp.ErrCode,
			Message:    "login failed: " + loginResp.Comment,
		}
	}

	d.tokenMutex.Lock()
	d.token = loginResp.Token
	d.tokenExpiry = d.now().Add(time.Duration(loginResp.Expiration) * time.Second)
	d.tokenMutex.Unlock()

	return nil
}

// Consider token invalid 5 minutes before actual expiry
func (d *DialogGateway) isTokenValid() bool {
	d.tokenMutex.RLock()
	defer d.tokenMutex.RUnlock()

	if d.token == "" {
		return false
	}
	return d.now().Before(d.tokenExpiry.Add(-5 * time.Minute))
}

func (d *DialogGateway) ensureValidToken(ctx context.Context) error {
	if d.isTokenValid() {
		return nil
	}
	return d.login(ctx)
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// FormatPhoneForDialog converts an international Sri Lankan number to
// Dialog's 9-digit format.
// Input: "+94771234567" or "+94 77 123 4567"
// Output: "771234567"
func FormatPhoneForDialog(phone string) (string, error) {
	if !strings.HasPrefix(strings.TrimSpace(phone), "+94") {
		return "", fmt.Errorf("dialog only delivers to +94 numbers")
	}

	digits := nonDigits.ReplaceAllString(phone, "")
	digits = strings.TrimPrefix(digits, "94")

	if len(digits) != 9 {
		return "", fmt.Errorf("invalid phone number length after formatting: %d digits (expected 9)", len(digits))
	}

	if !strings.HasPrefix(digits, "7") {
		return "", fmt.Errorf("invalid Sri Lankan mobile prefix: must start with 7")
	}

	return digits, nil
}

// Send sends one SMS and returns the transaction id as the delivery id
func (d *DialogGateway) Send(ctx context.Context, to, message string) (string, error) {
	formattedPhone, err := FormatPhoneForDialog(to)
	if err != nil {
		return "", fmt.Errorf("failed to format phone number: %w", err)
	}

	if err := d.ensureValidToken(ctx); err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	transactionID := d.now().UnixMicro()

	d.tokenMutex.RLock()
	token := d.token
	d.tokenMutex.RUnlock()

	var smsResp dialogSendResponse
	resp, err := d.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(dialogSendRequest{
			MSISDN:        []dialogRecipient{{Mobile: formattedPhone}},
			Message:       message,
			SourceAddress: d.mask,
			TransactionID: transactionID,
		}).
		SetResult(&smsResp).
		SetError(&smsResp).
		Post("/sms")
	if err != nil {
		return "", fmt.Errorf("failed to send SMS request: %w", err)
	}

	if smsResp.Status != "success" {
		return "", &ProviderError{
			Provider:   d.Name(),
			StatusCode: resp.StatusCode(),
			Code:       smsResp.ErrCode,
			Message:    smsResp.Comment,
		}
	}

	return strconv.FormatInt(transactionID, 10), nil
}

// Name returns the name of this SMS gateway
func (d *DialogGateway) Name() string {
	return "Dialog eSMS"
}
