package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const whatsAppPrefix = "whatsapp:"

// TwilioConfig holds credentials for the Twilio Messages API
type TwilioConfig struct {
	APIURL     string
	AccountSID string
	AuthToken  string
	From       string
}

// TwilioClient sends messages through the Twilio Messages API. The same
// client type serves SMS and WhatsApp; the WhatsApp variant prefixes both
// addresses with "whatsapp:".
type TwilioClient struct {
	httpClient *resty.Client
	accountSID string
	from       string
	whatsApp   bool
}

// twilioMessage is the subset of the Messages resource we read back
type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// twilioError is the body Twilio returns for 4xx/5xx responses
type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// NewTwilioSMS creates a Twilio client that sends plain SMS
func NewTwilioSMS(cfg TwilioConfig) *TwilioClient {
	return newTwilioClient(cfg, false)
}

// NewTwilioWhatsApp creates a Twilio client that sends WhatsApp messages
func NewTwilioWhatsApp(cfg TwilioConfig) *TwilioClient {
	return newTwilioClient(cfg, true)
}

func newTwilioClient(cfg TwilioConfig, whatsApp bool) *TwilioClient {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.twilio.com"
	}

	// One HTTP request per attempt, no resty retries
	client := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(30*time.Second).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &TwilioClient{
		httpClient: client,
		accountSID: cfg.AccountSID,
		from:       cfg.From,
		whatsApp:   whatsApp,
	}
}

// Send posts one message and returns the Twilio message SID
func (c *TwilioClient) Send(ctx context.Context, to, message string) (string, error) {
	from := c.from
	if c.whatsApp {
		to = whatsAppPrefix + to
		from = whatsAppPrefix + from
	}

	var result twilioMessage
	var apiErr twilioError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": from,
			"Body": message,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.accountSID))
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", c.Name(), err)
	}

	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = resp.String()
		}
		code := ""
		if apiErr.Code != 0 {
			code = strconv.Itoa(apiErr.Code)
		}
		return "", &ProviderError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode(),
			Code:       code,
			Message:    msg,
		}
	}

	if result.SID == "" {
		return "", &ProviderError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode(),
			Message:    "response did not include a message sid",
		}
	}

	return result.SID, nil
}

// Name returns the provider name
func (c *TwilioClient) Name() string {
	if c.whatsApp {
		return "Twilio WhatsApp"
	}
	return "Twilio SMS"
}
