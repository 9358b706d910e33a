package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cheongsim/delivery-app/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SMSConfig holds SMS provider configuration
type SMSConfig struct {
	APIKey    string
	APISecret string
	Sender    string
	BaseURL   string
}

// SMSMessage adalah satu pesan ke satu nomor
type SMSMessage struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

// MessageSender mengirim sekumpulan SMS sekaligus
type MessageSender interface {
	SendMany(ctx context.Context, messages []SMSMessage) error
}

// SMSService handles SMS provider API interactions
type SMSService struct {
	config     *SMSConfig
	httpClient *http.Client
}

type smsErrorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func NewSMSService(config *SMSConfig) *SMSService {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.coolsms.co.kr"
	}
	return &SMSService{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ValidateConfig validates SMS configuration
func (s *SMSService) ValidateConfig() error {
	if s.config.APIKey == "" {
		return fmt.Errorf("SMS_API_KEY is not set")
	}
	if s.config.APISecret == "" {
		return fmt.Errorf("SMS_API_SECRET is not set")
	}
	if s.config.Sender == "" {
		return fmt.Errorf("SMS_SENDER is not set")
	}
	return nil
}

// SendMany mengirim semua pesan dalam satu request send-many
func (s *SMSService) SendMany(ctx context.Context, messages []SMSMessage) error {
	if len(messages) == 0 {
		return nil
	}

	payload := map[string]interface{}{
		"messages": messages,
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling payload: %w", err)
	}

	url := strings.TrimRight(s.config.BaseURL, "/") + "/messages/v4/send-many"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.authorization(time.Now(), uuid.NewString()))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp smsErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.ErrorMessage != "" {
			return fmt.Errorf("sms provider error (%d): %s", resp.StatusCode, errResp.ErrorMessage)
		}
		return fmt.Errorf("sms provider error (%d): %s", resp.StatusCode, string(body))
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"messages": len(messages),
	}).Debug("SMS batch accepted")
	return nil
}

// authorization membuat header HMAC-SHA256 dengan signature = hex(HMAC(secret, date+salt))
func (s *SMSService) authorization(now time.Time, salt string) string {
	date := now.UTC().Format(time.RFC3339)
	mac := hmac.New(sha256.New, []byte(s.config.APISecret))
	mac.Write([]byte(date + salt))
	signature := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("HMAC-SHA256 apiKey=%s, date=%s, salt=%s, signature=%s",
		s.config.APIKey, date, salt, signature)
}
