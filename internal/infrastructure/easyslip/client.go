package easyslip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"clipbooking/internal/domain"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20
)

type Client struct {
	token  string
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewClient fails when the credentials are missing so that a misconfigured
// service never reaches the provider.
func NewClient(token, url string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if token == "" || url == "" {
		return nil, domain.ErrMissingVerifierCredentials
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		token:  token,
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

type verifyResponse struct {
	Status  int              `json:"status"`
	Data    *domain.SlipData `json:"data"`
	Message string           `json:"message"`
}

// Verify sends the slip image to EasySlip with duplicate checking enabled.
// Only an empty image is reported as an error; every provider or transport
// failure comes back as a VerificationResult.
func (c *Client) Verify(ctx context.Context, image []byte, filename string) (*domain.VerificationResult, error) {
	if len(image) == 0 {
		return nil, domain.ErrEmptyImage
	}

	body, contentType, err := buildMultipart(image, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("Verification provider timed out", zap.String("filename", filename), zap.Error(err))
			return &domain.VerificationResult{Status: http.StatusGatewayTimeout, Message: "Verification provider timed out"}, nil
		}
		c.logger.Error("Error calling verification provider", zap.String("filename", filename), zap.Error(err))
		return &domain.VerificationResult{Status: http.StatusInternalServerError, Message: "Internal server error"}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Error("Failed to read verification provider response", zap.Int("http_status", resp.StatusCode), zap.Error(err))
		return &domain.VerificationResult{Status: http.StatusInternalServerError, Message: "Internal server error"}, nil
	}

	if resp.StatusCode != http.StatusOK {
		var errBody verifyResponse
		message := "Unknown error"
		if json.Unmarshal(raw, &errBody) == nil && errBody.Message != "" {
			message = errBody.Message
		}
		c.logger.Info("Verification provider rejected slip",
			zap.Int("http_status", resp.StatusCode),
			zap.String("message", message),
		)
		return &domain.VerificationResult{Status: resp.StatusCode, Message: message}, nil
	}

	var decoded verifyResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Error("Failed to decode verification provider response", zap.Error(err))
		return &domain.VerificationResult{Status: http.StatusBadGateway, Message: "Verification provider returned an unreadable response"}, nil
	}
	if decoded.Status == 0 {
		decoded.Status = resp.StatusCode
	}
	if decoded.Status == http.StatusOK && decoded.Data == nil {
		return &domain.VerificationResult{Status: http.StatusBadGateway, Message: "Verification provider returned no slip data"}, nil
	}

	return &domain.VerificationResult{
		Status:  decoded.Status,
		Data:    decoded.Data,
		Message: decoded.Message,
	}, nil
}

func buildMultipart(image []byte, filename string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", imageContentType(image))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("checkDuplicate", "true"); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func imageContentType(image []byte) string {
	detected := http.DetectContentType(image)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return "image/jpeg"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
