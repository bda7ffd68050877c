package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"ReceiptRadar-Backend/domain"
	"ReceiptRadar-Backend/internal/utils"

	"github.com/gofiber/fiber/v2/log"
)

var errMalformedResponse = errors.New("malformed response")

type (
	// Client wraps the external recognition service. Parse never returns an
	// error: every failure path yields a fallback ExtractionResult whose
	// validation carries the cause, so callers need no error branches.
	Client interface {
		Parse(ctx context.Context, image []byte, filename string, contentType string) *domain.ExtractionResult
	}

	client struct {
		baseURL       string
		httpClient    *http.Client
		healthTimeout time.Duration
	}
)

func NewClient() Client {
	timeout := durationConfig("EXTRACTION_TIMEOUT_SECONDS", 60) * time.Second
	healthTimeout := durationConfig("EXTRACTION_HEALTH_TIMEOUT_SECONDS", 5) * time.Second

	return &client{
		baseURL:       utils.GetConfig("EXTRACTION_SERVICE_URL"),
		httpClient:    &http.Client{Timeout: timeout},
		healthTimeout: healthTimeout,
	}
}

func durationConfig(key string, fallback int) time.Duration {
	raw := utils.GetConfig(key)
	if raw == "" {
		return time.Duration(fallback)
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return time.Duration(fallback)
	}
	return time.Duration(value)
}

func (c *client) Parse(ctx context.Context, image []byte, filename string, contentType string) *domain.ExtractionResult {
	// Higher-confidence strategy first, when the secondary signal reports it.
	// A failed attempt falls through to the standard path, never retries.
	if c.aiAvailable(ctx) {
		result, err := c.submit(ctx, image, filename, contentType, true)
		if err == nil {
			return result
		}
		log.Warnf("enhanced extraction failed, falling back to standard: %v", err)
	}

	if !c.healthy(ctx) {
		log.Warnf("extraction service health probe failed")
		return NewFallbackResult("service unavailable")
	}

	result, err := c.submit(ctx, image, filename, contentType, false)
	if err != nil {
		if errors.Is(err, errMalformedResponse) {
			return NewFallbackResult("malformed response")
		}
		return NewFallbackResult(err.Error())
	}
	return result
}

// healthy probes GET /health with its own bounded timeout. A timed-out probe
// counts as a failed probe.
func (c *client) healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// aiAvailable probes the optional GET /ai-health signal gating the enhanced
// strategy. Absence of the endpoint simply disables the strategy.
func (c *client) aiAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ai-health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var health struct {
		AIAvailable bool   `json:"ai_available"`
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false
	}
	return health.AIAvailable
}

func (c *client) submit(ctx context.Context, image []byte, filename string, contentType string, enhanced bool) (*domain.ExtractionResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err = part.Write(image); err != nil {
		return nil, err
	}
	if enhanced {
		if err = writer.WriteField("enhanced", "true"); err != nil {
			return nil, err
		}
	}
	if err = writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extraction service error: %s - %s", resp.Status, string(bodyBytes))
	}

	var result domain.ExtractionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errMalformedResponse
	}

	if !IsStructurallyValid(&result) {
		return nil, errMalformedResponse
	}

	result.Enhanced = enhanced
	return &result, nil
}
