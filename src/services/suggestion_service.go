package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/username/budgetfolio/backend/src/config"
	"github.com/username/budgetfolio/backend/src/logger"
)

type suggestionRequest struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type suggestionResponse struct {
	CategoryParent string  `json:"category_parent"`
	CategoryChild  string  `json:"category_child"`
	Confidence     float64 `json:"confidence"`
	Error          string  `json:"error,omitempty"`
}

// suggestionServiceImpl calls the external categorization endpoint. The
// service is a black box: a description and amount go in, a category
// proposal comes out. Failures are reported, never guessed around.
type suggestionServiceImpl struct {
	httpClient *http.Client
	baseURL    string
}

func NewSuggestionService() SuggestionService {
	timeout := 20 * time.Second
	baseURL := ""
	if config.Cfg != nil {
		timeout = config.Cfg.SuggestionServiceTimeout
		baseURL = config.Cfg.SuggestionServiceURL
	}
	return &suggestionServiceImpl{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

func (s *suggestionServiceImpl) SuggestCategory(ctx context.Context, description string, amount float64) (*CategorySuggestion, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("suggestion service is not configured")
	}

	payload, err := json.Marshal(suggestionRequest{Description: description, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("encoding suggestion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.L.Warn("Suggestion service call failed", "error", err)
		return nil, fmt.Errorf("calling suggestion service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion service returned status %d", resp.StatusCode)
	}

	var decoded suggestionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding suggestion response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("suggestion service error: %s", decoded.Error)
	}

	logger.L.Debug("Suggestion service responded", "categoryParent", decoded.CategoryParent, "confidence", decoded.Confidence)
	return &CategorySuggestion{
		CategoryParent: decoded.CategoryParent,
		CategoryChild:  decoded.CategoryChild,
		Confidence:     decoded.Confidence,
	}, nil
}
