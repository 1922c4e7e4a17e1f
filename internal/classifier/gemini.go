package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Ошибки классификатора. Различаются вызывающей стороной:
// сбой удаленного вызова и непригодный для разбора ответ - разные случаи.
var (
	// ErrServiceCall - сбой самого вызова (сеть, таймаут, не-2xx статус)
	ErrServiceCall = errors.New("classifier service call failed")

	// ErrParse - ответ не разобрался в ожидаемую JSON-форму после снятия обрамления
	ErrParse = errors.New("classifier response parse failed")
)

// Result - структурированный результат классификации свободного текста.
// Принадлежность категории фиксированному набору здесь не проверяется,
// это ответственность сервиса инцидентов.
type Result struct {
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Classifier определяет контракт извлечения описания и категории из
// свободного текста отчета
type Classifier interface {
	Classify(ctx context.Context, rawText string) (*Result, error)
}

// GeminiClassifier - реализация Classifier поверх Gemini generateContent API
type GeminiClassifier struct {
	apiURL     string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewGeminiClassifier(apiURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *GeminiClassifier {
	return &GeminiClassifier{
		apiURL:  apiURL,
		apiKey:  apiKey,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Classify отправляет текст сообщения в Gemini и разбирает ответ.
// Вызов ограничен таймаутом: зависший классификатор не должен держать запрос.
func (c *GeminiClassifier) Classify(ctx context.Context, rawText string) (*Result, error) {
	log := c.logger.WithFields(logrus.Fields{
		"component": "classifier",
		"method":    "Classify",
	})

	prompt := fmt.Sprintf(
		"Clean and summarize this message as a mangrove incident report. "+
			"Classify it as one of: Illegal Cutting, Land Reclamation, Pollution, Other.\n"+
			"Message: %q\n"+
			"Return JSON: { description, category }",
		rawText,
	)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.apiURL
	if c.apiKey != "" {
		endpoint = fmt.Sprintf("%s?key=%s", c.apiURL, url.QueryEscape(c.apiKey))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrServiceCall, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("Gemini API call failed")
		return nil, fmt.Errorf("%w: %v", ErrServiceCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warnf("Gemini API returned status %d", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrServiceCall, resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response body: %v", ErrParse, err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: response contains no candidates", ErrParse)
	}

	text := stripCodeFence(geminiResp.Candidates[0].Content.Parts[0].Text)

	result := &Result{}
	if err := json.Unmarshal([]byte(text), result); err != nil {
		log.WithError(err).Warn("Failed to parse classifier JSON payload")
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if result.Description == "" || result.Category == "" {
		return nil, fmt.Errorf("%w: description or category missing", ErrParse)
	}

	log.WithField("category", result.Category).Debug("Message classified")
	return result, nil
}

// stripCodeFence снимает Markdown-обрамление ```json ... ``` (тег языка
// может отсутствовать), в котором модель часто возвращает JSON
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimSuffix(text, "```")
	// Отбрасываем первую строку вместе с тегом языка
	if idx := strings.IndexAny(text, "\r\n"); idx != -1 {
		text = text[idx:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	return strings.TrimSpace(text)
}
