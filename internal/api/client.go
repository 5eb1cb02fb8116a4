package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// HTTPClient реализует Client через REST API бэкенда квизов.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient создаёт нового HTTP клиента бэкенда.
// baseURL — адрес бэкенда без завершающего слэша, token — токен студента.
func NewHTTPClient(baseURL string, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// CreateSession создаёт сессию и возвращает серверный session id.
func (c *HTTPClient) CreateSession(
	ctx context.Context,
	req CreateSessionRequest,
) (*CreateSessionResponse, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, timeoutRequest)
	defer cancelFunc()

	rawResp, err := c.doRequest(ctx, http.MethodPost, "/quiz-sessions", req)
	if err != nil {
		return nil, err
	}

	var resp CreateSessionResponse
	if err = json.Unmarshal(rawResp, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// GetSession возвращает сессию с вопросами.
// Типы вопросов и признаки правильности нормализуются здесь же.
func (c *HTTPClient) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, timeoutRequest)
	defer cancelFunc()

	path := fmt.Sprintf("/quiz-sessions/%s", sessionID)

	rawResp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var raw rawSession
	if err = json.Unmarshal(rawResp, &raw); err != nil {
		return nil, err
	}

	return raw.normalized(), nil
}

// UpdateSessionStatus переводит сессию в целевой статус.
func (c *HTTPClient) UpdateSessionStatus(
	ctx context.Context,
	sessionID string,
	status models.SessionStatus,
) error {
	ctx, cancelFunc := context.WithTimeout(ctx, timeoutRequest)
	defer cancelFunc()

	path := fmt.Sprintf("/quiz-sessions/%s/status", sessionID)

	params := map[string]interface{}{
		"status": status,
	}

	_, err := c.doRequest(ctx, http.MethodPatch, path, params)

	return err
}

// UpdateAnswer изменяет один ответ конкретного вопроса сессии.
// Возвращает ErrSessionCompleted, если сессия уже завершена на бэкенде.
func (c *HTTPClient) UpdateAnswer(
	ctx context.Context,
	sessionID string,
	questionID int64,
	req UpdateAnswerRequest,
) error {
	ctx, cancelFunc := context.WithTimeout(ctx, timeoutRequest)
	defer cancelFunc()

	path := fmt.Sprintf("/quiz-sessions/%s/answers/%d", sessionID, questionID)

	_, err := c.doRequest(ctx, http.MethodPut, path, req)

	return err
}

// SubmitAnswers отправляет все ответы сессии одним запросом.
func (c *HTTPClient) SubmitAnswers(
	ctx context.Context,
	sessionID string,
	req BulkSubmitRequest,
) (*SubmitResult, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, timeoutSubmit)
	defer cancelFunc()

	path := fmt.Sprintf("/quiz-sessions/%s/answers/bulk", sessionID)

	rawResp, err := c.doRequest(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}

	var result SubmitResult
	if err = json.Unmarshal(rawResp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Units возвращает список учебных блоков с модулями.
func (c *HTTPClient) Units(ctx context.Context) ([]Unit, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, timeoutRequest)
	defer cancelFunc()

	rawResp, err := c.doRequest(ctx, http.MethodGet, "/units", nil)
	if err != nil {
		return nil, err
	}

	var units []Unit
	if err = json.Unmarshal(rawResp, &units); err != nil {
		return nil, err
	}

	return units, nil
}

// QuestionsByUnit возвращает вопросы учебного блока.
func (c *HTTPClient) QuestionsByUnit(ctx context.Context, unitID int64) ([]models.Question, error) {
	return c.fetchQuestions(ctx, fmt.Sprintf("/units/%d/questions", unitID))
}

// QuestionsByModule возвращает вопросы модуля.
func (c *HTTPClient) QuestionsByModule(ctx context.Context, moduleID int64) ([]models.Question, error) {
	return c.fetchQuestions(ctx, fmt.Sprintf("/modules/%d/questions", moduleID))
}

func (c *HTTPClient) fetchQuestions(ctx context.Context, path string) ([]models.Question, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, timeoutRequest)
	defer cancelFunc()

	rawResp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	return ParseQuestions(rawResp)
}

// doRequest выполняет запрос к бэкенду.
// Возвращает поле data из конверта ответа в случае успеха.
func (c *HTTPClient) doRequest(
	ctx context.Context,
	method string,
	path string,
	params interface{},
) (json.RawMessage, error) {
	url := c.baseURL + "/api/v1" + path

	var bodyReader io.Reader

	if params != nil {
		body, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}

		bodyReader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	request.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to do %s request for url %s: %w", method, url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}

	if err = json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response for url %s: %w", url, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if strings.Contains(result.Error, "Cannot modify completed quiz session") {
			return nil, ErrSessionCompleted
		}

		return nil, fmt.Errorf("backend api error (status %d): %s", resp.StatusCode, result.Error)
	}

	return result.Data, nil
}
