// Package contest is the typed client for the remote contest-content service.
// Every call carries the participant's bearer token explicitly; there are no
// ambient credentials or process-wide defaults.
package contest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
)

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		http:    hc,
	}
}

type contestDTO struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Visibility        string `json:"visibility"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	ParticipantStatus string `json:"participant_status"`
	CurrentScore      string `json:"current_score"`
}

func (c *Client) GetContest(ctx context.Context, token, contestID string) (*domain.Contest, error) {
	var dto contestDTO
	if err := c.get(ctx, token, "/contests/"+url.PathEscape(contestID), &dto); err != nil {
		return nil, err
	}

	score, err := decimal.NewFromString(dto.CurrentScore)
	if err != nil {
		score = decimal.Zero
	}

	return &domain.Contest{
		ContestID:         dto.ID,
		Title:             dto.Title,
		Visibility:        domain.Visibility(dto.Visibility),
		StartTime:         dto.StartTime,
		EndTime:           dto.EndTime,
		ParticipantStatus: domain.ParticipantStatus(dto.ParticipantStatus),
		CurrentScore:      score,
	}, nil
}

type itemDTO struct {
	ID           string          `json:"id"`
	Position     int             `json:"position"`
	ItemType     string          `json:"item_type"`
	ItemID       string          `json:"item_id"`
	Points       decimal.Decimal `json:"points"`
	LinkedQuizID string          `json:"linked_quiz_id"`
	Title        string          `json:"title"`
}

func (c *Client) GetContestItems(ctx context.Context, token, contestID string) ([]domain.ContestItem, error) {
	var dtos []itemDTO
	if err := c.get(ctx, token, "/contests/"+url.PathEscape(contestID)+"/items", &dtos); err != nil {
		return nil, err
	}

	items := make([]domain.ContestItem, 0, len(dtos))
	for _, d := range dtos {
		items = append(items, domain.ContestItem{
			ItemID:       d.ID,
			Position:     d.Position,
			Type:         domain.ItemType(d.ItemType),
			RefID:        d.ItemID,
			Points:       d.Points,
			LinkedQuizID: d.LinkedQuizID,
			Title:        d.Title,
		})
	}
	return items, nil
}

// Register enrolls the participant. An "already registered" conflict from the
// service is success, not an error.
func (c *Client) Register(ctx context.Context, token, contestID string) error {
	err := c.post(ctx, token, "/contests/"+url.PathEscape(contestID)+"/register", struct{}{}, nil)
	if errors.IsCode(err, errors.CodeAlreadyExists) {
		return nil
	}
	return err
}

// Finalize irreversibly ends the participant's attempt server-side.
func (c *Client) Finalize(ctx context.Context, token, contestID string) error {
	return c.post(ctx, token, "/contests/"+url.PathEscape(contestID)+"/finalize", struct{}{}, nil)
}

type questionDTO struct {
	Question struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Statement string `json:"description"`
		Category  string `json:"category"`
		Schema    *struct {
			FunctionName string `json:"function_name"`
			Params       []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"params"`
			ReturnType string `json:"return_type"`
		} `json:"schema"`
	} `json:"question"`
	TestCases []struct {
		ID       string `json:"id"`
		Input    string `json:"input"`
		Expected string `json:"expected_output"`
		Hidden   bool   `json:"hidden"`
	} `json:"testCases"`
}

func (c *Client) GetQuestion(ctx context.Context, token, questionID string) (*domain.Problem, error) {
	var dto questionDTO
	if err := c.get(ctx, token, "/questions/"+url.PathEscape(questionID), &dto); err != nil {
		return nil, err
	}

	p := &domain.Problem{
		QuestionID: dto.Question.ID,
		Title:      dto.Question.Title,
		Statement:  dto.Question.Statement,
		Category:   dto.Question.Category,
	}

	if s := dto.Question.Schema; s != nil {
		schema := &domain.ParamSchema{
			FunctionName: s.FunctionName,
			ReturnType:   s.ReturnType,
		}
		for _, prm := range s.Params {
			schema.Params = append(schema.Params, domain.Param{Name: prm.Name, Type: prm.Type})
		}
		p.Schema = schema
	}

	for _, tc := range dto.TestCases {
		p.TestCases = append(p.TestCases, domain.TestCase{
			TestCaseID: tc.ID,
			Input:      tc.Input,
			Expected:   tc.Expected,
			Hidden:     tc.Hidden,
		})
	}

	return p, nil
}

type quizDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	Questions []struct {
		ID            string   `json:"id"`
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectOption int      `json:"correct_option"`
	} `json:"questions"`
}

func (c *Client) GetQuiz(ctx context.Context, token, quizID string) (*domain.Quiz, error) {
	var dto quizDTO
	if err := c.get(ctx, token, "/quizzes/"+url.PathEscape(quizID), &dto); err != nil {
		return nil, err
	}

	q := &domain.Quiz{
		QuizID:   dto.ID,
		Title:    dto.Title,
		Duration: dto.Duration,
	}
	for _, qq := range dto.Questions {
		q.Questions = append(q.Questions, domain.QuizQuestion{
			QuestionID:    qq.ID,
			Prompt:        qq.Question,
			Options:       qq.Options,
			CorrectOption: qq.CorrectOption,
		})
	}
	return q, nil
}

// SubmitCodeRequest scores code against the full suite, hidden cases included.
type SubmitCodeRequest struct {
	ContestID     string `json:"contestId"`
	ContestItemID string `json:"contestItemId"`
	Code          string `json:"code"`
	Language      string `json:"language"`
}

type SubmitCodeResponse struct {
	Passed      bool            `json:"passed"`
	PassedCount int             `json:"passedCount"`
	TotalTests  int             `json:"totalTests"`
	Score       decimal.Decimal `json:"score"`
	Results     []CaseResult    `json:"results"`
}

type CaseResult struct {
	Passed bool `json:"passed"`
	Hidden bool `json:"hidden"`
}

func (c *Client) SubmitCode(ctx context.Context, token string, req SubmitCodeRequest) (*SubmitCodeResponse, error) {
	var resp SubmitCodeResponse
	if err := c.post(ctx, token, "/contests/"+url.PathEscape(req.ContestID)+"/submissions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type SubmitQuizRequest struct {
	QuizID        string         `json:"quizId"`
	ContestID     string         `json:"contestId"`
	ContestItemID string         `json:"contestItemId"`
	Answers       map[string]int `json:"answers"`
}

type SubmitQuizResponse struct {
	CorrectAnswers int             `json:"correctAnswers"`
	TotalQuestions int             `json:"totalQuestions"`
	Score          decimal.Decimal `json:"score"`
}

func (c *Client) SubmitQuiz(ctx context.Context, token string, req SubmitQuizRequest) (*SubmitQuizResponse, error) {
	var resp SubmitQuizResponse
	if err := c.post(ctx, token, "/quizzes/"+url.PathEscape(req.QuizID)+"/submissions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("contest: build request: %w", err)
	}
	return c.do(req, token, out)
}

func (c *Client) post(ctx context.Context, token, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("contest: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("contest: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable, errors.WithCause(err), errors.WithMessagef("contest service unreachable"))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.New(errors.CodeUnauthenticated, errors.WithMessagef("contest service rejected credentials"))
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.CodeNotFound, errors.WithMessagef("%s not found", req.URL.Path))
	case resp.StatusCode == http.StatusConflict:
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("%s conflict", req.URL.Path))
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.New(errors.CodeUnavailable, errors.WithMessagef("contest service status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("contest: decode response: %w", err)
	}
	return nil
}
