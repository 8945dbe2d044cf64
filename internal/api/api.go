package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
	"github.com/codigloo/contestd/internal/event"
	"github.com/codigloo/contestd/internal/proctor"
	"github.com/codigloo/contestd/internal/scoreboard"
	"github.com/codigloo/contestd/internal/session"
)

type Config struct {
	Router       *gin.Engine
	EventBus     *event.Bus
	Session      *session.Service
	Scoreboard   *scoreboard.Service
	Proctor      Proctor
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Proctor interface {
	Record(ctx context.Context, req proctor.RecordRequest) error
	CountViolations(ctx context.Context, req proctor.CountViolationsRequest) (map[domain.ProctorKind]int, error)
}

type API struct {
	ses *session.Service
	sb  *scoreboard.Service
	pr  Proctor

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		ses:    c.Session,
		sb:     c.Scoreboard,
		pr:     c.Proctor,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	v1 := c.Router.Group("/v1")
	v1.POST("/attempts", a.Attach)
	v1.GET("/attempts/:id", a.GetView)
	v1.DELETE("/attempts/:id", a.Detach)
	v1.POST("/attempts/:id/register", a.Register)
	v1.POST("/attempts/:id/retry", a.Retry)
	v1.POST("/attempts/:id/finalize", a.Finalize)
	v1.POST("/attempts/:id/select", a.SelectItem)
	v1.POST("/attempts/:id/linked-quiz", a.AcceptLinkedQuiz)
	v1.PUT("/attempts/:id/code", a.EditCode)
	v1.PUT("/attempts/:id/language", a.SetLanguage)
	v1.POST("/attempts/:id/run", a.RunCase)
	v1.POST("/attempts/:id/submit", a.SubmitCode)
	v1.POST("/attempts/:id/answers", a.SelectAnswer)
	v1.POST("/attempts/:id/quiz-submit", a.SubmitQuiz)
	v1.POST("/attempts/:id/violations", a.RecordViolation)
	v1.GET("/attempts/:id/violations", a.GetViolations)
	v1.GET("/contests/:id/scoreboard", a.GetScoreboard)

	c.EventBus.Subscribe(domain.EventNameScoreboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishScoreboardUpdated(ctx, e.(domain.EventScoreboardUpdated))
	})

	return a
}

type AttachRequest struct {
	ContestID string `json:"contestId" binding:"required"`
	Username  string `json:"username" binding:"required"`
}

// Attach opens an attempt. The collaborator token comes from the request's
// Authorization header and travels with the runtime; nothing is read from
// ambient state.
func (a *API) Attach(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		renderError(c, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing bearer token")))
		return
	}

	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	rt, err := a.ses.Attach(c.Request.Context(), session.AttachRequest{
		Token:     token,
		ContestID: req.ContestID,
		Username:  req.Username,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rt.Snapshot())
}

func (a *API) GetView(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rt.Snapshot())
}

func (a *API) Detach(c *gin.Context) {
	a.ses.Detach(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (a *API) Register(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}
	if err := rt.Register(c.Request.Context()); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt.Snapshot())
}

func (a *API) Retry(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}
	rt.Retry(c.Request.Context())
	c.JSON(http.StatusOK, rt.Snapshot())
}

func (a *API) Finalize(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}
	if err := rt.Finalize(c.Request.Context()); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt.Snapshot())
}

type SelectItemRequest struct {
	Index int  `json:"index"`
	Force bool `json:"force"`
}

// SelectItem moves the navigator. An unsaved-changes refusal renders as a
// conflict with a distinct reason so clients can show the confirm dialog and
// re-send with force=true.
func (a *API) SelectItem(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}

	var req SelectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	if err := rt.Select(c.Request.Context(), req.Index, req.Force); err != nil {
		renderSelectError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt.Snapshot())
}

func (a *API) AcceptLinkedQuiz(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}
	if err := rt.AcceptLinkedQuiz(c.Request.Context()); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt.Snapshot())
}

type EditCodeRequest struct {
	Text string `json:"text"`
}

func (a *API) EditCode(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}

	var req EditCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	if err := rt.EditCode(req.Text); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type SetLanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

func (a *API) SetLanguage(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}

	var req SetLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	if err := rt.SetLanguage(c.Request.Context(), req.Language); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt.Snapshot())
}

type RunCaseRequest struct {
	TestCaseID string `json:"testCaseId" binding:"required"`
}

func (a *API) RunCase(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}

	var req RunCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	out, err := rt.RunCase(c.Request.Context(), req.TestCaseID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) SubmitCode(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}

	res, err := rt.Submit(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type SelectAnswerRequest struct {
	QuestionID  string `json:"questionId" binding:"required"`
	OptionIndex int    `json:"optionIndex"`
}

func (a *API) SelectAnswer(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}

	var req SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	if err := rt.SelectAnswer(req.QuestionID, req.OptionIndex); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt.Snapshot())
}

func (a *API) SubmitQuiz(c *gin.Context) {
	rt, ok := a.runtime(c)
	if !ok {
		return
	}

	res, err := rt.SubmitQuiz(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type RecordViolationRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Detail string `json:"detail"`
}

func (a *API) RecordViolation(c *gin.Context) {
	if _, ok := a.runtime(c); !ok {
		return
	}

	var req RecordViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	err := a.pr.Record(c.Request.Context(), proctor.RecordRequest{
		AttemptID: c.Param("id"),
		Kind:      domain.ProctorKind(req.Kind),
		Detail:    req.Detail,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type ViolationCounts struct {
	AttemptID string                     `json:"attemptId"`
	Counts    map[domain.ProctorKind]int `json:"counts"`
}

func (a *API) GetViolations(c *gin.Context) {
	if _, ok := a.runtime(c); !ok {
		return
	}

	counts, err := a.pr.CountViolations(c.Request.Context(), proctor.CountViolationsRequest{
		AttemptID: c.Param("id"),
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ViolationCounts{
		AttemptID: c.Param("id"),
		Counts:    counts,
	})
}

func (a *API) GetScoreboard(c *gin.Context) {
	sb, err := a.sb.GetScoreboard(c.Request.Context(), scoreboard.GetScoreboardRequest{
		ContestID: c.Param("id"),
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderScoreboard(*sb))
}

func (a *API) runtime(c *gin.Context) (*session.Runtime, bool) {
	rt, ok := a.ses.Get(c.Param("id"))
	if !ok {
		renderError(c, errors.New(errors.CodeNotFound,
			errors.WithMessagef("attempt %s not found", c.Param("id"))))
		return nil, false
	}
	return rt, true
}

func bearerToken(c *gin.Context) (string, bool) {
	const prefix = "Bearer "
	h := c.GetHeader("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.JSON(e.HTTPStatusCode(), errorBody{
		Code:    e.Code.String(),
		Message: e.Message,
	})
}

func renderSelectError(c *gin.Context, err error) {
	e := errors.Convert(err)
	body := errorBody{
		Code:    e.Code.String(),
		Message: e.Message,
	}
	if stderrors.Is(err, session.ErrUnsavedChanges) {
		body.Reason = "unsaved_changes"
	}
	c.JSON(e.HTTPStatusCode(), body)
}
