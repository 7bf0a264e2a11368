package listingserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	listinghttpmapper "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/http/mapper"
	listingsapp "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application"
	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	apierrors "github.com/Apurer/go-gin-listings-api/internal/shared/errors"
)

const (
	defaultSubmitTimeout  = 2 * time.Minute
	defaultMaxUploadBytes = 10 << 20
)

var errMissingKey = errors.New("query parameter 'key' is required")

// WizardAPI drives listing wizard sessions over HTTP.
type WizardAPI struct {
	sessions       *listingsapp.Sessions
	submitTimeout  time.Duration
	maxUploadBytes int64
}

type WizardOption func(*WizardAPI)

// WithSubmitTimeout bounds a whole submission.
func WithSubmitTimeout(d time.Duration) WizardOption {
	return func(api *WizardAPI) {
		if d > 0 {
			api.submitTimeout = d
		}
	}
}

// WithMaxUploadBytes caps a single attachment upload.
func WithMaxUploadBytes(n int64) WizardOption {
	return func(api *WizardAPI) {
		if n > 0 {
			api.maxUploadBytes = n
		}
	}
}

// NewWizardAPI wires the session registry.
func NewWizardAPI(sessions *listingsapp.Sessions, opts ...WizardOption) WizardAPI {
	api := WizardAPI{
		sessions:       sessions,
		submitTimeout:  defaultSubmitTimeout,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&api)
		}
	}
	return api
}

// Post /v1/wizard/sessions
// Starts or resumes a create session
func (api *WizardAPI) StartCreateSession(c *gin.Context) {
	var payload listinghttpmapper.StartSession
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondBadRequest(c, err)
			return
		}
	}
	w, loaded, err := api.sessions.StartCreate(c.Request.Context(), strings.TrimSpace(payload.SessionID), payload.OwnerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(w, &loaded))
}

// Post /v1/listings/:listingId/wizard
// Starts an edit session seeded from the persisted listing
func (api *WizardAPI) StartEditSession(c *gin.Context) {
	w, err := api.sessions.StartEdit(c.Request.Context(), c.Param("listingId"), c.Query("ownerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(w, nil))
}

// Get /v1/wizard/sessions/:sessionId
func (api *WizardAPI) GetSession(c *gin.Context) {
	w, ok := api.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(w, nil))
}

// Delete /v1/wizard/sessions/:sessionId
// Discards the session and its cached draft
func (api *WizardAPI) DiscardSession(c *gin.Context) {
	if err := api.sessions.Discard(c.Request.Context(), c.Param("sessionId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Patch /v1/wizard/sessions/:sessionId/draft
// Applies a partial draft update
func (api *WizardAPI) PatchDraft(c *gin.Context) {
	w, ok := api.session(c)
	if !ok {
		return
	}
	var payload listinghttpmapper.DraftPatch
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	_, err := w.Mutate(c.Request.Context(), func(current domain.Draft) (listingtypes.DraftPatch, error) {
		patch, err := listinghttpmapper.ToDraftPatch(payload, current)
		if err != nil {
			return listingtypes.DraftPatch{}, fmt.Errorf("%w: %w", listingsapp.ErrInvalidInput, err)
		}
		return patch, nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(w, nil))
}

// Post /v1/wizard/sessions/:sessionId/media/:group
// Selects a file for an attachment group
func (api *WizardAPI) AddAttachment(c *gin.Context) {
	w, ok := api.session(c)
	if !ok {
		return
	}
	group, ok := parseGroup(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxUploadBytes+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondProblem(c, apierrors.ErrTooLarge.WithDetail(err.Error()))
			return
		}
		respondBadRequest(c, err)
		return
	}
	if file.Size > api.maxUploadBytes {
		respondProblem(c, apierrors.ErrTooLarge.WithDetail(fmt.Sprintf("file exceeds %d bytes", api.maxUploadBytes)))
		return
	}
	src, err := file.Open()
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	blob, err := domain.NewBlob(data, contentType)
	if err != nil {
		respondProblem(c, apierrors.ErrValidation.WithDetail(err.Error()))
		return
	}
	att, err := w.AddPending(c.Request.Context(), group, blob, file.Filename)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listinghttpmapper.FromAttachment(att))
}

// Delete /v1/wizard/sessions/:sessionId/media/:group?key=...
// Removes an attachment; the key is a remote reference or a pending blob ID
func (api *WizardAPI) RemoveAttachment(c *gin.Context) {
	w, ok := api.session(c)
	if !ok {
		return
	}
	group, ok := parseGroup(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		respondBadRequest(c, errMissingKey)
		return
	}
	if _, err := w.RemoveAttachment(c.Request.Context(), group, key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(w, nil))
}

// Post /v1/wizard/sessions/:sessionId/next
// Advances when the current step is satisfied; otherwise a no-op
func (api *WizardAPI) NextStep(c *gin.Context) {
	w, ok := api.session(c)
	if !ok {
		return
	}
	w.Next()
	c.JSON(http.StatusOK, sessionResponse(w, nil))
}

// Post /v1/wizard/sessions/:sessionId/back
func (api *WizardAPI) PreviousStep(c *gin.Context) {
	w, ok := api.session(c)
	if !ok {
		return
	}
	w.Back()
	c.JSON(http.StatusOK, sessionResponse(w, nil))
}

// Post /v1/wizard/sessions/:sessionId/submit
// Reconciles media and creates or updates the listing
func (api *WizardAPI) SubmitSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	w, ok := api.session(c)
	if !ok {
		return
	}
	if step := w.Steps().Blocking(w.Draft()); step != "" {
		respondProblem(c, apierrors.NewIncompleteDraftProblem(step))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), api.submitTimeout)
	defer cancel()
	result, err := api.sessions.Submit(ctx, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if w.Mode == listingsapp.ModeCreate {
		status = http.StatusCreated
	}
	c.JSON(status, listinghttpmapper.FromSubmitResult(result))
}

func (api *WizardAPI) session(c *gin.Context) (*listingsapp.Wizard, bool) {
	w, err := api.sessions.Get(c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return w, true
}

func parseGroup(c *gin.Context) (domain.Group, bool) {
	group, err := domain.GroupFromSlug(c.Param("group"))
	if err != nil {
		respondProblem(c, apierrors.ErrValidation.WithDetail(fmt.Sprintf("%s: %s", err, c.Param("group"))))
		return "", false
	}
	return group, true
}

func sessionResponse(w *listingsapp.Wizard, loaded *listingtypes.LoadResult) listinghttpmapper.Session {
	draft := w.Draft()
	steps := w.Steps()
	current := steps.Current()
	out := listinghttpmapper.Session{
		SessionID:  w.ID,
		Mode:       string(w.Mode),
		Step:       toStep(current),
		CanAdvance: steps.CanAdvance(draft),
		Ready:      steps.Ready(draft),
		Blocking:   steps.Blocking(draft),
		Draft:      listinghttpmapper.FromDraft(draft),
	}
	for _, step := range steps.Steps() {
		out.Steps = append(out.Steps, toStep(step))
	}
	if original := w.Original(); original != nil {
		out.ListingID = original.ID
	}
	if loaded != nil {
		out.Restored = loaded.Restored
		out.LostMedia = listinghttpmapper.LostMedia(loaded.LostMedia)
	}
	return out
}

func toStep(step listingsapp.Step) listinghttpmapper.Step {
	return listinghttpmapper.Step{Index: step.Index, Name: step.Name, Label: step.Label}
}
