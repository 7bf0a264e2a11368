package listingserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	listinghttpmapper "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/http/mapper"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/memory"
	listingsobs "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/observability"
	listingsapp "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application"
	apierrors "github.com/Apurer/go-gin-listings-api/internal/shared/errors"
)

type testApp struct {
	router  *gin.Engine
	objects *memory.ObjectStore
	repo    *memory.Repository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	objects := memory.NewObjectStore("")
	instrumented, err := listingsobs.NewObjectStore(objects, reg)
	require.NoError(t, err)
	repo := memory.NewRepository()
	reconciler := listingsapp.NewReconciler(instrumented)
	orchestrator := listingsapp.NewOrchestrator(repo, reconciler)
	sessions := listingsapp.NewSessions(memory.NewDraftCache(), repo, orchestrator)

	router := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{
		ListingAPI: NewListingAPI(repo),
		WizardAPI:  NewWizardAPI(sessions, WithMaxUploadBytes(1024)),
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &testApp{router: router, objects: objects, repo: repo}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) upload(t *testing.T, sessionID, group, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/wizard/sessions/"+sessionID+"/media/"+group, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func ptr[T any](v T) *T { return &v }

func completeSinglePet() listinghttpmapper.DraftPatch {
	return listinghttpmapper.DraftPatch{
		Type:    ptr("single_pet"),
		Title:   ptr("Friendly beagle"),
		BreedID: ptr("beagle"),
		PetName: ptr("Max"),
		AgeText: ptr("10 weeks"),
		Gender:  ptr("male"),
		Price:   ptr(850.0),
	}
}

func TestWizardCreateAndEditFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/v1/wizard/sessions", listinghttpmapper.StartSession{OwnerID: "owner-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[listinghttpmapper.Session](t, rec)
	require.NotEmpty(t, session.SessionID)
	assert.Equal(t, "create", session.Mode)
	assert.Len(t, session.Steps, 7)
	assert.False(t, session.CanAdvance)

	base := "/v1/wizard/sessions/" + session.SessionID
	rec = app.do(t, http.MethodPatch, base+"/draft", completeSinglePet())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session = decode[listinghttpmapper.Session](t, rec)
	assert.True(t, session.CanAdvance)
	assert.Equal(t, "photos", session.Blocking)

	rec = app.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	problem := decode[apierrors.ProblemDetail](t, rec)
	assert.Equal(t, "photos", problem.Extensions["step"])

	rec = app.upload(t, session.SessionID, "photos", "max.jpg", []byte("\xff\xd8\xff jpeg bytes"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	att := decode[listinghttpmapper.Attachment](t, rec)
	assert.Equal(t, "pending", att.Kind)
	assert.Equal(t, "max.jpg", att.OriginalName)

	rec = app.do(t, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[listinghttpmapper.Session](t, rec).Step.Index)

	rec = app.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[listinghttpmapper.SubmitResult](t, rec)
	require.Len(t, created.Listing.Media.Photos, 1)
	assert.Equal(t, 1, created.Uploaded)
	photoRef := created.Listing.Media.Photos[0]
	assert.True(t, app.objects.Has(photoRef))

	rec = app.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/v1/listings/"+created.Listing.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Friendly beagle", decode[listinghttpmapper.Listing](t, rec).Title)

	rec = app.do(t, http.MethodPost, "/v1/listings/"+created.Listing.ID+"/wizard", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	edit := decode[listinghttpmapper.Session](t, rec)
	assert.Equal(t, "edit", edit.Mode)
	assert.Equal(t, created.Listing.ID, edit.ListingID)
	require.Len(t, edit.Draft.Photos, 1)
	assert.Equal(t, photoRef, edit.Draft.Photos[0].Reference)

	editBase := "/v1/wizard/sessions/" + edit.SessionID
	rec = app.upload(t, edit.SessionID, "photos", "max-2.png", []byte("\x89PNG second photo"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = app.do(t, http.MethodDelete, editBase+"/media/photos?key="+url.QueryEscape(photoRef), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, editBase+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[listinghttpmapper.SubmitResult](t, rec)
	assert.Equal(t, 1, updated.Uploaded)
	assert.Equal(t, 1, updated.Removed)
	require.Len(t, updated.Listing.Media.Photos, 1)
	assert.NotEqual(t, photoRef, updated.Listing.Media.Photos[0])
	assert.False(t, app.objects.Has(photoRef))

	rec = app.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `listings_object_store_calls_total{operation="upload",outcome="ok"} 2`)
}

func TestWizardErrors(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/v1/wizard/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))

	rec = app.do(t, http.MethodPost, "/v1/listings/missing/wizard", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/v1/listings/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "missing", decode[apierrors.ProblemDetail](t, rec).Extensions["identifier"])

	rec = app.do(t, http.MethodPost, "/v1/wizard/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := decode[listinghttpmapper.Session](t, rec).SessionID
	base := "/v1/wizard/sessions/" + sessionID

	rec = app.upload(t, sessionID, "videos", "a.mp4", []byte("data"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.upload(t, sessionID, "photos", "huge.jpg", bytes.Repeat([]byte("x"), 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = app.do(t, http.MethodPatch, base+"/draft", listinghttpmapper.DraftPatch{Type: ptr("horse")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPatch, base+"/draft", listinghttpmapper.DraftPatch{BirthDate: ptr("someday")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodDelete, base+"/media/photos", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResumeCreateSessionRestoresDraft(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/v1/wizard/sessions", listinghttpmapper.StartSession{SessionID: "resume-me"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = app.do(t, http.MethodPatch, "/v1/wizard/sessions/resume-me/draft", listinghttpmapper.DraftPatch{Title: ptr("Kept")})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/v1/wizard/sessions", listinghttpmapper.StartSession{SessionID: "resume-me"})
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decode[listinghttpmapper.Session](t, rec)
	assert.True(t, session.Restored)
	assert.Equal(t, "Kept", session.Draft.Title)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
