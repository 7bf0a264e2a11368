package listingserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers of every API section.
type ApiHandleFunctions struct {
	ListingAPI ListingAPI
	WizardAPI  WizardAPI
	// Metrics serves the Prometheus exposition. Nil disables /metrics.
	Metrics http.Handler
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc is the default handler for unimplemented routes.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	routes := []Route{
		{"Healthz", http.MethodGet, "/healthz", Healthz},
		{"GetListing", http.MethodGet, "/v1/listings/:listingId", handleFunctions.ListingAPI.GetListing},
		{"StartEditSession", http.MethodPost, "/v1/listings/:listingId/wizard", handleFunctions.WizardAPI.StartEditSession},
		{"StartCreateSession", http.MethodPost, "/v1/wizard/sessions", handleFunctions.WizardAPI.StartCreateSession},
		{"GetSession", http.MethodGet, "/v1/wizard/sessions/:sessionId", handleFunctions.WizardAPI.GetSession},
		{"DiscardSession", http.MethodDelete, "/v1/wizard/sessions/:sessionId", handleFunctions.WizardAPI.DiscardSession},
		{"PatchDraft", http.MethodPatch, "/v1/wizard/sessions/:sessionId/draft", handleFunctions.WizardAPI.PatchDraft},
		{"AddAttachment", http.MethodPost, "/v1/wizard/sessions/:sessionId/media/:group", handleFunctions.WizardAPI.AddAttachment},
		{"RemoveAttachment", http.MethodDelete, "/v1/wizard/sessions/:sessionId/media/:group", handleFunctions.WizardAPI.RemoveAttachment},
		{"NextStep", http.MethodPost, "/v1/wizard/sessions/:sessionId/next", handleFunctions.WizardAPI.NextStep},
		{"PreviousStep", http.MethodPost, "/v1/wizard/sessions/:sessionId/back", handleFunctions.WizardAPI.PreviousStep},
		{"SubmitSession", http.MethodPost, "/v1/wizard/sessions/:sessionId/submit", handleFunctions.WizardAPI.SubmitSession},
	}
	if handleFunctions.Metrics != nil {
		routes = append(routes, Route{"Metrics", http.MethodGet, "/metrics", gin.WrapH(handleFunctions.Metrics)})
	}
	return routes
}

// Healthz reports liveness.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
