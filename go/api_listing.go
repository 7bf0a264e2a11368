package listingserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	listinghttpmapper "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/http/mapper"
	listingsapp "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application"
	listingsports "github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
	apierrors "github.com/Apurer/go-gin-listings-api/internal/shared/errors"
)

// ListingAPI serves persisted listings.
type ListingAPI struct {
	repo listingsports.Repository
}

// NewListingAPI wires the resource backend.
func NewListingAPI(repo listingsports.Repository) ListingAPI {
	return ListingAPI{repo: repo}
}

// Get /v1/listings/:listingId
// Find a listing by ID
func (api *ListingAPI) GetListing(c *gin.Context) {
	listingID := c.Param("listingId")
	listing, err := api.repo.GetByID(c.Request.Context(), listingID)
	if err != nil {
		if listingsapp.IsNotFound(err) {
			respondProblem(c, apierrors.NewNotFoundProblem("listing", listingID))
			return
		}
		respondError(c, err)
		return
	}
	if modified := listing.Metadata.LastModified(); !modified.IsZero() {
		c.Header("Last-Modified", modified.UTC().Format(http.TimeFormat))
	}
	c.JSON(http.StatusOK, listinghttpmapper.FromProjection(listing))
}
