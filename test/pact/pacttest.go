//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "listings-api"
	ConsumerName = "listing-wizard"

	StateListingsBaseline = "listings baseline"
	StateListingExists    = "listing lst-pact exists"
	StateListingMissing   = "no listing lst-missing"
)

const (
	ExistingListingID = "lst-pact"
	MissingListingID  = "lst-missing"
	ExampleOwnerID    = "owner-pact"
	ExampleSessionID  = "pact-session"
)

const (
	exampleTitle     = "Golden retriever litter"
	examplePhotoRef  = "listings/photos/pact-photo.jpg"
	exampleBreedID   = "golden-retriever"
	examplePuppyCnt  = 6
	exampleLitterTyp = "litter"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the wizard consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleListing describes the listing seeded for the exists state.
type ExampleListing struct {
	ID       string
	OwnerID  string
	Type     string
	Title    string
	BreedID  string
	Puppies  int
	PhotoRef string
}

// ExampleListingPayload provides stable test data for listing interactions.
func ExampleListingPayload() ExampleListing {
	return ExampleListing{
		ID:       ExistingListingID,
		OwnerID:  ExampleOwnerID,
		Type:     exampleLitterTyp,
		Title:    exampleTitle,
		BreedID:  exampleBreedID,
		Puppies:  examplePuppyCnt,
		PhotoRef: examplePhotoRef,
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
