package api

import (
	"context"

	"github.com/Autilos/r107-garage-hub/app/auth"
	"github.com/Autilos/r107-garage-hub/app/database"
	"github.com/Autilos/r107-garage-hub/app/ingest"
)

type AuthorizerInterface interface {
	Authorize(ctx context.Context, cronHeader, authHeader string) error
}

var _ AuthorizerInterface = (*auth.Authorizer)(nil)

type PipelineInterface interface {
	Run(ctx context.Context) (*ingest.Stats, error)
}

var _ PipelineInterface = (*ingest.Pipeline)(nil)

type ReclassifierInterface interface {
	Run(ctx context.Context) (*ingest.ReclassifyStats, error)
}

var _ ReclassifierInterface = (*ingest.Reclassifier)(nil)

type Handler struct {
	authorizer   AuthorizerInterface
	identity     auth.IdentityClient
	pipeline     PipelineInterface
	reclassifier ReclassifierInterface
	sourceRepo   database.SourceRepository
	listingRepo  database.ListingRepository
}
