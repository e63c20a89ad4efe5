package endpoints

import (
	"github.com/promptvault/promptvault/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct{}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health
		&HealthEndpoint{},

		// Entry CRUD
		&ListEntriesEndpoint{},
		&GetEntryEndpoint{},
		&CreateEntryEndpoint{},
		&UpdateEntryEndpoint{},
		&DeleteEntryEndpoint{},
		&PurgeEntriesEndpoint{},
		&EntryThumbnailEndpoint{},
		&EntryVersionsEndpoint{},

		// Assembly
		&AssembleEndpoint{},

		// Tag index
		&ListTagsEndpoint{},
		&TidyTagsEndpoint{},

		// Bundles
		&ExportEndpoint{},
		&ImportEndpoint{},
	}
}
