package permissions

import "github.com/goliatone/go-permissions/service"

// Re-export the service package entry point so consumers can do
// `permissions.New(...)` without importing internal wiring helpers.
type (
	Service   = service.Service
	Config    = service.Config
	BunConfig = service.BunConfig
	Commands  = service.Commands
	Queries   = service.Queries
)

// New constructs the go-permissions runtime using the provided configuration.
func New(cfg Config) *Service {
	return service.New(cfg)
}

// NewBun constructs the runtime with every store backed by one bun.DB.
func NewBun(cfg BunConfig) (*Service, error) {
	return service.NewBun(cfg)
}
