package health

import (
	"fmt"
	"time"

	"github.com/hellofresh/health-go/v5"
	healthHTTP "github.com/hellofresh/health-go/v5/checks/http"
	"github.com/shopstream/storefront/internal/config"
)

// NewHealthHandler reports whether the client can reach the shop gateway,
// which is the only dependency this process has.
func NewHealthHandler(cfg *config.Config) (*health.Health, error) {

	h, err := health.New(
		health.WithComponent(health.Component{

			Name:    "storefront",
			Version: "1.0.0",
		}),
		health.WithSystemInfo(),
		health.WithChecks(
			health.Config{
				Name:      "gateway",
				Timeout:   3 * time.Second,
				SkipOnErr: false,
				Check: healthHTTP.New(healthHTTP.Config{
					URL: cfg.Gateway.BaseURL,
				}),
			},
		),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}
