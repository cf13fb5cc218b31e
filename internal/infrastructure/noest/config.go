package noest

import "errors"

// Config holds configuration for the Noest Express API
type Config struct {
	// APIToken is the account API token from the Noest dashboard
	APIToken string
	// UserGUID identifies the Noest account the token belongs to
	UserGUID string
	// APIBaseURL is the base URL for the Noest API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// ProductionAPIURL is the production API endpoint
const ProductionAPIURL = "https://app.noest-dz.com"

// Errors for Noest configuration
var (
	ErrConfigMissingToken = errors.New("noest: api token is required")
	ErrConfigMissingGUID  = errors.New("noest: user guid is required")
)

// NewConfig creates a new Noest configuration with defaults
func NewConfig(apiToken, userGUID string) *Config {
	return &Config{
		APIToken:       apiToken,
		UserGUID:       userGUID,
		APIBaseURL:     ProductionAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Noest configuration
func (c *Config) Validate() error {
	if c.APIToken == "" {
		return ErrConfigMissingToken
	}
	if c.UserGUID == "" {
		return ErrConfigMissingGUID
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = ProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
