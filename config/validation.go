package config

import (
	"github.com/pageza/mealbyme/backend/internal/apperrors"
)

// requirement pairs a setting name with the value it must populate.
type requirement struct {
	name  string
	value func(*Config) string
}

var requirements = []requirement{
	{"db_host", func(c *Config) string { return c.DBHost }},
	{"db_user", func(c *Config) string { return c.DBUser }},
	{"db_password", func(c *Config) string { return c.DBPassword }},
	{"db_name", func(c *Config) string { return c.DBName }},
	{"jwt_secret", func(c *Config) string { return c.JWTSecret }},
	{"openai_api_key", func(c *Config) string { return c.OpenAIAPIKey }},
	{"openai_meal_plan_assistant_id", func(c *Config) string { return c.MealPlanAssistantID }},
	{"openai_recipe_assistant_id", func(c *Config) string { return c.RecipeAssistantID }},
	{"stripe_secret_key", func(c *Config) string { return c.StripeSecretKey }},
	{"stripe_webhook_secret", func(c *Config) string { return c.StripeWebhookSecret }},
	{"stripe_price_id", func(c *Config) string { return c.StripePriceID }},
}

// ValidateConfig returns a configuration error naming every required value
// that is missing. In CI the names are reported as environment variables.
func ValidateConfig(cfg *Config) error {
	ci := GetEnvironment() == CI

	var missing []string
	for _, req := range requirements {
		if req.value(cfg) != "" {
			continue
		}
		if ci {
			missing = append(missing, envName(req.name))
		} else {
			missing = append(missing, req.name)
		}
	}

	if len(missing) > 0 {
		return apperrors.Configuration(missing)
	}
	return nil
}
