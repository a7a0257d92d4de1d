// Package config loads runtime settings from the environment and materializes
// the application's configuration file from its template.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults for a Lambda deployment. /tmp is the only writable location.
const (
	DefaultEnvironment  = "production"
	DefaultTemplatePath = "configs/config.template.json"
	DefaultConfigPath   = "/tmp/config.production.json"
	DefaultContentPath  = "/tmp/cms-content"
	DefaultThemeSource  = "content/themes/casper"
	DefaultThemeName    = "casper"
	DefaultSiteURL      = "https://your-cms-site.vercel.app"

	// AdminPath is appended to the site URL when no admin URL is supplied.
	AdminPath = "/ghost"
)

// Placeholder maps a template token to the environment variable supplying it.
type Placeholder struct {
	Token string
	Env   string
}

// Placeholders is the fixed set of tokens recognized in the template.
var Placeholders = []Placeholder{
	{Token: "DB_HOST", Env: "DATABASE_HOST"},
	{Token: "DB_PORT", Env: "DATABASE_PORT"},
	{Token: "DB_USER", Env: "DATABASE_USER"},
	{Token: "DB_PASS", Env: "DATABASE_PASSWORD"},
	{Token: "DB_NAME", Env: "DATABASE_NAME"},
	{Token: "CLOUDINARY_CLOUD_NAME", Env: "CLOUDINARY_CLOUD_NAME"},
	{Token: "CLOUDINARY_API_KEY", Env: "CLOUDINARY_API_KEY"},
	{Token: "CLOUDINARY_API_SECRET", Env: "CLOUDINARY_API_SECRET"},
	{Token: "REDIS_HOST", Env: "REDIS_HOST"},
	{Token: "REDIS_PORT", Env: "REDIS_PORT"},
	{Token: "REDIS_PASSWORD", Env: "REDIS_PASSWORD"},
	{Token: "MAIL_SERVICE", Env: "MAIL_SERVICE"},
	{Token: "MAIL_USER", Env: "MAIL_USER"},
	{Token: "MAIL_PASS", Env: "MAIL_PASSWORD"},
}

// Site holds the values the application needs at boot that were previously
// exported as process-wide environment variables.
type Site struct {
	URL         string
	AdminURL    string
	ContentPath string
}

// Settings is the immutable runtime configuration of one warm process.
type Settings struct {
	Environment  string
	LogLevel     string
	TemplatePath string
	ConfigPath   string
	ContentPath  string
	ThemeSource  string
	ThemeName    string
	SiteURL      string
	AdminURL     string
	StrictConfig bool

	// Values holds placeholder token -> environment value.
	Values map[string]string
}

// Load reads settings from the environment. A .env file in the working
// directory is honoured for local runs; its absence is not an error.
func Load() Settings {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	_ = v.BindEnv("SITE_URL", "SITE_URL", "GHOST_URL")

	v.SetDefault("ENVIRONMENT", DefaultEnvironment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CONFIG_TEMPLATE_PATH", DefaultTemplatePath)
	v.SetDefault("CONFIG_PATH", DefaultConfigPath)
	v.SetDefault("CONTENT_PATH", DefaultContentPath)
	v.SetDefault("THEME_SOURCE_PATH", DefaultThemeSource)
	v.SetDefault("THEME_NAME", DefaultThemeName)
	v.SetDefault("SITE_URL", DefaultSiteURL)
	v.SetDefault("STRICT_CONFIG", false)
	v.SetDefault("DATABASE_PORT", "3306")
	v.SetDefault("REDIS_PORT", "6379")

	values := make(map[string]string, len(Placeholders))
	for _, p := range Placeholders {
		values[p.Token] = v.GetString(p.Env)
	}

	return Settings{
		Environment:  v.GetString("ENVIRONMENT"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		TemplatePath: v.GetString("CONFIG_TEMPLATE_PATH"),
		ConfigPath:   v.GetString("CONFIG_PATH"),
		ContentPath:  v.GetString("CONTENT_PATH"),
		ThemeSource:  v.GetString("THEME_SOURCE_PATH"),
		ThemeName:    v.GetString("THEME_NAME"),
		SiteURL:      v.GetString("SITE_URL"),
		AdminURL:     v.GetString("ADMIN_URL"),
		StrictConfig: v.GetBool("STRICT_CONFIG"),
		Values:       values,
	}
}

// IsProduction reports whether error responses must omit stack traces.
func (s Settings) IsProduction() bool {
	return strings.EqualFold(s.Environment, DefaultEnvironment)
}

// Site derives the boot-time site values.
func (s Settings) Site() Site {
	url := s.SiteURL
	if url == "" {
		url = DefaultSiteURL
	}
	admin := s.AdminURL
	if admin == "" {
		admin = strings.TrimSuffix(url, "/") + AdminPath
	}
	return Site{
		URL:         url,
		AdminURL:    admin,
		ContentPath: s.ContentPath,
	}
}
