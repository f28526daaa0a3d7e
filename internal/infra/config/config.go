// Package config provides application-wide configuration loaded from a YAML
// file plus BOATCHAT_* environment overrides. All fields have safe defaults so
// the binary runs locally without any setup beyond provider credentials.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings holds the full runtime configuration. It is read once at startup
// and never mutated afterwards; every component receives it by injection.
type Settings struct {
	Server          ServerSettings      `mapstructure:"server"`
	Logging         LoggingSettings     `mapstructure:"logging"`
	Auth            AuthSettings        `mapstructure:"auth"`
	AzureOpenAI     OpenAISettings      `mapstructure:"azure_openai"`
	Promptflow      PromptflowSettings  `mapstructure:"promptflow"`
	ChatHistory     *HistorySettings    `mapstructure:"chat_history"`
	UI              UISettings          `mapstructure:"ui"`
	UsePromptflow   bool                `mapstructure:"use_promptflow"`
	DefenderEnabled bool                `mapstructure:"defender_enabled"`
	SanitizeAnswer  bool                `mapstructure:"sanitize_answer"`
	DatasourceFile  string              `mapstructure:"datasource_file"`
	Datasource      *DatasourceSettings `mapstructure:"-"`
}

type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthSettings controls how the principal middleware surfaces identity.
// Verification happens upstream (reverse proxy / app service); JWTSecret is
// only used to read claims off a bearer token when the proxy headers are absent.
type AuthSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// OpenAISettings configures the completion provider.
type OpenAISettings struct {
	Endpoint      string   `mapstructure:"endpoint"`
	Key           string   `mapstructure:"key"`
	APIVersion    string   `mapstructure:"api_version"`
	Model         string   `mapstructure:"model"`
	SystemMessage string   `mapstructure:"system_message"`
	Temperature   float32  `mapstructure:"temperature"`
	MaxTokens     int      `mapstructure:"max_tokens"`
	TopP          float32  `mapstructure:"top_p"`
	StopSequence  []string `mapstructure:"stop_sequence"`
	Stream        bool     `mapstructure:"stream"`
}

// PromptflowSettings configures the flow-execution collaborator: the fallback
// endpoint/credential pair plus one dedicated pair per prompt category.
type PromptflowSettings struct {
	Endpoint           string  `mapstructure:"endpoint"`
	APIKey             string  `mapstructure:"api_key"`
	RequestFieldName   string  `mapstructure:"request_field_name"`
	ResponseFieldName  string  `mapstructure:"response_field_name"`
	CitationsFieldName string  `mapstructure:"citations_field_name"`
	ResponseTimeout    float64 `mapstructure:"response_timeout"`

	SuggestionEndpoint       string `mapstructure:"suggestion_endpoint"`
	SuggestionKey            string `mapstructure:"suggestion_key"`
	ValuePropositionEndpoint string `mapstructure:"value_proposition_endpoint"`
	ValuePropositionKey      string `mapstructure:"value_proposition_key"`
	WalkaroundEndpoint       string `mapstructure:"walkaround_endpoint"`
	WalkaroundKey            string `mapstructure:"walkaround_key"`
}

// Timeout returns the flow-execution request timeout as a Duration.
func (p PromptflowSettings) Timeout() time.Duration {
	return time.Duration(p.ResponseTimeout * float64(time.Second))
}

// HistorySettings configures the conversation store. A nil *HistorySettings
// means chat history is not configured and history routes report that.
type HistorySettings struct {
	DatabasePath   string `mapstructure:"database_path"`
	EnableFeedback bool   `mapstructure:"enable_feedback"`
}

// UISettings is served verbatim to the browser via /frontend_settings.
type UISettings struct {
	Title           string `mapstructure:"title"`
	Logo            string `mapstructure:"logo"`
	ChatLogo        string `mapstructure:"chat_logo"`
	ChatTitle       string `mapstructure:"chat_title"`
	ChatDescription string `mapstructure:"chat_description"`
	ShowShareButton bool   `mapstructure:"show_share_button"`
}

// Load reads configuration from an optional .env file, the named YAML config
// file (missing file is fine, defaults apply), and BOATCHAT_* env overrides.
func Load(path string) (*Settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOATCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if s.DatasourceFile != "" {
		ds, err := LoadDatasource(s.DatasourceFile)
		if err != nil {
			return nil, err
		}
		s.Datasource = ds
	}

	if err := validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("azure_openai.api_version", "2024-02-15-preview")
	v.SetDefault("azure_openai.system_message",
		"You are an AI assistant that helps people find information.")
	v.SetDefault("azure_openai.temperature", 0.0)
	v.SetDefault("azure_openai.max_tokens", 1000)
	v.SetDefault("azure_openai.top_p", 1.0)
	v.SetDefault("azure_openai.stream", true)
	v.SetDefault("promptflow.request_field_name", "query")
	v.SetDefault("promptflow.response_field_name", "reply")
	v.SetDefault("promptflow.citations_field_name", "documents")
	v.SetDefault("promptflow.response_timeout", 30.0)
}

func validate(s *Settings) error {
	if s.AzureOpenAI.Endpoint == "" {
		return fmt.Errorf("config: azure_openai.endpoint is required")
	}
	if s.AzureOpenAI.Model == "" {
		return fmt.Errorf("config: azure_openai.model is required")
	}
	if s.UsePromptflow && s.Promptflow.Endpoint == "" {
		return fmt.Errorf("config: promptflow.endpoint is required when use_promptflow is set")
	}
	return nil
}
