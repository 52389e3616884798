// Package conf loads process configuration from the environment. The config
// is read once at startup and immutable for the process lifetime.
package conf

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/viper"
)

// Engine backend names accepted by WHISPER_ENGINE.
const (
	EngineFasterWhisper = "fasterwhisper"
	EngineWhisperCPP    = "whispercpp"
	EngineOpenAI        = "openai"
)

// Config holds the gateway's startup configuration.
type Config struct {
	Model       string `mapstructure:"model"`
	Device      string `mapstructure:"device"`
	ComputeType string `mapstructure:"compute_type"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`

	Engine     string `mapstructure:"engine"`
	PythonPath string `mapstructure:"python_path"`
	ModelDir   string `mapstructure:"model_dir"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
}

// Load reads the environment into a Config.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("model", "large-v3")
	v.SetDefault("device", "auto")
	v.SetDefault("compute_type", "float16")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("engine", EngineFasterWhisper)
	v.SetDefault("model_dir", "models")

	bindings := map[string]string{
		"model":           "WHISPER_MODEL",
		"device":          "DEVICE",
		"compute_type":    "COMPUTE_TYPE",
		"host":            "HOST",
		"port":            "PORT",
		"engine":          "WHISPER_ENGINE",
		"python_path":     "WHISPER_PYTHON",
		"model_dir":       "WHISPER_MODEL_DIR",
		"openai_api_key":  "OPENAI_API_KEY",
		"openai_base_url": "OPENAI_BASE_URL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Addr returns the bind address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
