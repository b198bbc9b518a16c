package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Reader.BaseURL != "https://r.jina.ai/" {
		t.Errorf("reader base URL = %q", cfg.Reader.BaseURL)
	}
	if cfg.DeepSeek.Model != "deepseek-reasoner" {
		t.Errorf("model = %q", cfg.DeepSeek.Model)
	}
	if cfg.DeepSeek.BaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("deepseek base URL = %q", cfg.DeepSeek.BaseURL)
	}
	if !cfg.OpenAI.EnableFallback {
		t.Error("fallback providers disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("PORT", "9090")
	t.Setenv("DEEPSEEK_MODEL", "deepseek-chat")
	t.Setenv("ROAST_ENABLE_FALLBACK_PROVIDERS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.DeepSeek.Model != "deepseek-chat" {
		t.Errorf("model = %q", cfg.DeepSeek.Model)
	}
	if cfg.OpenAI.EnableFallback || cfg.Gemini.EnableFallback {
		t.Error("fallback providers still enabled")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Reader:   ReaderConfig{BaseURL: "https://r.jina.ai/"},
			DeepSeek: DeepSeekConfig{APIKey: "sk-test", Model: "deepseek-reasoner"},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.DeepSeek.APIKey = "" }},
		{"missing model", func(c *Config) { c.DeepSeek.Model = "" }},
		{"missing reader URL", func(c *Config) { c.Reader.BaseURL = "" }},
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
