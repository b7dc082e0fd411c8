package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LEAD_GATEWAY", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LeadGateway != "formrelay" {
		t.Fatalf("expected formrelay gateway by default, got %s", cfg.LeadGateway)
	}
	if cfg.LeadRelayURL != "https://formsubmit.co/ajax" {
		t.Fatalf("unexpected relay url %s", cfg.LeadRelayURL)
	}
	if !cfg.ChatPacing {
		t.Fatalf("expected chat pacing enabled by default")
	}
	if cfg.ChatOptimisticAck {
		t.Fatalf("expected confirmed acknowledgement by default")
	}
	if cfg.ChatSessionIdleTimeout != 30*time.Minute {
		t.Fatalf("unexpected idle timeout %s", cfg.ChatSessionIdleTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.IsProduction() {
		t.Fatalf("development must not be production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LEAD_GATEWAY", " SendGrid ")
	t.Setenv("LEAD_RECIPIENT", "sales@example.com")
	t.Setenv("LEAD_RELAY_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("FORM_RATE_LIMIT_PER_MINUTE", "25")
	t.Setenv("CHAT_PACING", "false")
	t.Setenv("CHAT_OPTIMISTIC_ACK", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.LeadGateway != "sendgrid" {
		t.Fatalf("expected normalized gateway, got %q", cfg.LeadGateway)
	}
	if cfg.LeadRecipient != "sales@example.com" {
		t.Fatalf("unexpected recipient %s", cfg.LeadRecipient)
	}
	if cfg.LeadRelayTimeout != 3*time.Second {
		t.Fatalf("unexpected relay timeout %s", cfg.LeadRelayTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.FormRateLimitPerMinute != 25 {
		t.Fatalf("unexpected rate limit %d", cfg.FormRateLimitPerMinute)
	}
	if cfg.ChatPacing || !cfg.ChatOptimisticAck {
		t.Fatalf("expected chat overrides applied")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("FORM_RATE_LIMIT_PER_MINUTE", "lots")
	t.Setenv("REDIS_TLS", "maybe")
	t.Setenv("CHAT_SESSION_IDLE_TIMEOUT", "soon")
	cfg := Load()
	if cfg.FormRateLimitPerMinute != 10 {
		t.Fatalf("expected default rate limit, got %d", cfg.FormRateLimitPerMinute)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls default false")
	}
	if cfg.ChatSessionIdleTimeout != 30*time.Minute {
		t.Fatalf("expected default idle timeout, got %s", cfg.ChatSessionIdleTimeout)
	}
}
