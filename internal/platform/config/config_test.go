package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"API_FIRESTORE_PROJECT_ID":           "guest-orders-dev",
		"API_SERVICES_CATALOG_BASE_URL":      "https://catalog.example.com",
		"API_SERVICES_ORGANIZATION_BASE_URL": "https://organizations.example.com",
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.Environment)
	}
	if cfg.PubSub.ProjectID != "guest-orders-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.Topic != defaultPubSubTopic {
		t.Errorf("expected default topic %s, got %s", defaultPubSubTopic, cfg.PubSub.Topic)
	}
	if cfg.Pagination.DefaultOffset != 0 {
		t.Errorf("unexpected default offset: %d", cfg.Pagination.DefaultOffset)
	}
	if cfg.Pagination.DefaultPageSize != 20 {
		t.Errorf("unexpected default page size: %d", cfg.Pagination.DefaultPageSize)
	}
	if cfg.Pagination.MaxPageSize != 1000 {
		t.Errorf("unexpected max page size: %d", cfg.Pagination.MaxPageSize)
	}
	if cfg.Services.Timeout != defaultGatewayWait {
		t.Errorf("unexpected gateway timeout: %s", cfg.Services.Timeout)
	}
	if cfg.CustomFields != nil {
		t.Errorf("expected no custom fields, got %v", cfg.CustomFields)
	}
}

func TestLoadValidatesRequiredFields(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}

	fields := validation.Fields()
	want := map[string]bool{
		"Firestore.ProjectID":          false,
		"Services.CatalogBaseURL":      false,
		"Services.OrganizationBaseURL": false,
	}
	for _, field := range fields {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %s in validation fields %v", field, fields)
		}
	}
}

func TestLoadRejectsInvalidPaginationCeiling(t *testing.T) {
	env := baseEnv()
	env["API_PAGINATION_DEFAULT_PAGE_SIZE"] = "50"
	env["API_PAGINATION_MAX_PAGE_SIZE"] = "10"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestLoadParsesCustomFields(t *testing.T) {
	env := baseEnv()
	env["API_GUEST_ORDER_CUSTOM_FIELDS"] = `[{"name":"giftWrap","type":"boolean"},{"name":"deliveryNote","required":true}]`

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.CustomFields) != 2 {
		t.Fatalf("expected 2 custom fields, got %d", len(cfg.CustomFields))
	}
	if cfg.CustomFields[0].Name != "giftWrap" || cfg.CustomFields[0].Type != "boolean" {
		t.Errorf("unexpected first custom field %#v", cfg.CustomFields[0])
	}
	if cfg.CustomFields[1].Type != "string" || !cfg.CustomFields[1].Required {
		t.Errorf("expected string/required second field, got %#v", cfg.CustomFields[1])
	}
}

func TestLoadRejectsMalformedCustomFields(t *testing.T) {
	env := baseEnv()
	env["API_GUEST_ORDER_CUSTOM_FIELDS"] = `{"name":"notAnArray"`

	if _, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile("")); err == nil {
		t.Fatal("expected error for malformed custom fields")
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	env := baseEnv()
	env["API_AUTH_ENC_SECRET"] = "sm://projects/demo/secrets/enc/versions/latest"
	env["API_AUTH_SIGN_SECRET"] = "plain-value"

	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		if ref != "secret://projects/demo/secrets/enc/versions/latest" {
			t.Fatalf("unexpected ref %q", ref)
		}
		return "resolved-enc", nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Auth.EncSecret != "resolved-enc" {
		t.Errorf("expected resolved secret, got %q", cfg.Auth.EncSecret)
	}
	if cfg.Auth.SignSecret != "plain-value" {
		t.Errorf("expected plain value untouched, got %q", cfg.Auth.SignSecret)
	}
}

func TestLoadSecretResolutionFailure(t *testing.T) {
	env := baseEnv()
	env["API_AUTH_ENC_SECRET"] = "secret://projects/demo/secrets/enc/versions/latest"

	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		return "", errors.New("boom")
	})

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T: %v", err, err)
	}
}

func TestLoadRequiredSecretsMissing(t *testing.T) {
	_, err := Load(context.Background(),
		WithEnvMap(baseEnv()),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Auth.EncSecret"),
	)

	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T: %v", err, err)
	}
	if names := missing.Names(); len(names) != 1 || names[0] != "Auth.EncSecret" {
		t.Errorf("unexpected missing secret names %v", names)
	}
	if redacted := missing.RedactedNames(); len(redacted) != 1 || redacted[0] == "Auth.EncSecret" {
		t.Errorf("expected redacted name, got %v", redacted)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "API_FIRESTORE_PROJECT_ID=dotenv-project\n" +
		"API_SERVICES_CATALOG_BASE_URL=https://catalog.local\n" +
		"API_SERVICES_ORGANIZATION_BASE_URL=https://orgs.local\n" +
		"API_SERVER_PORT=9090\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firestore.ProjectID != "dotenv-project" {
		t.Errorf("expected dotenv project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port from dotenv, got %s", cfg.Server.Port)
	}
}

func TestEnvironmentValuesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SHARED_KEY=from-dotenv\nDOTENV_ONLY=yes\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	values, err := EnvironmentValues(WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"SHARED_KEY": "from-map"}))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}
	if values["SHARED_KEY"] != "from-map" {
		t.Errorf("expected explicit map to win, got %q", values["SHARED_KEY"])
	}
	if values["DOTENV_ONLY"] != "yes" {
		t.Errorf("expected dotenv value, got %q", values["DOTENV_ONLY"])
	}
}

func TestLoadIdempotencyDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Errorf("unexpected idempotency header: %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 24*time.Hour {
		t.Errorf("unexpected idempotency ttl: %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.CleanupInterval != time.Hour {
		t.Errorf("unexpected cleanup interval: %s", cfg.Idempotency.CleanupInterval)
	}
	if cfg.Idempotency.CleanupBatchSize != 100 {
		t.Errorf("unexpected cleanup batch size: %d", cfg.Idempotency.CleanupBatchSize)
	}
}

func TestLoadInternalAuthIssuerList(t *testing.T) {
	env := baseEnv()
	env["API_INTERNAL_AUTH_JWKS_URL"] = "https://issuer.example.com/jwks"
	env["API_INTERNAL_AUTH_AUDIENCE"] = "guest-orders"
	env["API_INTERNAL_AUTH_ISSUERS"] = "https://issuer.example.com, https://alt.example.com ,"

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.InternalAuth.JWKSURL != "https://issuer.example.com/jwks" {
		t.Errorf("unexpected jwks url: %s", cfg.InternalAuth.JWKSURL)
	}
	if cfg.InternalAuth.Audience != "guest-orders" {
		t.Errorf("unexpected audience: %s", cfg.InternalAuth.Audience)
	}
	want := []string{"https://issuer.example.com", "https://alt.example.com"}
	if len(cfg.InternalAuth.Issuers) != len(want) {
		t.Fatalf("expected %d issuers, got %v", len(want), cfg.InternalAuth.Issuers)
	}
	for i, issuer := range want {
		if cfg.InternalAuth.Issuers[i] != issuer {
			t.Errorf("issuer %d: expected %s, got %s", i, issuer, cfg.InternalAuth.Issuers[i])
		}
	}
}
