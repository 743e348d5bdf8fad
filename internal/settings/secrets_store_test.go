package settings

import (
	"path/filepath"
	"testing"
)

func TestSecretsStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store := NewSecretsStore(filepath.Join(t.TempDir(), "secrets.json"))

	if _, ok, err := store.APIKey("openai"); err != nil || ok {
		t.Fatalf("fresh store APIKey ok=%v err=%v, want absent", ok, err)
	}

	if err := store.SetAPIKey("openai", "sk-test-123"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	key, ok, err := store.APIKey("openai")
	if err != nil || !ok || key != "sk-test-123" {
		t.Fatalf("APIKey=%q ok=%v err=%v", key, ok, err)
	}

	if err := store.ClearAPIKey("openai"); err != nil {
		t.Fatalf("ClearAPIKey: %v", err)
	}
	if _, ok, _ := store.APIKey("openai"); ok {
		t.Fatalf("key survived clear")
	}
}

func TestSecretsStore_SeparateProviders(t *testing.T) {
	t.Parallel()

	store := NewSecretsStore(filepath.Join(t.TempDir(), "secrets.json"))
	if err := store.SetAPIKey("openai", "sk-a"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := store.SetAPIKey("anthropic", "sk-b"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	if key, _, _ := store.APIKey("openai"); key != "sk-a" {
		t.Fatalf("openai key=%q, want sk-a", key)
	}
	if key, _, _ := store.APIKey("anthropic"); key != "sk-b" {
		t.Fatalf("anthropic key=%q, want sk-b", key)
	}
}

func TestSecretsStore_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	store := NewSecretsStore(filepath.Join(t.TempDir(), "secrets.json"))
	if err := store.SetAPIKey("", "sk"); err == nil {
		t.Fatalf("SetAPIKey with empty provider succeeded")
	}
	if err := store.SetAPIKey("openai", "  "); err == nil {
		t.Fatalf("SetAPIKey with blank key succeeded")
	}
	if _, _, err := store.APIKey(""); err == nil {
		t.Fatalf("APIKey with empty provider succeeded")
	}
}
