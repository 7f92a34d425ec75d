package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestOnboardCommand_Success(t *testing.T) {
	resetViper()
	resetCommandFlags(onboardCmd)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/tenants" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got: %s", r.Header.Get("Content-Type"))
		}

		var reqBody map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if reqBody["tenant_id"] != "shop-1" {
			t.Errorf("expected tenant_id=shop-1, got %v", reqBody["tenant_id"])
		}
		if reqBody["name"] != "Shop One" {
			t.Errorf("expected name=Shop One, got %v", reqBody["name"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"tenant_id": "shop-1",
			"name":      "Shop One",
			"api_key":   "cf_secret_key",
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"onboard", "--tenant-id", "shop-1", "--name", "Shop One"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Tenant onboarded") {
		t.Errorf("expected success message, got: %s", output)
	}
	if !strings.Contains(output, "cf_secret_key") {
		t.Errorf("expected API key in output, got: %s", output)
	}
	if !strings.Contains(output, "not shown again") {
		t.Errorf("expected one-time key warning, got: %s", output)
	}
}

func TestOnboardCommand_WithDelayAndProvider(t *testing.T) {
	resetViper()
	resetCommandFlags(onboardCmd)

	var capturedDelay float64
	var capturedProvider string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		json.NewDecoder(r.Body).Decode(&reqBody)
		if delay, ok := reqBody["delay_minutes"]; ok {
			capturedDelay = delay.(float64)
		}
		if provider, ok := reqBody["provider"]; ok {
			capturedProvider = provider.(string)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"tenant_id": "shop-2",
			"name":      "Shop Two",
			"api_key":   "cf_other_key",
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"onboard", "--tenant-id", "shop-2", "--name", "Shop Two",
		"--delay", "30", "--provider", "EVOLUTION", "--provider-token", "evo-secret"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if capturedDelay != 30 {
		t.Errorf("expected delay_minutes=30, got %v", capturedDelay)
	}
	if capturedProvider != "EVOLUTION" {
		t.Errorf("expected provider=EVOLUTION, got %s", capturedProvider)
	}
}

func TestOnboardCommand_MissingTenantID(t *testing.T) {
	resetViper()
	resetCommandFlags(onboardCmd)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called when validation fails")
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"onboard", "--name", "Shop One"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "--tenant-id is required") {
		t.Errorf("expected tenant-id required error, got: %s", output)
	}
}

func TestOnboardCommand_MissingName(t *testing.T) {
	resetViper()
	resetCommandFlags(onboardCmd)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called when validation fails")
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"onboard", "--tenant-id", "shop-1"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "--name is required") {
		t.Errorf("expected name required error, got: %s", output)
	}
}

func TestOnboardCommand_DuplicateTenant(t *testing.T) {
	resetViper()
	resetCommandFlags(onboardCmd)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("tenant already exists"))
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"onboard", "--tenant-id", "shop-1", "--name", "Shop One"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Error (409)") {
		t.Errorf("expected 409 error in output, got: %s", output)
	}
}

func TestOnboardCommand_ServerError(t *testing.T) {
	resetViper()
	resetCommandFlags(onboardCmd)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"onboard", "--tenant-id", "shop-1", "--name", "Shop One"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Error (500)") {
		t.Errorf("expected error status in output, got: %s", output)
	}
}
