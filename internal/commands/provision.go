package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"seedkeeper/internal/config"
	"seedkeeper/internal/models"
)

// Provision reads an envelope from path and submits it to a running
// service at cfg.APIAddr.
func Provision(path string, cfg *config.Config, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read envelope: %w", err)
	}

	reqBody, err := json.Marshal(models.DecryptSeedRequest{EncryptedSeed: strings.TrimSpace(string(data))})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("http://%s/decrypt-seed", dialAddr(cfg.APIAddr))
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to call API: %w. Is the server running?", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var result models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Error == "" {
			return fmt.Errorf("provisioning failed (Status: %d)", resp.StatusCode)
		}
		return fmt.Errorf("provisioning failed (Status: %d): %s", resp.StatusCode, result.Error)
	}

	var result models.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Seed provisioned (status: %s)\n", result.Status)
	return nil
}

// dialAddr turns a listen address such as ":8080" into one a client can dial.
func dialAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
