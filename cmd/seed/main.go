// Seeds demo licenses through the admin API of a running license server.
// Usage: go run ./cmd/seed -base http://localhost:8080 -n 20
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "license server base URL")
	username := flag.String("user", "admin", "admin username")
	password := flag.String("pass", "admin", "admin password")
	count := flag.Int("n", 20, "number of demo licenses to create")
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())
	client := &http.Client{Timeout: 10 * time.Second}

	token, err := login(client, *baseURL, *username, *password)
	if err != nil {
		log.Fatal("login failed: ", err)
	}

	durations := []string{"", "30", "90", "365", "custom"}
	types := []string{"single", "multiple", "unlimited"}

	created := 0
	for i := 0; i < *count; i++ {
		payload := map[string]interface{}{
			"client_name":     gofakeit.Name(),
			"client_email":    gofakeit.Email(),
			"client_phone":    fmt.Sprintf("3%09d", gofakeit.Number(0, 999999999)),
			"product_name":    gofakeit.AppName(),
			"version":         gofakeit.AppVersion(),
			"license_type":    types[gofakeit.Number(0, len(types)-1)],
			"max_domains":     gofakeit.Number(1, 5),
			"duration_days":   durations[gofakeit.Number(0, len(durations)-1)],
			"custom_duration": gofakeit.Number(10, 400),
			"notes":           gofakeit.Sentence(8),
		}
		if err := createLicense(client, *baseURL, token, payload); err != nil {
			log.Printf("create %d failed: %v", i+1, err)
			continue
		}
		created++
	}

	fmt.Printf("Created %d demo licenses\n", created)
}

func login(client *http.Client, baseURL, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(baseURL+"/api/admin/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", err
	}
	if parsed.Data.Token == "" {
		return "", fmt.Errorf("no token in response")
	}
	return parsed.Data.Token, nil
}

func createLicense(client *http.Client, baseURL, token string, payload map[string]interface{}) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/admin/licenses", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
