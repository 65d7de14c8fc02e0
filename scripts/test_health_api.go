package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{} // no timeout, generation can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	failures := 0

	// 1. Metrics snapshot
	color.Cyan("=== GET /health/v1/metrics ===")
	resp, body, err := sendRequest("GET", "/health/v1/metrics", nil)
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)
	if resp.StatusCode != http.StatusOK {
		color.Red("Expected 200, got %d", resp.StatusCode)
		failures++
	}

	// 2. Ingest a small document
	color.Cyan("=== POST /health/v1/documents ===")
	resp, body, err = sendRequest("POST", "/health/v1/documents", map[string]interface{}{
		"source":  "smoke-test.md",
		"title":   "Smoke Test Guide",
		"content": "Adults should sleep seven to nine hours per night. Walking 10000 steps a day supports heart health.",
	})
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)
	if resp.StatusCode != http.StatusAccepted {
		color.Red("Expected 202, got %d", resp.StatusCode)
		failures++
	}

	// 3. Run a pipeline pass with explicit vitals
	color.Cyan("=== POST /health/v1/recommendation ===")
	resp, body, err = sendRequest("POST", "/health/v1/recommendation", map[string]interface{}{
		"heart_rate":  75,
		"sleep_hours": 7.5,
		"steps":       8500,
	})
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)
	if resp.StatusCode != http.StatusOK {
		color.Red("Expected 200, got %d", resp.StatusCode)
		failures++
	}

	var envelope struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	json.Unmarshal(body, &envelope)

	// 4. Poll the session
	if envelope.Data.SessionID != "" {
		color.Cyan("=== GET /health/v1/sessions/%s ===", envelope.Data.SessionID)
		resp, body, err = sendRequest("GET", "/health/v1/sessions/"+envelope.Data.SessionID, nil)
		if err != nil {
			color.Red("Request failed: %v", err)
			os.Exit(1)
		}
		prettyPrint(body)
		if resp.StatusCode != http.StatusOK {
			color.Red("Expected 200, got %d", resp.StatusCode)
			failures++
		}
	}

	if failures > 0 {
		color.Red("%d check(s) failed", failures)
		os.Exit(1)
	}
	color.Green("All checks passed")
}
