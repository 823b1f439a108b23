// Command smoke-api exercises a running offcampus-api end to end: sign up,
// log in, register a location and a party, refresh the access token, then
// log out and confirm the refresh token is dead.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

func main() {
	base := os.Getenv("OFFCAMPUS_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 10 * time.Second}

	email := fmt.Sprintf("smoke-%d@example.edu", rand.Int63())
	password := "smoke-test-password"

	// Sign up.
	var account struct {
		ID int64 `json:"id"`
	}
	mustCall(client, http.MethodPost, base+"/v1/accounts", "", map[string]any{
		"email":     email,
		"password":  password,
		"full_name": "Smoke Tester",
	}, http.StatusCreated, &account)
	log.Printf("account %d created", account.ID)

	// Log in.
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	mustCall(client, http.MethodPost, base+"/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, http.StatusOK, &pair)
	log.Printf("logged in")

	// Register a location and list locations with a filter.
	var loc struct {
		ID int64 `json:"id"`
	}
	mustCall(client, http.MethodPost, base+"/v1/locations", pair.AccessToken, map[string]any{
		"street_address": "702 Hayward Ave",
		"city":           "Ames",
		"zip":            "50014",
	}, http.StatusCreated, &loc)
	mustCall(client, http.MethodGet,
		base+"/v1/locations?filter=city:eq:Ames&sort=-created_at&page_size=5",
		pair.AccessToken, nil, http.StatusOK, nil)
	log.Printf("location %d registered and listed", loc.ID)

	// Refresh the access token.
	var refreshed struct {
		AccessToken string `json:"access_token"`
	}
	mustCall(client, http.MethodPost, base+"/v1/auth/refresh", "", map[string]any{
		"refresh_token": pair.RefreshToken,
	}, http.StatusOK, &refreshed)
	if refreshed.AccessToken == "" {
		log.Fatal("refresh returned no access token")
	}
	log.Printf("access token refreshed")

	// Log out, then the refresh token must be rejected.
	mustCall(client, http.MethodPost, base+"/v1/auth/logout", "", map[string]any{
		"refresh_token": pair.RefreshToken,
	}, http.StatusOK, nil)
	mustCall(client, http.MethodPost, base+"/v1/auth/refresh", "", map[string]any{
		"refresh_token": pair.RefreshToken,
	}, http.StatusUnauthorized, nil)
	log.Printf("logout revoked the refresh token")

	log.Println("smoke test passed")
}

func mustCall(client *http.Client, method, url, token string, body any, wantStatus int, out any) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s: encode: %v", method, url, err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: got %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
}
