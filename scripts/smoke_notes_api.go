//go:build ignore

// Exercises the notes API of a running server:
//
//	JWT_SECRET=... go run scripts/smoke_notes_api.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
)

func baseURL() string {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:3000"
}

func token(org, user string) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    user,
		"org_id": org,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		color.Red("Failed to sign token: %v", err)
		os.Exit(1)
	}
	return signed
}

func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(method, path, bearer string, body interface{}) (int, []byte) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL()+path, bodyReader)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody
}

func expect(step string, got, want int, body []byte) {
	if got != want {
		color.Red("%s: status %d, want %d", step, got, want)
		prettyPrint(body)
		os.Exit(1)
	}
	color.Green("%s: %d", step, got)
}

func main() {
	color.Cyan("Notes API smoke test against %s\n", baseURL())
	alice := token("acme", "alice")
	mallory := token("globex", "mallory")

	color.Yellow("\n1. Health")
	code, body := sendRequest(http.MethodGet, "/health", "", nil)
	expect("health", code, http.StatusOK, body)
	prettyPrint(body)

	color.Yellow("\n2. Create note")
	code, body = sendRequest(http.MethodPost, "/api/notes", alice, map[string]interface{}{
		"title":      "Smoke test",
		"content":    "created by smoke_notes_api.go",
		"subject_id": "smoke-subject",
	})
	expect("create", code, http.StatusCreated, body)
	var created struct {
		Data struct {
			Id string `json:"id"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &created)
	noteId := created.Data.Id
	prettyPrint(body)

	color.Yellow("\n3. List by subject")
	code, body = sendRequest(http.MethodGet, "/api/notes?subject_id=smoke-subject", alice, nil)
	expect("list", code, http.StatusOK, body)
	prettyPrint(body)

	color.Yellow("\n4. Other org cannot read it")
	code, body = sendRequest(http.MethodGet, "/api/notes/"+noteId, mallory, nil)
	expect("cross-tenant show", code, http.StatusNotFound, body)

	color.Yellow("\n5. Update and clear subject")
	code, body = sendRequest(http.MethodPatch, "/api/notes/"+noteId, alice, map[string]interface{}{
		"title":      "Smoke test (edited)",
		"subject_id": "",
	})
	expect("update", code, http.StatusOK, body)
	prettyPrint(body)

	color.Yellow("\n6. Delete twice")
	code, body = sendRequest(http.MethodDelete, "/api/notes/"+noteId, alice, nil)
	expect("delete", code, http.StatusOK, body)
	code, body = sendRequest(http.MethodDelete, "/api/notes/"+noteId, alice, nil)
	expect("delete again", code, http.StatusNotFound, body)

	color.Cyan("\nAll steps passed")
}
