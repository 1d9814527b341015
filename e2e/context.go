// Package e2e drives a running rollcall server through its public HTTP API.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Actor is a principal the scenarios act as.
type Actor struct {
	ID           string
	Name         string
	Role         string
	DepartmentID string
	Year         string
	Section      string
	Token        string
}

// TestContext is shared by every step package for one scenario.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	HTTPClient *http.Client

	CollegeID    string
	DepartmentID string
	Actors       map[string]*Actor
	Current      *Actor
	Values       map[string]string

	LastStatus int
	LastBody   []byte
}

func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    getenv("ROLLCALL_E2E_BASE_URL", "http://localhost:8080"),
		SigningKey: getenv("ROLLCALL_AUTH_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:     os.Getenv("ROLLCALL_AUTH_JWT_ISSUER"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset starts a scenario in a fresh college and department so runs do not
// see each other's sessions.
func (tc *TestContext) Reset() {
	tc.CollegeID = uuid.NewString()
	tc.DepartmentID = uuid.NewString()
	tc.Actors = map[string]*Actor{}
	tc.Values = map[string]string{}
	tc.Current = nil
	tc.LastStatus = 0
	tc.LastBody = nil
}

// AddActor mints a bearer token for a new principal in the scenario department.
func (tc *TestContext) AddActor(name, role, year, section string) error {
	_, err := tc.addActor(name, role, year, section)
	return err
}

func (tc *TestContext) addActor(name, role, year, section string) (*Actor, error) {
	a := &Actor{
		ID:           uuid.NewString(),
		Name:         name,
		Role:         role,
		DepartmentID: tc.DepartmentID,
		Year:         year,
		Section:      section,
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":           a.ID,
		"role":          role,
		"name":          name,
		"college_id":    tc.CollegeID,
		"department_id": tc.DepartmentID,
		"iat":           now.Unix(),
		"exp":           now.Add(time.Hour).Unix(),
	}
	if year != "" {
		claims["year"] = year
	}
	if section != "" {
		claims["section"] = section
	}
	if tc.Issuer != "" {
		claims["iss"] = tc.Issuer
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.SigningKey))
	if err != nil {
		return nil, fmt.Errorf("sign token for %s: %w", name, err)
	}
	a.Token = token
	tc.Actors[name] = a
	return a, nil
}

func (tc *TestContext) ActAs(name string) error {
	a, ok := tc.Actors[name]
	if !ok {
		return fmt.Errorf("unknown actor %q", name)
	}
	tc.Current = a
	return nil
}

// ActorID returns the principal id of a named actor, or "".
func (tc *TestContext) ActorID(name string) string {
	if a, ok := tc.Actors[name]; ok {
		return a.ID
	}
	return ""
}

func (tc *TestContext) SetValue(key, value string) { tc.Values[key] = value }

func (tc *TestContext) Value(key string) string { return tc.Values[key] }

func (tc *TestContext) LastResponseStatus() int { return tc.LastStatus }

func (tc *TestContext) LastResponseBody() []byte { return tc.LastBody }

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.Current != nil {
		req.Header.Set("Authorization", "Bearer "+tc.Current.Token)
	}
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.LastStatus = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	return err
}

// ResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.LastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing from response %s", field, tc.LastBody)
	}
	return v, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
