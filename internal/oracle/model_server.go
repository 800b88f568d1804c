package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ModelServer calls the sidecar that hosts the trained regression artifact.
type ModelServer struct {
	host   string
	path   string
	token  string
	client *http.Client
}

func NewModelServer(host, token string, client *http.Client) *ModelServer {
	if client == nil {
		client = http.DefaultClient
	}
	return &ModelServer{
		host:   strings.TrimRight(host, "/"),
		path:   "/predict",
		token:  token,
		client: client,
	}
}

// predictRow uses the training column names so the model pipeline can consume
// it as a one-row table.
type predictRow struct {
	Airline        string `json:"Airline"`
	DateOfJourney  string `json:"Date_of_Journey"`
	Source         string `json:"Source"`
	Destination    string `json:"Destination"`
	TotalStops     string `json:"Total_Stops"`
	AdditionalInfo string `json:"Additional_Info"`
	Routes         int    `json:"Routes"`
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error"`
}

func (m *ModelServer) Predict(ctx context.Context, f Features) (float64, error) {
	if m.host == "" {
		return 0, errors.New("model server: host missing")
	}

	b, err := json.Marshal(predictRow{
		Airline:        f.Airline,
		DateOfJourney:  f.Date,
		Source:         f.Source,
		Destination:    f.Destination,
		TotalStops:     f.TotalStops,
		AdditionalInfo: f.AdditionalInfo,
		Routes:         f.Routes,
	})
	if err != nil {
		return 0, fmt.Errorf("model server: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.host+m.path, bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("model server: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("model server: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return 0, fmt.Errorf("model server: decode response: %w", err)
	}
	if pr.Error != "" {
		return 0, fmt.Errorf("model server: %s", pr.Error)
	}
	if pr.Prediction == nil {
		return 0, errors.New("model server: response has no prediction")
	}
	return *pr.Prediction, nil
}
