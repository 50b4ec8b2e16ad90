package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

type Client struct {
	CollectorURL string
	HttpClient   *http.Client
}

func NewClient(collectorURL string) *Client {
	return &Client{
		CollectorURL: collectorURL,
		HttpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SubmitSummary pushes one algorithm summary to the collector API.
func (c *Client) SubmitSummary(summary *sweeptypes.Summary) error {
	jsonValue, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	endpoint := fmt.Sprintf("%s/summaries", c.CollectorURL)
	req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(jsonValue))
	if err != nil {
		return fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit summary to collector API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("collector API returned non-201 status: %v", resp.Status)
	}

	log.Printf("Submitted %s summary to %s", summary.Algorithm, c.CollectorURL)
	return nil
}

// GetCollectorURL reads COLLECTOR_URL, falling back to a local collector.
func GetCollectorURL() string {
	if url := os.Getenv("COLLECTOR_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}
