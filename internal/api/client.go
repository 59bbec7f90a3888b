package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one project on an audino backend. Methods are safe to run
// from concurrent goroutines; the caller serializes operations per segment.
type Client struct {
	baseURL   string
	token     string
	projectID int
	c         *http.Client
}

// NewClient creates a client for the given backend and project. token may be
// empty for backends without auth.
func NewClient(baseURL, token string, projectID int) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		projectID: projectID,
		c:         &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadData fetches the audio item: its segmentation list, reference
// transcription, review flag, and filename.
func (c *Client) LoadData(ctx context.Context, dataID int) (*DataResponse, error) {
	var out DataResponse
	path := fmt.Sprintf("/api/projects/%d/data/%d", c.projectID, dataID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("load data %d: %w", dataID, err)
	}
	return &out, nil
}

// LoadLabels fetches the project's label definitions.
func (c *Client) LoadLabels(ctx context.Context) (LabelsResponse, error) {
	var out LabelsResponse
	path := fmt.Sprintf("/api/projects/%d/labels", c.projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	return out, nil
}

// CreateSegment creates a new segment and returns its backend-assigned id.
func (c *Client) CreateSegment(ctx context.Context, dataID int, p SegmentPayload) (int, error) {
	var out CreateResponse
	path := fmt.Sprintf("/api/projects/%d/data/%d/segmentations", c.projectID, dataID)
	if err := c.do(ctx, http.MethodPost, path, p, &out); err != nil {
		return 0, fmt.Errorf("create segment: %w", err)
	}
	return out.SegmentationID, nil
}

// UpdateSegment overwrites an existing segment. The response body carries no
// information the client needs beyond the status.
func (c *Client) UpdateSegment(ctx context.Context, dataID, segmentationID int, p SegmentPayload) error {
	path := fmt.Sprintf("/api/projects/%d/data/%d/segmentations/%d", c.projectID, dataID, segmentationID)
	if err := c.do(ctx, http.MethodPut, path, p, nil); err != nil {
		return fmt.Errorf("update segment %d: %w", segmentationID, err)
	}
	return nil
}

// DeleteSegment removes a segment from the backend.
func (c *Client) DeleteSegment(ctx context.Context, dataID, segmentationID int) error {
	path := fmt.Sprintf("/api/projects/%d/data/%d/segmentations/%d", c.projectID, dataID, segmentationID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete segment %d: %w", segmentationID, err)
	}
	return nil
}

// SetReviewFlag updates the item-level reviewed flag.
func (c *Client) SetReviewFlag(ctx context.Context, dataID int, marked bool) error {
	path := fmt.Sprintf("/api/projects/%d/data/%d", c.projectID, dataID)
	if err := c.do(ctx, http.MethodPatch, path, ReviewPayload{IsMarkedForReview: marked}, nil); err != nil {
		return fmt.Errorf("set review flag: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
