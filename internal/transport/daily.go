package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/config"
)

// DailyClient calls the Daily REST API to create rooms and meeting tokens.
type DailyClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewDailyClient builds a client from the Daily config section. The HTTP
// client is injectable for tests; nil selects a default with a 15s timeout.
func NewDailyClient(cfg config.DailyConfig, httpClient *http.Client) *DailyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &DailyClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.APIURL, "/"),
		http:    httpClient,
	}
}

// Room is the subset of the Daily room object we use.
type Room struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RoomProperties carries the room options exposed through /start.
type RoomProperties struct {
	EnableChat        bool   `json:"enable_chat"`
	EnableScreenshare bool   `json:"enable_screenshare"`
	EnableRecording   string `json:"enable_recording,omitempty"`
}

// CreateRoom creates a new Daily room.
func (c *DailyClient) CreateRoom(ctx context.Context, props RoomProperties) (*Room, error) {
	var room Room
	payload := map[string]any{"properties": props}
	if err := c.post(ctx, "/rooms", payload, &room); err != nil {
		return nil, fmt.Errorf("transport: create daily room: %w", err)
	}
	return &room, nil
}

// TokenProperties carries the meeting-token options we set.
type TokenProperties struct {
	RoomName            string `json:"room_name"`
	UserName            string `json:"user_name,omitempty"`
	StartCloudRecording bool   `json:"start_cloud_recording,omitempty"`
}

// CreateMeetingToken mints a meeting token for the given room.
func (c *DailyClient) CreateMeetingToken(ctx context.Context, props TokenProperties) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	payload := map[string]any{"properties": props}
	if err := c.post(ctx, "/meeting-tokens", payload, &resp); err != nil {
		return "", fmt.Errorf("transport: create meeting token: %w", err)
	}
	return resp.Token, nil
}

// post issues an authenticated JSON POST and decodes the response into out.
func (c *DailyClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RoomNameFromURL extracts the room name from a Daily room URL
// (https://domain.daily.co/room-name).
func RoomNameFromURL(url string) string {
	url = strings.TrimSuffix(url, "/")
	idx := strings.LastIndex(url, "/")
	if idx < 0 {
		return url
	}
	return url[idx+1:]
}
