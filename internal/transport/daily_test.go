package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zulandar/switchboard/internal/config"
)

func newTestDaily(t *testing.T, handler http.HandlerFunc) *DailyClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDailyClient(config.DailyConfig{
		APIKey: "dk-test",
		APIURL: srv.URL,
	}, srv.Client())
}

func TestCreateRoom(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	client := newTestDaily(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(Room{Name: "sb-room", URL: "https://demo.daily.co/sb-room"})
	})

	room, err := client.CreateRoom(context.Background(), RoomProperties{EnableChat: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.URL != "https://demo.daily.co/sb-room" {
		t.Errorf("room.URL = %q", room.URL)
	}
	if gotAuth != "Bearer dk-test" {
		t.Errorf("Authorization = %q, want Bearer dk-test", gotAuth)
	}
	if gotPath != "/rooms" {
		t.Errorf("path = %q, want /rooms", gotPath)
	}
	props, ok := gotBody["properties"].(map[string]any)
	if !ok {
		t.Fatalf("request body missing properties: %v", gotBody)
	}
	if props["enable_chat"] != true {
		t.Errorf("properties.enable_chat = %v, want true", props["enable_chat"])
	}
}

func TestCreateMeetingToken(t *testing.T) {
	client := newTestDaily(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meeting-tokens" {
			t.Errorf("path = %q, want /meeting-tokens", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		props := body["properties"].(map[string]any)
		if props["room_name"] != "sb-room" {
			t.Errorf("room_name = %v, want sb-room", props["room_name"])
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-abc"})
	})

	token, err := client.CreateMeetingToken(context.Background(), TokenProperties{RoomName: "sb-room"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-abc" {
		t.Errorf("token = %q, want tok-abc", token)
	}
}

func TestCreateRoom_APIError(t *testing.T) {
	client := newTestDaily(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	})

	if _, err := client.CreateRoom(context.Background(), RoomProperties{}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCreateRoom_ContextCancelled(t *testing.T) {
	client := newTestDaily(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Room{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.CreateRoom(ctx, RoomProperties{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
