package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestOllamaChatStreamsFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			w.Header().Set("Content-Type", "application/x-ndjson")
			_, _ = w.Write([]byte(`{"message":{"content":"Hello"},"done":false}` + "\n"))
			_, _ = w.Write([]byte(`this line is not json` + "\n"))
			_, _ = w.Write([]byte(`{"message":{"content":" there."},"done":true}` + "\n"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	malformed := 0
	client := NewOllamaClient(srv.URL, "test-model", func([]byte) { malformed++ })

	var got []Fragment
	err := client.Chat(context.Background(), "", []Message{{Role: RoleUser, Content: "Hi"}}, func(f Fragment) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	want := []Fragment{{Content: "Hello"}, {Content: " there.", Done: true}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if malformed != 1 {
		t.Fatalf("expected 1 malformed line, counted %d", malformed)
	}
}

func TestOllamaChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewOllamaClient(srv.URL, "", nil)
	err := client.Chat(context.Background(), "", nil, func(Fragment) error { return nil })
	if err == nil {
		t.Fatal("expected error for 5xx status")
	}
}

func TestOllamaPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	client := NewOllamaClient(srv.URL, "", nil)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	srv.Close()
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure after server close")
	}
}

func TestOllamaModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"qwen2.5:7b"}]}`))
	}))
	t.Cleanup(srv.Close)

	names, err := NewOllamaClient(srv.URL, "", nil).Models(context.Background())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"llama3.2:latest", "qwen2.5:7b"}) {
		t.Fatalf("unexpected models %q", names)
	}
}
