package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/eak1mov/go-tilefetch/fetch"
	"github.com/eak1mov/go-tilefetch/internal/testserver"
)

func testOptions() fetch.Options {
	opts := fetch.DefaultOptions()
	opts.Backoff = time.Millisecond
	opts.Timeout = 5 * time.Second
	return opts
}

func TestGet(t *testing.T) {
	server := testserver.New(t, testserver.AlwaysOK)

	client := fetch.NewClient(testOptions())
	data, err := client.Get(context.Background(), server.URL+"/1/2/3.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got, want := string(data), "tile:/1/2/3.png"; got != want {
		t.Errorf("Get = %q, want = %q", got, want)
	}
	if !server.SawUserAgent(fetch.DefaultUserAgent) {
		t.Errorf("expected User-Agent %q", fetch.DefaultUserAgent)
	}
}

func TestGetUserAgent(t *testing.T) {
	server := testserver.New(t, testserver.AlwaysOK)

	opts := testOptions()
	opts.UserAgent = "tests/1.0"
	if _, err := fetch.NewClient(opts).Get(context.Background(), server.URL+"/0/0/0.png"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !server.SawUserAgent("tests/1.0") {
		t.Error("expected custom User-Agent")
	}
}

func TestGetRetriesUntilSuccess(t *testing.T) {
	server := testserver.New(t, func(path string, attempt int) (int, []byte) {
		if attempt < 3 {
			return http.StatusTeapot, nil
		}
		return testserver.AlwaysOK(path, attempt)
	})

	data, err := fetch.NewClient(testOptions()).Get(context.Background(), server.URL+"/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "tile:/a" {
		t.Errorf("Get = %q", data)
	}
	if got := server.Requests("/a"); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}

func TestGetAttemptsExhausted(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusNotFound} {
		server := testserver.New(t, testserver.AlwaysStatus(status))

		opts := testOptions()
		opts.MaxAttempts = 4
		_, err := fetch.NewClient(opts).Get(context.Background(), server.URL+"/a")
		if !errors.Is(err, fetch.ErrAttemptsExhausted) {
			t.Errorf("status %d: expected ErrAttemptsExhausted, got %v", status, err)
		}
		if !errors.Is(err, fetch.ErrStatus) {
			t.Errorf("status %d: expected ErrStatus, got %v", status, err)
		}
		if got := server.Requests("/a"); got != 4 {
			t.Errorf("status %d: expected 4 requests, got %d", status, got)
		}
	}
}

func TestGetTransportError(t *testing.T) {
	server := testserver.New(t, testserver.AlwaysOK)
	url := server.URL + "/a"
	server.Close()

	opts := testOptions()
	opts.MaxAttempts = 2
	_, err := fetch.NewClient(opts).Get(context.Background(), url)
	if !errors.Is(err, fetch.ErrAttemptsExhausted) {
		t.Errorf("expected ErrAttemptsExhausted, got %v", err)
	}
}

func TestGetTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	server := testserver.New(t, func(path string, attempt int) (int, []byte) {
		if attempt == 1 {
			<-release
		}
		return testserver.AlwaysOK(path, attempt)
	})

	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond
	data, err := fetch.NewClient(opts).Get(context.Background(), server.URL+"/slow")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "tile:/slow" {
		t.Errorf("Get = %q", data)
	}
	if got := server.Requests("/slow"); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}

func TestGetContextCancelled(t *testing.T) {
	server := testserver.New(t, testserver.AlwaysStatus(http.StatusInternalServerError))

	opts := testOptions()
	opts.Backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := fetch.NewClient(opts).Get(ctx, server.URL+"/a")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if errors.Is(err, fetch.ErrAttemptsExhausted) {
		t.Errorf("cancellation reported as exhausted attempts: %v", err)
	}
}

func TestSleep(t *testing.T) {
	if err := fetch.Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fetch.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := fetch.Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
