package pipeline

import (
	"context"
	"testing"

	"github.com/searchktools/fast-gateway/core/http"
)

func TestRequestIDAssignsWhenAbsent(t *testing.T) {
	mw := RequestID()

	req := &http.Request{Method: "GET", Path: "/"}
	c := http.AcquireCtx(req)
	defer http.ReleaseCtx(c)

	resp, err := mw(context.Background(), c)
	if resp != nil || err != nil {
		t.Fatalf("mw = %v, %v; want continue", resp, err)
	}
	first := c.Header(http.HeaderRequestID)
	if first == "" {
		t.Fatal("no request id assigned")
	}

	// A second request gets a different id.
	req2 := &http.Request{Method: "GET", Path: "/"}
	c2 := http.AcquireCtx(req2)
	defer http.ReleaseCtx(c2)
	mw(context.Background(), c2)
	if c2.Header(http.HeaderRequestID) == first {
		t.Error("request ids collide")
	}
}

func TestRequestIDKeepsExisting(t *testing.T) {
	mw := RequestID()
	req := &http.Request{
		Method:  "GET",
		Path:    "/",
		Headers: map[string]string{http.HeaderRequestID: "upstream-7"},
	}
	c := http.AcquireCtx(req)
	defer http.ReleaseCtx(c)

	mw(context.Background(), c)
	if got := c.Header(http.HeaderRequestID); got != "upstream-7" {
		t.Errorf("request id overwritten: %q", got)
	}
}

func TestRateLimitShortCircuitsWhenExhausted(t *testing.T) {
	mw := RateLimit(1) // 1 rps, burst 2

	c := http.AcquireCtx(&http.Request{Method: "GET", Path: "/"})
	defer http.ReleaseCtx(c)

	allowed, denied := 0, 0
	for i := 0; i < 5; i++ {
		resp, err := mw(context.Background(), c)
		if err != nil {
			t.Fatal(err)
		}
		if resp == nil {
			allowed++
			continue
		}
		denied++
		if resp.Status != 429 {
			t.Fatalf("denied status = %d, want 429", resp.Status)
		}
		if resp.Header("Retry-After") == "" {
			t.Error("denied response missing Retry-After")
		}
	}
	if allowed == 0 || denied == 0 {
		t.Errorf("allowed = %d, denied = %d; want both nonzero", allowed, denied)
	}
	if allowed > 3 {
		t.Errorf("allowed %d requests on a burst of 2", allowed)
	}
}
