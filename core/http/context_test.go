package http

import (
	"strconv"
	"strings"
	"testing"
)

func TestCtxParams(t *testing.T) {
	c := AcquireCtx(&Request{Method: "GET", Path: "/a/b"})
	defer ReleaseCtx(c)

	c.SetParam("id", "42")
	c.SetParam("post", "7")

	if got := c.Param("id"); got != "42" {
		t.Errorf("Param(id) = %q", got)
	}
	if got := c.Param("post"); got != "7" {
		t.Errorf("Param(post) = %q", got)
	}
	if got := c.Param("absent"); got != "" {
		t.Errorf("Param(absent) = %q", got)
	}
	if c.ParamCount() != 2 {
		t.Errorf("ParamCount = %d", c.ParamCount())
	}
}

// Routes with more than four parameters spill into the overflow
// slices; lookups must still see every value.
func TestCtxParamOverflow(t *testing.T) {
	c := AcquireCtx(&Request{Method: "GET", Path: "/"})
	defer ReleaseCtx(c)

	for i := 0; i < 7; i++ {
		c.SetParam("p"+strconv.Itoa(i), strconv.Itoa(i))
	}
	if c.ParamCount() != 7 {
		t.Fatalf("ParamCount = %d, want 7", c.ParamCount())
	}
	for i := 0; i < 7; i++ {
		if got := c.Param("p" + strconv.Itoa(i)); got != strconv.Itoa(i) {
			t.Errorf("Param(p%d) = %q", i, got)
		}
	}
}

func TestCtxReleaseResets(t *testing.T) {
	c := AcquireCtx(&Request{Method: "GET", Path: "/"})
	for i := 0; i < 6; i++ {
		c.SetParam("k"+strconv.Itoa(i), "v")
	}
	ReleaseCtx(c)

	c2 := AcquireCtx(&Request{Method: "GET", Path: "/other"})
	defer ReleaseCtx(c2)
	if c2.ParamCount() != 0 {
		t.Errorf("recycled ctx has %d params", c2.ParamCount())
	}
}

func TestCtxResponseBuilders(t *testing.T) {
	c := AcquireCtx(&Request{Method: "GET", Path: "/"})
	defer ReleaseCtx(c)

	resp := c.String(200, "hello")
	if resp.Status != 200 || string(resp.Body) != "hello" {
		t.Errorf("String = %+v", resp)
	}
	if resp.Header(HeaderContentType) != MIMETextPlain {
		t.Errorf("String content type = %q", resp.Header(HeaderContentType))
	}

	resp = c.JSON(200, map[string]int{"n": 1})
	if resp.Header(HeaderContentType) != MIMEApplicationJSON || !strings.Contains(string(resp.Body), `"n":1`) {
		t.Errorf("JSON = %+v", resp)
	}

	// Unmarshalable value degrades to a 500, never an error return.
	resp = c.JSON(200, make(chan int))
	if resp.Status != 500 {
		t.Errorf("JSON(chan) status = %d, want 500", resp.Status)
	}

	resp = c.NoContent(204)
	if resp.Status != 204 || resp.Body != nil {
		t.Errorf("NoContent = %+v", resp)
	}

	resp = c.Error(404, "missing")
	if resp.Status != 404 || !strings.Contains(string(resp.Body), "missing") {
		t.Errorf("Error = %+v", resp)
	}
}

func TestResponseClone(t *testing.T) {
	orig := &Response{Status: 200, Body: []byte("data")}
	orig.SetHeader("A", "1")

	c := orig.Clone()
	c.Body[0] = 'X'
	c.SetHeader("A", "2")

	if string(orig.Body) != "data" || orig.Header("A") != "1" {
		t.Error("clone shares state with the original")
	}
}
