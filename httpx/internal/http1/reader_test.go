package http1

import (
	"errors"
	"testing"
)

func TestParse_RequestLineAndHeaders(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nHost: x\r\nX-Trace-ID:  abc \r\nContent-Length: 5\r\n\r\nhello"
	pr, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if pr.Method != "POST" || pr.RequestURI != "/submit" || pr.Proto != "HTTP/1.1" {
		t.Fatalf("request line = %q %q %q", pr.Method, pr.RequestURI, pr.Proto)
	}
	if got := pr.Header["x-trace-id"]; got != "abc " {
		t.Fatalf("x-trace-id=%q", got)
	}
	if got := pr.Header["host"]; got != "x" {
		t.Fatalf("host=%q", got)
	}
	if string(pr.Body) != "hello" {
		t.Fatalf("body=%q", string(pr.Body))
	}
}

func TestParse_QueryLastValueWins(t *testing.T) {
	pr, err := Parse([]byte("GET /x?a=1&a=2 HTTP/1.1\r\nHost: h\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	vv := pr.Query["a"]
	if len(vv) != 2 || vv[len(vv)-1] != "2" {
		t.Fatalf("query a=%v", vv)
	}
	if pr.Body == nil || len(pr.Body) != 0 {
		t.Fatalf("body=%v, want empty non-nil", pr.Body)
	}
}

func TestParse_QueryDecoding(t *testing.T) {
	pr, err := Parse([]byte("GET /s?q=hello+world&p=%2Fa%2Fb&empty=&bad=%zz HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := pr.Query["q"]; len(got) != 1 || got[0] != "hello world" {
		t.Fatalf("q=%v", got)
	}
	if got := pr.Query["p"]; len(got) != 1 || got[0] != "/a/b" {
		t.Fatalf("p=%v", got)
	}
	if _, ok := pr.Query["empty"]; ok {
		t.Fatal("blank value should be dropped")
	}
	if got := pr.Query["bad"]; len(got) != 1 || got[0] != "%zz" {
		t.Fatalf("bad=%v, want literal escape kept", got)
	}
}

func TestParse_InvalidEscapesKeptLiterally(t *testing.T) {
	pr, err := Parse([]byte("GET /x?a=100%&b=%ZZ&c=ok&d=50%25+off HTTP/1.1\r\nHost: h\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := map[string]string{"a": "100%", "b": "%ZZ", "c": "ok", "d": "50% off"}
	for k, v := range want {
		if got := pr.Query[k]; len(got) != 1 || got[0] != v {
			t.Fatalf("%s=%v, want %q", k, got, v)
		}
	}

	form := ParseForm("msg=100%+done&%zz=x")
	if got := form["msg"]; len(got) != 1 || got[0] != "100% done" {
		t.Fatalf("msg=%v", got)
	}
	if got := form["%zz"]; len(got) != 1 || got[0] != "x" {
		t.Fatalf("%%zz=%v", got)
	}
}

func TestParse_HeaderValueKeepsTrailingWhitespace(t *testing.T) {
	pr, err := Parse([]byte("GET / HTTP/1.1\r\nX-Pad:   v  \r\nX-Tab:\tw\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := pr.Header["x-pad"]; got != "v  " {
		t.Fatalf("x-pad=%q", got)
	}
	if got := pr.Header["x-tab"]; got != "w" {
		t.Fatalf("x-tab=%q", got)
	}
}

func TestParse_FormBody(t *testing.T) {
	raw := "POST /f HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded; charset=utf-8\r\n\r\nname=Ada+L&age=36"
	pr, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := pr.Form["name"]; len(got) != 1 || got[0] != "Ada L" {
		t.Fatalf("name=%v", got)
	}
	if got := pr.Form["age"]; len(got) != 1 || got[0] != "36" {
		t.Fatalf("age=%v", got)
	}
}

func TestParse_FormIgnoredWithoutContentType(t *testing.T) {
	pr, err := Parse([]byte("POST /f HTTP/1.1\r\nContent-Type: text/plain\r\n\r\na=1"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(pr.Form) != 0 {
		t.Fatalf("form=%v", pr.Form)
	}
}

func TestParse_BodyKeepsLineTerminators(t *testing.T) {
	raw := "PUT /doc HTTP/1.1\r\nHost: x\r\n\r\nline1\r\n\r\nline3\r\n"
	pr, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if string(pr.Body) != "line1\r\n\r\nline3\r\n" {
		t.Fatalf("body=%q", string(pr.Body))
	}
}

func TestParse_DuplicateHeaderLastWins(t *testing.T) {
	pr, err := Parse([]byte("GET / HTTP/1.1\r\nX-A: 1\r\nx-a: 2\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := pr.Header["x-a"]; got != "2" {
		t.Fatalf("x-a=%q", got)
	}
}

func TestParse_MalformedRequestLine(t *testing.T) {
	for _, raw := range []string{"GET /\r\n\r\n", "\r\n\r\n", "garbage"} {
		if _, err := Parse([]byte(raw)); !errors.Is(err, ErrMalformedRequestLine) {
			t.Fatalf("%q: err=%v", raw, err)
		}
	}
}

func TestParse_MalformedHeader(t *testing.T) {
	for _, raw := range []string{
		"GET / HTTP/1.1\r\nNoColon\r\n\r\n",
		"GET / HTTP/1.1\r\n: value\r\n\r\n",
	} {
		if _, err := Parse([]byte(raw)); !errors.Is(err, ErrMalformedHeader) {
			t.Fatalf("%q: err=%v", raw, err)
		}
	}
}

func TestParse_TruncatedHead(t *testing.T) {
	pr, err := Parse([]byte("GET /big HTTP/1.1\r\nHost: x\r\nX-Long: aaaa"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !pr.Truncated {
		t.Fatal("expected Truncated")
	}
	if pr.Header["x-long"] != "aaaa" || len(pr.Body) != 0 {
		t.Fatalf("header=%v body=%q", pr.Header, pr.Body)
	}
}
