// Package errpage renders the HTML error pages served for not-found,
// unauthorized, rate-limited and internal-error outcomes.
package errpage

import (
	"html/template"
	"strconv"

	"github.com/valyala/bytebufferpool"

	"dqx0.com/go/citra/httpx"
)

const page = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Code}} {{.Message}}</title>
<style>
body { margin: 0; font-family: sans-serif; background: #f3f4fb; color: #333; }
.header { padding: 15px 30px; font-size: 20px; font-weight: 700; color: #2563eb; border-bottom: 1px solid #ddd; }
.container { text-align: center; margin-top: 60px; }
.error-code { font-size: 120px; font-weight: 700; color: #f97316; margin: 0; }
.message { font-size: 22px; font-weight: 500; margin: 10px 0; }
.note { font-size: 14px; color: #666; max-width: 600px; margin: 0 auto 40px; }
.traceback { background: #fff; border: 1px solid #ddd; border-radius: 8px; margin: 0 auto 50px; padding: 20px; width: 90%; max-width: 900px; font-family: monospace; font-size: 13px; }
.traceback .title { font-weight: 600; margin-bottom: 10px; color: #f97316; }
.traceback pre { margin: 0; white-space: pre-wrap; word-wrap: break-word; line-height: 1.5; }
</style>
</head>
<body>
<div class="header">{{.Brand}}</div>
<div class="container">
<h1 class="error-code">{{.Code}}</h1>
<p class="message">{{.Message}}</p>
<p class="note">{{if .Debug}}You're seeing this error because your site is in DEBUG mode.{{else}}An unexpected error occurred.{{end}}</p>
</div>
{{- if and .Debug .Detail}}
<div class="traceback">
<div class="title">Debug Console:</div>
<pre>{{.Detail}}</pre>
</div>
{{- end}}
</body>
</html>
`

var tmpl = template.Must(template.New("errpage").Parse(page))

var bufPool bytebufferpool.Pool

type pageData struct {
	Brand   string
	Code    int
	Message string
	Detail  string
	Debug   bool
}

// Pages implements httpx.ErrorPages with a styled HTML page. The detail
// block is rendered only in debug mode; detail text is HTML-escaped.
type Pages struct {
	// Brand is shown in the page header. Defaults to "CITRA".
	Brand string
}

func (p Pages) Render(code int, message, detail string, debug bool) *httpx.Response {
	brand := p.Brand
	if brand == "" {
		brand = "CITRA"
	}
	bb := bufPool.Get()
	defer bufPool.Put(bb)
	err := tmpl.Execute(bb, pageData{Brand: brand, Code: code, Message: message, Detail: detail, Debug: debug})
	if err != nil {
		// the template only fails on writer errors, which a ByteBuffer never returns
		return httpx.Text(strconv.Itoa(code)+" "+message, code)
	}
	return httpx.Text(bb.String(), code)
}

var _ httpx.ErrorPages = Pages{}
