package provider

import (
	"fmt"
	"strings"

	"studio/server/internal/model"

	"github.com/tidwall/gjson"
)

// A matcher reports whether it claims the document. A claimed document with an
// empty URL is a failure; later matchers are not consulted.
type matcher struct {
	name  string
	match func(doc gjson.Result, v model.Variant) (url string, claimed bool)
}

// matchers are tried in order; the first claim wins.
var matchers = []matcher{
	{name: "url", match: matchURL},
	{name: "success", match: matchSuccess},
	{name: "output_array", match: matchOutputArray},
	{name: "output_string", match: matchOutputString},
	{name: "legacy", match: matchLegacy},
}

// Extract pulls the media URL out of a webhook response body. A body that is
// not JSON at all is reported like a transport failure: the studio cannot
// tell a misconfigured webhook URL from a dead one.
func Extract(body []byte, v model.Variant) (GenerateOutput, *Error) {
	if !gjson.ValidBytes(body) {
		return GenerateOutput{}, networkError(fmt.Errorf("response body is not valid JSON: %s", truncate(string(body), 256)))
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return GenerateOutput{}, shapeError(v, "", "response body is not a JSON object")
	}
	detail := "no matcher accepted: " + truncate(doc.Raw, 256)
	for _, m := range matchers {
		url, claimed := m.match(doc, v)
		if !claimed {
			continue
		}
		if url != "" {
			return GenerateOutput{URL: url, Shape: m.name}, nil
		}
		detail = m.name + " shape carried an empty url"
		break
	}
	msg := doc.Get("message")
	serverMessage := ""
	if msg.Type == gjson.String {
		serverMessage = msg.Str
	}
	return GenerateOutput{}, shapeError(v, serverMessage, detail)
}

func matchURL(doc gjson.Result, _ model.Variant) (string, bool) {
	u := doc.Get("url")
	if u.Type == gjson.String && strings.HasPrefix(u.Str, "http") {
		return u.Str, true
	}
	return "", false
}

func matchSuccess(doc gjson.Result, v model.Variant) (string, bool) {
	if !truthy(doc.Get("success")) {
		return "", false
	}
	key := "imageUrl"
	if v == model.VariantVideo {
		key = "videoUrl"
	}
	return nonEmptyString(doc.Get(key))
}

func matchOutputArray(doc gjson.Result, _ model.Variant) (string, bool) {
	out := doc.Get("output")
	if !out.IsArray() || len(out.Array()) == 0 {
		return "", false
	}
	first := out.Get("0")
	if first.Type != gjson.String {
		return "", true
	}
	return first.Str, true
}

func matchOutputString(doc gjson.Result, _ model.Variant) (string, bool) {
	out := doc.Get("output")
	if out.Type != gjson.String {
		return "", false
	}
	return out.Str, true
}

func matchLegacy(doc gjson.Result, v model.Variant) (string, bool) {
	tipo := "imagen"
	if v == model.VariantVideo {
		tipo = "video"
	}
	if doc.Get("tipo").String() != tipo || doc.Get("status").String() != "ok" {
		return "", false
	}
	return nonEmptyString(doc.Get("url"))
}

func nonEmptyString(r gjson.Result) (string, bool) {
	if r.Type == gjson.String && r.Str != "" {
		return r.Str, true
	}
	return "", false
}

// truthy mirrors loose boolean tests on JSON values: false, 0, "" and null
// are falsy, everything else present is truthy.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	}
	return r.Exists()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
