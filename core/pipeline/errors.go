package pipeline

import (
	"errors"
	"strings"

	"github.com/searchktools/fast-gateway/core/http"
)

var errNilResponse = errors.New("handler returned no response and no error")

// FieldError names one field that failed validation and why.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned by a Validator when the request payload
// does not satisfy the route's schema. It lists every failing field so
// the client can fix the payload in one round trip.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed")
	for i, f := range e.Fields {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(f.Field)
		sb.WriteString(": ")
		sb.WriteString(f.Message)
	}
	return sb.String()
}

func errorResponse(code int, message string) *http.Response {
	resp := &http.Response{
		Status: code,
		Body:   []byte(`{"error":"` + message + `"}`),
	}
	resp.SetHeader(http.HeaderContentType, http.MIMEApplicationJSON)
	return resp
}

func validationResponse(ve *ValidationError) *http.Response {
	var sb strings.Builder
	sb.WriteString(`{"error":"validation failed","fields":[`)
	for i, f := range ve.Fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(`{"field":"`)
		sb.WriteString(jsonEscape(f.Field))
		sb.WriteString(`","message":"`)
		sb.WriteString(jsonEscape(f.Message))
		sb.WriteString(`"}`)
	}
	sb.WriteString(`]}`)

	resp := &http.Response{Status: 400, Body: []byte(sb.String())}
	resp.SetHeader(http.HeaderContentType, http.MIMEApplicationJSON)
	return resp
}

var jsonEscaper = strings.NewReplacer(`"`, `\"`, `\`, `\\`, "\n", `\n`, "\t", `\t`)

func jsonEscape(s string) string {
	if strings.IndexAny(s, "\"\\\n\t") < 0 {
		return s
	}
	return jsonEscaper.Replace(s)
}
