package cdpsurface

import (
	"encoding/json"
	"fmt"
)

const (
	CodePageNotReady = "PAGE_NOT_READY"
	CodeEvalFailure  = "EVAL_FAILURE"
	CodeCDP          = "CDP_UNAVAILABLE"
)

// EvalError is a failed script evaluation inside the deck page.
type EvalError struct {
	Code    string
	Message string
	Cause   error
}

func (e *EvalError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *EvalError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &EvalError{Code: code, Message: msg, Cause: cause}
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

const jsPreamble = `
var deck = window.chartdeck;
if (!deck || !deck.ready) {
return JSON.stringify({ok:false,error_code:"` + CodePageNotReady + `",error_message:"deck page not loaded"});
}`

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func wrapJSEval(body string) string {
	return `(function(){
try {
` + jsPreamble + `
` + body + `
return JSON.stringify({ok:true});
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}

// paneCall builds a script invoking deck.<method>(paneID, args...).
func paneCall(method, paneID string, args ...any) string {
	call := "deck." + method + "(" + jsString(paneID)
	for _, a := range args {
		call += "," + jsJSON(a)
	}
	return wrapJSEval(call + ");")
}

func decodeEnvelope(raw string) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeEvalFailure, "decode eval result", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return newError(code, env.ErrorMessage, nil)
	}
	return nil
}
