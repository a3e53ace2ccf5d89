package classify

import "encoding/json"

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// wrapJSEval wraps a script body in an IIFE that reports failures through the
// JSON envelope instead of throwing into the CDP layer.
func wrapJSEval(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_message:String(err && err.message || err)});
}
})()`
}
