// Package automation calls the external email-drafting endpoint.
//
// The endpoint is an opaque HTTP service (a deployed Apps Script web app)
// that accepts {"action": ..., "payload": ...} as JSON and answers with
// either a JSON object carrying an "ok" flag or, on some failures, raw
// text/HTML. The client forwards exactly one request per call and returns the
// raw response; interpreting it is up to the caller.
//
// No timeout or retry is applied by default: the caller cannot know whether
// a failed call took effect remotely. Supply an *http.Client with a timeout
// via WithHTTPClient if the deployment needs one.
//
//	var cfg automation.Config
//	config.MustLoad(&cfg)
//
//	client := automation.New(cfg.URL)
//	resp, err := client.Call(ctx, "listLabels", json.RawMessage(`{}`))
package automation
