// Package binder decodes HTTP request bodies into typed request values.
//
//	h := handler.Wrap(scriptHandler, handler.WithBinder[handler.Context, ScriptRequest](binder.JSON()))
//
// JSON accepts a missing Content-Type header since automation clients do not
// always send one, but rejects explicit non-JSON media types.
package binder
