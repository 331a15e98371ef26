// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a request value already decoded by the
// configured binder and returns a Response:
//
//	h := handler.HandlerFunc[handler.Context, UsageRequest](
//		func(ctx handler.Context, req UsageRequest) handler.Response {
//			bundle, err := svc.GetUsageBundle(ctx, req.UserID)
//			if err != nil {
//				return handler.Fail(err)
//			}
//			return handler.JSON(bundle)
//		},
//	)
//	r.Post("/api/usage", handler.Wrap(h, handler.WithBinder[handler.Context, UsageRequest](binder.JSON())))
//
// Binding and rendering errors, as well as responses built with Fail, go to
// the ErrorHandler. NewErrorHandler renders them as {"ok": false, "error": ...}
// with the status taken from an HTTPError found in the chain.
package handler
