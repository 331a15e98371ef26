// Package logger builds *slog.Logger instances with per-environment defaults
// and injects request-scoped values from context.Context.
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "replyflow"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "action forwarded", logger.UserID(id), logger.Action("sendDraft"))
//
// Attribute helpers in attr.go keep key names consistent. Error and UserID
// return an empty attribute for nil input so they can be passed unconditionally.
package logger
