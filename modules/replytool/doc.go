// Package replytool exposes the reply tool's HTTP API:
//
//	POST /api/script  forward an automation action through the quota gate
//	POST /api/usage   return the caller's plan, monthly usage and limits
//
// Router also mounts the health probes and, when given, the metrics handler.
package replytool
