// Package quota gates actions that are forwarded to the external automation
// endpoint and keeps monthly usage counters in line with confirmed outcomes.
//
// A Gate handles one action request at a time and holds no per-request state:
//
//  1. load the user's usage bundle
//  2. look the action up in the Policy table (exempt, metered, or unknown)
//  3. refuse with *LimitError when a metered dimension is at or over its limit
//  4. forward the action; pass non-2xx and non-JSON answers through untouched
//  5. on a reported success, increment the metered counter by the rule's count
//  6. attach a fresh bundle to the upstream JSON object
//
// The quota check always runs before the external call and increments only
// after the endpoint reported {"ok": true}, so a refused or failed action is
// never counted.
//
// Policy is data. The default table exempts listLabels, getUserSettings and
// getRunLog, meters generateDrafts by the number of returned items and sendDraft
// by one. A YAML file may replace it:
//
//	actions:
//	  listLabels:      {exempt: true}
//	  generateDrafts:  {dimension: drafts, count: items}
//	  sendDraft:       {dimension: sends, count: one}
package quota
