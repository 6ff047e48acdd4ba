// Package engine defines the boundary between a chat session and the
// text-generation engine it drives.
//
// An Engine exposes a single primitive: ingest a prompt (optionally
// generating a reply) starting at a given context position, and report the
// new context position. Everything conversational lives above this package.
//
//	resp, err := eng.Generate(ctx, "Hello", cfg, func(tok string) bool {
//		fmt.Print(tok)
//		return true
//	})
package engine

import "context"

// TokenCallback receives generated tokens in production order. Returning
// false asks the engine to stop generating.
type TokenCallback func(token string) bool

// Response is the outcome of one engine call.
type Response struct {
	Text            string `json:"text"`
	NPast           int    `json:"n_past"`
	TokensIngested  int    `json:"tokens_ingested"`
	TokensGenerated int    `json:"tokens_generated"`
}

// Engine is the generation primitive a chat session orchestrates.
//
// Implementations start from cfg.NPast, ingest the prompt, then either
// ingest cfg.FakeReply as the reply (no sampling), return without sampling
// when cfg.NPredict is zero, or generate up to cfg.NPredict tokens. The
// returned NPast is the engine's authoritative context position.
type Engine interface {
	Generate(ctx context.Context, prompt string, cfg Config, cb TokenCallback) (*Response, error)
}
