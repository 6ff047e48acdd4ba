package engine

// PromptContext is the mutable record a session threads through its engine
// calls. NPast only ever takes the value the engine last returned; token
// counts are summed separately by Tally.
type PromptContext struct {
	NPast   int
	Options Options
}

// NewPromptContext creates a PromptContext at position zero with a private
// copy of opts.
func NewPromptContext(opts Options) PromptContext {
	var copied Options
	copied.Merge(&opts)
	return PromptContext{Options: copied}
}

// Advance replaces NPast with the engine's authoritative position.
func (c *PromptContext) Advance(resp *Response) {
	c.NPast = resp.NPast
}

// BatchSize returns the configured ingestion batch size, zero when unset.
func (c *PromptContext) BatchSize() int {
	return deref(c.Options.NBatch)
}

// Tally sums token counts across engine calls.
type Tally struct {
	Ingested  int
	Generated int
}

// Add accumulates the counts reported by resp.
func (t *Tally) Add(resp *Response) {
	t.Ingested += resp.TokensIngested
	t.Generated += resp.TokensGenerated
}

// AddIngested accumulates an already-summed ingestion count.
func (t *Tally) AddIngested(n int) {
	t.Ingested += n
}
