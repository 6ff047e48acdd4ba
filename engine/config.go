package engine

// Config is the fully resolved configuration record sent with one engine call.
type Config struct {
	PromptTemplate string  `json:"prompt_template,omitempty"`
	NPast          int     `json:"n_past"`
	NPredict       int     `json:"n_predict"`
	NBatch         int     `json:"n_batch"`
	Special        bool    `json:"special,omitempty"`
	FakeReply      *string `json:"fake_reply,omitempty"`
	Temperature    float64 `json:"temperature"`
	TopK           int     `json:"top_k"`
	TopP           float64 `json:"top_p"`
	MinP           float64 `json:"min_p"`
	RepeatPenalty  float64 `json:"repeat_penalty"`
	RepeatLastN    int     `json:"repeat_last_n"`
	ContextErase   float64 `json:"context_erase"`
}

// Options is a sparse set of engine tunables. Nil fields are unset and
// leave lower-precedence layers in place.
type Options struct {
	PromptTemplate *string  `json:"prompt_template,omitempty" yaml:"prompt_template,omitempty"`
	NPredict       *int     `json:"n_predict,omitempty" yaml:"n_predict,omitempty"`
	NBatch         *int     `json:"n_batch,omitempty" yaml:"n_batch,omitempty"`
	Special        *bool    `json:"special,omitempty" yaml:"special,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopK           *int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	TopP           *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MinP           *float64 `json:"min_p,omitempty" yaml:"min_p,omitempty"`
	RepeatPenalty  *float64 `json:"repeat_penalty,omitempty" yaml:"repeat_penalty,omitempty"`
	RepeatLastN    *int     `json:"repeat_last_n,omitempty" yaml:"repeat_last_n,omitempty"`
	ContextErase   *float64 `json:"context_erase,omitempty" yaml:"context_erase,omitempty"`
}

// Ptr returns a pointer to v. Convenience for building Options literals.
func Ptr[T any](v T) *T {
	return &v
}

// DefaultOptions returns the baseline tunables applied beneath model and
// session settings.
func DefaultOptions() Options {
	return Options{
		PromptTemplate: Ptr("%1"),
		NPredict:       Ptr(4096),
		NBatch:         Ptr(100),
		Temperature:    Ptr(0.1),
		TopK:           Ptr(40),
		TopP:           Ptr(0.9),
		MinP:           Ptr(0.0),
		RepeatPenalty:  Ptr(1.18),
		RepeatLastN:    Ptr(10),
		ContextErase:   Ptr(0.75),
	}
}

// Merge applies set fields from source into o. A nil source is a no-op.
func (o *Options) Merge(source *Options) {
	if source == nil {
		return
	}
	if source.PromptTemplate != nil {
		o.PromptTemplate = Ptr(*source.PromptTemplate)
	}
	if source.NPredict != nil {
		o.NPredict = Ptr(*source.NPredict)
	}
	if source.NBatch != nil {
		o.NBatch = Ptr(*source.NBatch)
	}
	if source.Special != nil {
		o.Special = Ptr(*source.Special)
	}
	if source.Temperature != nil {
		o.Temperature = Ptr(*source.Temperature)
	}
	if source.TopK != nil {
		o.TopK = Ptr(*source.TopK)
	}
	if source.TopP != nil {
		o.TopP = Ptr(*source.TopP)
	}
	if source.MinP != nil {
		o.MinP = Ptr(*source.MinP)
	}
	if source.RepeatPenalty != nil {
		o.RepeatPenalty = Ptr(*source.RepeatPenalty)
	}
	if source.RepeatLastN != nil {
		o.RepeatLastN = Ptr(*source.RepeatLastN)
	}
	if source.ContextErase != nil {
		o.ContextErase = Ptr(*source.ContextErase)
	}
}

// Resolve layers options with a fixed precedence: defaults < session < call.
// Any layer may be nil. The inputs are not modified.
func Resolve(defaults, session, call *Options) Options {
	var resolved Options
	resolved.Merge(defaults)
	resolved.Merge(session)
	resolved.Merge(call)
	return resolved
}

// Config flattens o into a Config positioned at nPast. Unset fields take
// their zero value.
func (o Options) Config(nPast int) Config {
	return Config{
		PromptTemplate: deref(o.PromptTemplate),
		NPast:          nPast,
		NPredict:       deref(o.NPredict),
		NBatch:         deref(o.NBatch),
		Special:        deref(o.Special),
		Temperature:    deref(o.Temperature),
		TopK:           deref(o.TopK),
		TopP:           deref(o.TopP),
		MinP:           deref(o.MinP),
		RepeatPenalty:  deref(o.RepeatPenalty),
		RepeatLastN:    deref(o.RepeatLastN),
		ContextErase:   deref(o.ContextErase),
	}
}

// WithFakeReply returns a copy of c that ingests reply instead of sampling.
func (c Config) WithFakeReply(reply string) Config {
	c.FakeReply = Ptr(reply)
	return c
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
