package adapter

// BaseAdapter is the passthrough adapter: it never skips a file and returns
// raw text unchanged. It is the handler for the passthrough basenames
// (README, Dockerfile, Makefile, pyproject.toml) and can always be selected
// explicitly by name from section config.
type BaseAdapter struct{}

func (BaseAdapter) Name() string        { return "base" }
func (BaseAdapter) Extensions() []string { return nil }

func (BaseAdapter) Bind(rawCfg map[string]any) (BoundAdapter, error) {
	return boundBase{}, nil
}

type boundBase struct{}

func (boundBase) ShouldSkip(ctx FileContext) bool { return false }

func (boundBase) Process(ctx FileContext) (string, map[string]any, error) {
	return ctx.RawText, map[string]any{}, nil
}
