package assistant

import (
	"errors"

	"knowledgebot/pkg/config"
	"knowledgebot/pkg/fragments"
	"knowledgebot/pkg/logx"
)

// Source tells where a built Config came from.
type Source string

const (
	SourceNone        Source = ""
	SourceCache       Source = "cache"
	SourceFragments   Source = "fragments"
	SourceSingleValue Source = "single"
)

// Options names the inputs the builder reads.
type Options struct {
	FragmentPrefix  string // Numbered knowledge fragments: prefix + "1", prefix + "2", ...
	SingleVar       string // Unnumbered knowledge fallback
	InstructionsVar string
	Model           string
	GapPolicy       fragments.GapPolicy
	GapProbe        int
	List            fragments.Lister // Enumerates input names; nil limits gap detection to GapProbe slots
}

// OptionsFromConfig maps service configuration onto builder options. Inputs are
// listed from the process environment.
func OptionsFromConfig(cfg *config.Config) Options {
	policy := fragments.StopAtGap
	if cfg.Assistant.GapPolicy == config.GapPolicyStrict {
		policy = fragments.FailOnGap
	}
	return Options{
		FragmentPrefix:  cfg.Assistant.FragmentPrefix,
		SingleVar:       cfg.Assistant.SingleVar,
		InstructionsVar: cfg.Assistant.InstructionsVar,
		Model:           cfg.Assistant.Model,
		GapPolicy:       policy,
		GapProbe:        cfg.Assistant.GapProbe,
		List:            fragments.EnvNames,
	}
}

// Builder produces a Config from the cache file or, when absent, from named inputs.
type Builder struct {
	cache     *Cache
	lookup    fragments.Lookup
	knowledge fragments.Resolver
	opts      Options
	logger    *logx.Logger
}

// NewBuilder creates a builder reading inputs through lookup.
func NewBuilder(cache *Cache, lookup fragments.Lookup, opts Options) *Builder {
	if opts.Model == "" {
		opts.Model = config.DefaultModel
	}
	return &Builder{
		cache:  cache,
		lookup: lookup,
		knowledge: fragments.Resolver{
			Name:   fragments.Numbered(opts.FragmentPrefix),
			Index:  fragments.NumberedIndex(opts.FragmentPrefix),
			List:   opts.List,
			Policy: opts.GapPolicy,
			Probe:  opts.GapProbe,
		},
		opts:   opts,
		logger: logx.NewLogger("assistant"),
	}
}

// Build returns the cached Config, or assembles, persists, and returns a new one.
func (b *Builder) Build() (Config, error) {
	cfg, _, err := b.BuildWithSource()
	return cfg, err
}

// BuildWithSource is Build that also reports where the Config came from.
func (b *Builder) BuildWithSource() (Config, Source, error) {
	cached, ok, err := b.cache.Load()
	if err != nil {
		return Config{}, SourceNone, err
	}
	if ok {
		b.logger.Info("Loaded assistant config from %s", b.cache.Path())
		return cached, SourceCache, nil
	}

	knowledge, source, err := b.assembleKnowledge()
	if err != nil {
		return Config{}, SourceNone, err
	}

	instructions, ok := b.lookup(b.opts.InstructionsVar)
	if !ok {
		return Config{}, SourceNone, config.NewMissingError(b.opts.InstructionsVar)
	}

	cfg := Config{
		KnowledgeContent: knowledge,
		Instructions:     instructions,
		Model:            b.opts.Model,
	}
	if err := b.cache.Save(cfg); err != nil {
		return Config{}, SourceNone, err
	}

	b.logger.Info("Built assistant config from %s input (%d knowledge chars), cached at %s",
		source, len(knowledge), b.cache.Path())
	return cfg, source, nil
}

// Purge removes the cache file so the next build reads inputs again.
func (b *Builder) Purge() error {
	return b.cache.Remove()
}

func (b *Builder) assembleKnowledge() (string, Source, error) {
	res, err := b.knowledge.Resolve(b.lookup)
	switch {
	case err == nil:
		if res.Gap != "" {
			b.logger.Warn("Knowledge fragments stop at %s%d but %s is set; content after the gap is ignored",
				b.opts.FragmentPrefix, res.Count+1, res.Gap)
		}
		return res.Value, SourceFragments, nil

	case errors.Is(err, fragments.ErrNoFragments):
		value, ok := b.lookup(b.opts.SingleVar)
		if !ok {
			return "", SourceNone, config.NewMissingError(b.opts.SingleVar)
		}
		return value, SourceSingleValue, nil

	default:
		var gapErr *fragments.GapError
		if errors.As(err, &gapErr) {
			return "", SourceNone, config.NewConfigError(gapErr.Missing, "knowledge fragment numbering has a gap", err)
		}
		return "", SourceNone, config.NewConfigError(b.opts.FragmentPrefix, "cannot assemble knowledge fragments", err)
	}
}
