// Package assistant builds, caches, and serves the assistant configuration:
// the knowledge document, the behavioral instructions, and the model to use.
package assistant

import (
	"knowledgebot/pkg/config"
)

// Config is the assembled assistant configuration. It is a value object;
// callers receive copies and never modify a shared instance.
type Config struct {
	KnowledgeContent string `json:"knowledgeContent"`
	Instructions     string `json:"instructions"`
	Model            string `json:"model"`
}

// Validate enforces that every field is present.
func (c Config) Validate() error {
	switch {
	case c.KnowledgeContent == "":
		return config.NewMissingError("knowledgeContent")
	case c.Instructions == "":
		return config.NewMissingError("instructions")
	case c.Model == "":
		return config.NewMissingError("model")
	}
	return nil
}
