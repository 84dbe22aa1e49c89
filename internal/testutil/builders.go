package testutil

import (
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
)

// InputBuilder builds operator input for tests.
type InputBuilder struct {
	in identity.Input
}

// NewInput starts from a valid input for the instance called name.
func NewInput(name string) *InputBuilder {
	return &InputBuilder{in: identity.Input{
		Name:          name,
		Version:       "17.0",
		Port:          "8069",
		AddonsRepoURL: "git@github.com:acme/" + name + "-addons.git",
	}}
}

// WithVersion sets the version.
func (b *InputBuilder) WithVersion(version string) *InputBuilder {
	b.in.Version = version
	return b
}

// WithPort sets the port.
func (b *InputBuilder) WithPort(port string) *InputBuilder {
	b.in.Port = port
	return b
}

// WithAddonsURL sets the addons repository URL.
func (b *InputBuilder) WithAddonsURL(url string) *InputBuilder {
	b.in.AddonsRepoURL = url
	return b
}

// Build returns the input.
func (b *InputBuilder) Build() identity.Input {
	return b.in
}
