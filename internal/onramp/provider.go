package onramp

import (
	"errors"
	"strings"
)

// ErrUnknownProvider indicates the requested bank is not supported for deposits.
var ErrUnknownProvider = errors.New("unsupported bank provider")

// Provider is a bank the user is redirected to in order to confirm a deposit.
type Provider struct {
	Name        string
	RedirectURL string
}

// Providers resolves bank providers by name, case-insensitively.
type Providers struct {
	byName map[string]Provider
}

// DefaultProviders returns the banks supported out of the box.
func DefaultProviders() Providers {
	return NewProviders(
		Provider{Name: "HDFC Bank", RedirectURL: "https://netbanking.hdfcbank.com"},
		Provider{Name: "Axis Bank", RedirectURL: "https://www.axisbank.com/"},
	)
}

// NewProviders builds a registry from the given providers.
func NewProviders(list ...Provider) Providers {
	p := Providers{byName: make(map[string]Provider, len(list))}
	for _, provider := range list {
		p.byName[strings.ToLower(provider.Name)] = provider
	}
	return p
}

// Lookup returns the provider registered under name.
func (p Providers) Lookup(name string) (Provider, error) {
	provider, ok := p.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Provider{}, ErrUnknownProvider
	}
	return provider, nil
}
