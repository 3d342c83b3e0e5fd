package cima

import (
	"context"
	"errors"

	"github.com/pithecene-io/vademecum/types"
)

// ErrStubUnavailable is returned by StubClient for registrations scripted
// to fail.
var ErrStubUnavailable = errors.New("stub: detail unavailable")

// StubClient is a scripted in-memory Client for testing orchestrators
// without a network.
//
// Catalog drives EachProduct, Details drives ProductDetail (keyed by
// registration id), Changes drives ChangesSince. Registrations listed in
// FailDetails make ProductDetail fail with a *FetchError wrapping
// ErrStubUnavailable.
type StubClient struct {
	Catalog     []Payload
	Details     map[string]Payload
	Changes     []types.ChangeEvent
	FailDetails map[string]bool

	// DetailCalls records the registration ids requested, in order.
	DetailCalls []string
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)

// NewStubClient creates an empty stub client.
func NewStubClient() *StubClient {
	return &StubClient{
		Details:     make(map[string]Payload),
		FailDetails: make(map[string]bool),
	}
}

// EachProduct implements Client.
func (c *StubClient) EachProduct(_ context.Context, fn func(summary Payload) error) error {
	for _, p := range c.Catalog {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// ProductDetail implements Client.
func (c *StubClient) ProductDetail(_ context.Context, registration string) (Payload, error) {
	c.DetailCalls = append(c.DetailCalls, registration)
	if c.FailDetails[registration] {
		return nil, &FetchError{Op: "detail", Registration: registration, Err: ErrStubUnavailable}
	}
	if detail, ok := c.Details[registration]; ok {
		return detail, nil
	}
	return Payload{}, nil
}

// ChangesSince implements Client.
func (c *StubClient) ChangesSince(context.Context, string) ([]types.ChangeEvent, error) {
	return c.Changes, nil
}
