package picker

import (
	"fmt"

	"github.com/standardbeagle/picket/internal/bridge"
	"github.com/standardbeagle/picket/internal/dom"
	"github.com/standardbeagle/picket/internal/fiber"
)

// RegisterResolver wires the page-realm resolver onto the bridge
// channel. The session only ever talks to the channel; this is the one
// place the two realms meet.
func RegisterResolver(ch *bridge.Local, r *fiber.Resolver) {
	ch.Handle(bridge.KindResolve, func(payload any) (any, error) {
		node, ok := payload.(*dom.Node)
		if !ok {
			return nil, fmt.Errorf("resolve: payload is %T, want *dom.Node", payload)
		}
		return &Resolution{
			Component: r.Resolve(node),
			Stack:     r.ResolveStack(node),
		}, nil
	})

	ch.Handle(bridge.KindResolveStack, func(payload any) (any, error) {
		node, ok := payload.(*dom.Node)
		if !ok {
			return nil, fmt.Errorf("resolve-stack: payload is %T, want *dom.Node", payload)
		}
		return r.ResolveStack(node), nil
	})
}
