// Package rules implements the role-gated asset state machine.
//
// The engine is pure: it validates a proposed transition against the current
// entry and returns the next Asset value without touching storage, the chain
// or the caller's projection.
package rules

import (
	"fmt"
	"strings"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

// Transition is one row of the state machine.
type Transition struct {
	Function string
	// From is the status the asset must be in; empty means the asset must not exist.
	From ledger.Status
	Role ledger.Role
	To   ledger.Status
}

// Transitions is the full state machine in lifecycle order.
var Transitions = []Transition{
	{Function: ledger.FuncCreateAsset, From: "", Role: ledger.RoleSupplier, To: ledger.StatusHarvested},
	{Function: ledger.FuncProcessAsset, From: ledger.StatusHarvested, Role: ledger.RoleProcessor, To: ledger.StatusProcessed},
	{Function: ledger.FuncTransportAsset, From: ledger.StatusProcessed, Role: ledger.RoleLogistics, To: ledger.StatusInTransit},
	{Function: ledger.FuncReceiveAsset, From: ledger.StatusInTransit, Role: ledger.RoleRetailer, To: ledger.StatusOnShelf},
}

// Lookup returns the transition for functionName.
func Lookup(functionName string) (Transition, bool) {
	for _, t := range Transitions {
		if t.Function == functionName {
			return t, true
		}
	}
	return Transition{}, false
}

// Engine validates and applies transitions.
type Engine struct{}

// New returns an Engine.
func New() *Engine { return &Engine{} }

// Apply validates (role, functionName, raw) against current, which is nil when
// no entry exists for the id, and returns the next projection stamped with now.
//
// Checks run in a fixed order and the first failure wins: id present, existence,
// role, current status, known function, remaining required arguments.
func (e *Engine) Apply(role ledger.Role, functionName string, raw map[string]string, current *ledger.Entry, now int64) (ledger.Asset, error) {
	id := strings.TrimSpace(raw["id"])
	if id == "" {
		return ledger.Asset{}, ledger.Errorf(ledger.KindInvalidArgument, "asset id is required")
	}

	if functionName == ledger.FuncCreateAsset {
		if current != nil {
			return ledger.Asset{}, ledger.Errorf(ledger.KindAlreadyExists, "asset %s already exists", id)
		}
	} else if current == nil {
		return ledger.Asset{}, ledger.Errorf(ledger.KindNotFound, "asset %s does not exist", id)
	}

	t, known := Lookup(functionName)
	if known {
		if role != t.Role {
			return ledger.Asset{}, ledger.Errorf(ledger.KindUnauthorized,
				"%s requires role %s, invoked by %s", functionName, t.Role, role)
		}
		if current != nil && current.Asset.Status != t.From {
			return ledger.Asset{}, ledger.Errorf(ledger.KindInvalidStateTransition,
				"%s requires status %s, asset %s is %s", functionName, t.From, id, current.Asset.Status)
		}
	}

	args, ok := Decode(functionName, raw)
	if !known || !ok {
		return ledger.Asset{}, ledger.Errorf(ledger.KindUnknownOperation, "unknown function %q", functionName)
	}
	if missing := args.missing(); len(missing) > 0 {
		return ledger.Asset{}, ledger.Errorf(ledger.KindInvalidArgument,
			"%s: missing required argument(s) %s", functionName, strings.Join(missing, ", "))
	}

	var next ledger.Asset
	if current != nil {
		next = current.Asset
	} else {
		next.CreateTime = now
	}
	args.applyTo(&next)
	next.Status = t.To
	next.Owner = role
	next.LastUpdated = now
	return next, nil
}

// Replay rebuilds the projection of an asset by applying every block of
// history from genesis, each at its own timestamp.
func (e *Engine) Replay(history []ledger.Block) (ledger.Asset, error) {
	if len(history) == 0 {
		return ledger.Asset{}, ledger.Errorf(ledger.KindInvalidArgument, "empty history")
	}
	var current *ledger.Entry
	for i, blk := range history {
		next, err := e.Apply(blk.InvokerRole, blk.FunctionName, blk.Inputs, current, blk.Timestamp)
		if err != nil {
			return ledger.Asset{}, fmt.Errorf("replay block %d: %w", i, err)
		}
		current = &ledger.Entry{Asset: next}
	}
	return current.Asset, nil
}
