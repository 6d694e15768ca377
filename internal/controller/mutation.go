package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/opspanel/opspanel/pkg/model"
)

// MutationKind names the row operations the orchestrator manages.
type MutationKind string

const (
	MutationDelete  MutationKind = "delete"
	MutationApprove MutationKind = "approve"
	MutationReject  MutationKind = "reject"
)

// Destructive reports whether the kind requires human confirmation before a
// bulk run.
func (k MutationKind) Destructive() bool {
	return k == MutationDelete
}

func (k MutationKind) past() string {
	switch k {
	case MutationDelete:
		return "deleted"
	case MutationApprove:
		return "approved"
	case MutationReject:
		return "rejected"
	default:
		return string(k)
	}
}

// ConfirmationGate asks the human before destructive bulk actions.
type ConfirmationGate interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// NotificationGate surfaces operation outcomes to the user. Fire and
// forget; the engine never consumes a return value.
type NotificationGate interface {
	Success(message string)
	Error(message string)
}

// Mutator is the slice of the resource API the orchestrator needs.
// *apiclient.Client satisfies it.
type Mutator interface {
	Delete(ctx context.Context, resource model.Resource, id string) error
	DeleteBatch(ctx context.Context, resource model.Resource, ids []string) (model.BulkOutcome, error)
	Approve(ctx context.Context, resource model.Resource, id string) error
	Reject(ctx context.Context, resource model.Resource, id string) error
	BulkApprove(ctx context.Context, resource model.Resource, ids []string) (model.BulkOutcome, error)
	BulkReject(ctx context.Context, resource model.Resource, ids []string) (model.BulkOutcome, error)
}

// Orchestrator wraps single and bulk mutations for one view: confirmation
// before destructive bulk actions, cache invalidation and selection pruning
// on success, and both counts surfaced on partial bulk failure.
type Orchestrator struct {
	resource  model.Resource
	mutator   Mutator
	cache     *Coordinator
	selection *Selection
	confirm   ConfirmationGate
	notify    NotificationGate
	pending   atomic.Int32
}

// NewOrchestrator wires an orchestrator to its collaborators.
func NewOrchestrator(resource model.Resource, mutator Mutator, cache *Coordinator,
	selection *Selection, confirm ConfirmationGate, notify NotificationGate) *Orchestrator {
	return &Orchestrator{
		resource:  resource,
		mutator:   mutator,
		cache:     cache,
		selection: selection,
		confirm:   confirm,
		notify:    notify,
	}
}

// Pending reports whether any mutation is between issue and terminal state.
// Views keep their inputs disabled while this is true.
func (o *Orchestrator) Pending() bool {
	return o.pending.Load() > 0
}

// MutateSingle runs one operation against one row. On success the resource
// cache is invalidated and the id pruned from the selection. A vanished row
// is pruned silently without a user-facing error.
func (o *Orchestrator) MutateSingle(ctx context.Context, kind MutationKind, id string) error {
	o.pending.Add(1)
	defer o.pending.Add(-1)

	var err error
	switch kind {
	case MutationDelete:
		err = o.mutator.Delete(ctx, o.resource, id)
	case MutationApprove:
		err = o.mutator.Approve(ctx, o.resource, id)
	case MutationReject:
		err = o.mutator.Reject(ctx, o.resource, id)
	default:
		return fmt.Errorf("unknown mutation kind: %s", kind)
	}

	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// The row was already gone; the end state is what the user asked
			// for, so resync quietly.
			slog.Debug("row vanished before mutation", "resource", o.resource, "id", id)
			o.cache.Invalidate(ctx, o.resource)
			o.selection.Prune([]string{id})
			return nil
		}
		slog.Warn("mutation failed", "resource", o.resource, "kind", kind, "id", id, "error", err)
		o.notify.Error(err.Error())
		return err
	}

	o.cache.Invalidate(ctx, o.resource)
	o.selection.Prune([]string{id})
	o.notify.Success(fmt.Sprintf("1 item %s", kind.past()))
	return nil
}

// MutateBulk runs one operation against many rows. Destructive kinds go
// through the confirmation gate first. The result accounts for every
// requested id; a partial failure is reported with both counts and the
// failed ids stay selected for retry.
func (o *Orchestrator) MutateBulk(ctx context.Context, kind MutationKind, ids []string) (model.BulkResult, error) {
	if len(ids) == 0 {
		return model.BulkResult{}, nil
	}

	o.pending.Add(1)
	defer o.pending.Add(-1)

	if kind.Destructive() && o.confirm != nil {
		ok, err := o.confirm.Confirm(ctx, fmt.Sprintf("Delete %d items?", len(ids)))
		if err != nil {
			return model.BulkResult{RequestedIDs: ids, FailedIDs: ids}, err
		}
		if !ok {
			slog.Debug("bulk mutation declined", "resource", o.resource, "kind", kind, "count", len(ids))
			return model.BulkResult{RequestedIDs: ids, FailedIDs: ids}, model.ErrDeclined
		}
	}

	var (
		outcome model.BulkOutcome
		err     error
	)
	switch kind {
	case MutationDelete:
		outcome, err = o.mutator.DeleteBatch(ctx, o.resource, ids)
	case MutationApprove:
		outcome, err = o.mutator.BulkApprove(ctx, o.resource, ids)
	case MutationReject:
		outcome, err = o.mutator.BulkReject(ctx, o.resource, ids)
	default:
		return model.BulkResult{}, fmt.Errorf("unknown mutation kind: %s", kind)
	}

	if err != nil {
		slog.Warn("bulk mutation failed", "resource", o.resource, "kind", kind, "count", len(ids), "error", err)
		o.notify.Error(err.Error())
		return model.BulkResult{RequestedIDs: ids, FailedIDs: ids}, err
	}

	res := model.ReconcileBulk(ids, outcome)
	if res.SucceededCount > 0 {
		o.cache.Invalidate(ctx, o.resource)
	}
	o.selection.Prune(res.SucceededIDs)

	if res.AllSucceeded() {
		o.notify.Success(fmt.Sprintf("%d items %s", len(ids), kind.past()))
		return res, nil
	}

	o.notify.Error(fmt.Sprintf("%d of %d items %s", res.SucceededCount, len(ids), kind.past()))
	return res, res.Err()
}
