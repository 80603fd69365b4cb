package history

import (
	"context"

	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
)

// RevertPlan is the outcome of ComputeRevert.
type RevertPlan struct {
	// Values is the current state with every restorable field set back to
	// its pre value.
	Values models.AddressFields
	// Restored and Conflicts partition the tracked fields.
	Restored  []string
	Conflicts []string
	// NoOp is set for creation changes, which have nothing to go back to.
	NoOp bool
}

// RevertResult reports what Revert did. The flags are not exclusive.
type RevertResult struct {
	NoOp      bool                  `json:"no-op"`
	Conflicts []string              `json:"conflict"`
	Address   *models.Address       `json:"address,omitempty"`
	Change    *models.AddressChange `json:"change,omitempty"`
}

// ComputeRevert works out how to undo change on top of current. A field goes
// back to its pre value only while current still holds the post value;
// otherwise it is left alone and named in Conflicts. A deletion is undone as
// if its post snapshot were pre with deleted set.
func ComputeRevert(current models.AddressFields, change *models.AddressChange) (RevertPlan, error) {
	plan := RevertPlan{Values: current.Clone(), Restored: []string{}, Conflicts: []string{}}
	if change.Pre == nil {
		plan.NoOp = true
		return plan, nil
	}

	pre := &change.Pre.AddressFields
	post := change.Post
	if post == nil {
		deleted := *change.Pre
		deleted.AddressFields = pre.Clone()
		deleted.Deleted = true
		post = &deleted
	}

	for _, name := range models.TrackedAddressFields() {
		eq, err := models.FieldEqual(&current, &post.AddressFields, name)
		if err != nil {
			return RevertPlan{}, err
		}
		if !eq {
			plan.Conflicts = append(plan.Conflicts, name)
			continue
		}
		if err := plan.Values.CopyField(pre, name); err != nil {
			return RevertPlan{}, err
		}
		plan.Restored = append(plan.Restored, name)
	}
	plan.Values.ComputeStreet()
	return plan, nil
}

// Revert undoes the change with the given id through Track, so the revert
// is itself recorded. The plan is computed against the locked row.
func (t *Tracker) Revert(ctx context.Context, store repository.Store, changeID int64, actor string) (RevertResult, error) {
	change, err := store.Changes().Get(ctx, changeID)
	if err != nil {
		return RevertResult{}, err
	}
	if change.Pre == nil {
		return RevertResult{NoOp: true, Conflicts: []string{}}, nil
	}

	var plan RevertPlan
	address, recorded, err := t.Track(ctx, store, change.AddressID, actor, func(f *models.AddressFields) error {
		var err error
		if plan, err = ComputeRevert(*f, change); err != nil {
			return err
		}
		*f = plan.Values
		return nil
	})
	if err != nil {
		return RevertResult{}, err
	}
	return RevertResult{NoOp: plan.NoOp, Conflicts: plan.Conflicts, Address: address, Change: recorded}, nil
}
