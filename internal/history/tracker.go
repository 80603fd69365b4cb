// Package history records every tracked address mutation as a pair of
// snapshots and reverts recorded changes with per-field conflict detection.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
)

// Mutation edits a working copy of an address in place. An error aborts the
// change and is returned from Track unchanged.
type Mutation func(f *models.AddressFields) error

// Tracker writes audit records. Every method takes the store to run on, so
// the caller decides the transaction scope.
type Tracker struct {
	now func() time.Time
}

// NewTracker returns a Tracker stamping changes with the current time.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// WithClock returns a copy of t that reads change times from now.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	cp := *t
	cp.now = now
	return &cp
}

func (t *Tracker) stamp() time.Time {
	return t.now().UTC()
}

// Track applies mutate to the persisted address in one transaction: the row
// is locked and snapshotted (pre), a copy is mutated and saved, the result is
// snapshotted (post) and the change is written. Both snapshots carry the same
// time. When mutate leaves every tracked field as it was, nothing is written
// and the returned change is nil.
func (t *Tracker) Track(ctx context.Context, store repository.Store, addressID int64, actor string, mutate Mutation) (*models.Address, *models.AddressChange, error) {
	var (
		updated *models.Address
		change  *models.AddressChange
	)
	err := store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Addresses().GetForUpdate(ctx, addressID)
		if err != nil {
			return err
		}

		next := *current
		next.AddressFields = current.AddressFields.Clone()
		if err := mutate(&next.AddressFields); err != nil {
			return err
		}
		next.ComputeStreet()

		if same, err := sameTracked(&current.AddressFields, &next.AddressFields); err != nil || same {
			updated = current
			return err
		}

		at := t.stamp()
		pre := models.NewSnapshot(current, at)
		if err := tx.Addresses().Update(ctx, &next); err != nil {
			return err
		}
		post := models.NewSnapshot(&next, at)

		change, err = t.write(ctx, tx, addressID, actor, at, pre, post)
		updated = &next
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, change, nil
}

// Delete soft-deletes the address and records a change without a post
// snapshot. Deleting an address twice records nothing the second time.
func (t *Tracker) Delete(ctx context.Context, store repository.Store, addressID int64, actor string) (*models.AddressChange, error) {
	var change *models.AddressChange
	err := store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Addresses().GetForUpdate(ctx, addressID)
		if err != nil {
			return err
		}
		if current.Deleted {
			return nil
		}

		at := t.stamp()
		pre := models.NewSnapshot(current, at)
		current.Deleted = true
		if err := tx.Addresses().Update(ctx, current); err != nil {
			return err
		}

		change, err = t.write(ctx, tx, addressID, actor, at, pre, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// RecordCreation records the creation of a, which must already be saved.
// Run it on the store that created a so both commit together.
func (t *Tracker) RecordCreation(ctx context.Context, store repository.Store, a *models.Address, actor string) (*models.AddressChange, error) {
	at := t.stamp()
	return t.write(ctx, store, a.ID, actor, at, nil, models.NewSnapshot(a, at))
}

func (t *Tracker) write(ctx context.Context, store repository.Store, addressID int64, actor string, at time.Time, pre, post *models.AddressSnapshot) (*models.AddressChange, error) {
	change := &models.AddressChange{
		AddressID: addressID,
		ChangedBy: actor,
		ChangedAt: at,
	}
	for _, snap := range []*models.AddressSnapshot{pre, post} {
		if snap == nil {
			continue
		}
		if err := store.Changes().CreateSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to record snapshot: %w", err)
		}
	}
	if pre != nil {
		change.PreID, change.Pre = &pre.ID, pre
	}
	if post != nil {
		change.PostID, change.Post = &post.ID, post
	}

	if err := store.Changes().Create(ctx, change); err != nil {
		return nil, fmt.Errorf("failed to record change: %w", err)
	}
	return change, nil
}

func sameTracked(a, b *models.AddressFields) (bool, error) {
	for _, name := range models.TrackedAddressFields() {
		eq, err := models.FieldEqual(a, b, name)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}
