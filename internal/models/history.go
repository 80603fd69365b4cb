package models

import "time"

// AddressBatch groups the addresses created by one import.
type AddressBatch struct {
	ID        int64     `db:"id" json:"id"`
	Tag       string    `db:"tag" json:"tag"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BatchSummary is a batch with its member count.
type BatchSummary struct {
	AddressBatch
	Members int64 `db:"members" json:"members"`
}

// AddressSnapshot is an immutable copy of an address at one point in time.
type AddressSnapshot struct {
	ID        int64 `db:"id" json:"id"`
	AddressID int64 `db:"address_id" json:"address_id"`
	AddressFields
	TakenAt time.Time `db:"taken_at" json:"taken_at"`
}

// ChangeKind classifies a change by which snapshots it carries.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// AddressChange is one entry of the append-only audit log. A missing pre
// snapshot marks a creation, a missing post snapshot a deletion.
type AddressChange struct {
	ID        int64     `db:"id" json:"id"`
	AddressID int64     `db:"address_id" json:"address_id"`
	ChangedBy string    `db:"changed_by" json:"changed_by"`
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`
	PreID     *int64    `db:"pre_id" json:"pre_id"`
	PostID    *int64    `db:"post_id" json:"post_id"`

	Pre  *AddressSnapshot `db:"-" json:"pre,omitempty"`
	Post *AddressSnapshot `db:"-" json:"post,omitempty"`
}

// Kind derives the change kind from the snapshot references.
func (c AddressChange) Kind() ChangeKind {
	switch {
	case c.PreID == nil:
		return ChangeCreated
	case c.PostID == nil:
		return ChangeDeleted
	default:
		return ChangeUpdated
	}
}

// NewSnapshot copies the fields of a into a snapshot stamped at takenAt.
func NewSnapshot(a *Address, takenAt time.Time) *AddressSnapshot {
	return &AddressSnapshot{
		AddressID:     a.ID,
		AddressFields: a.AddressFields.Clone(),
		TakenAt:       takenAt,
	}
}
