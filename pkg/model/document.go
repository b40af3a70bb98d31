package model

import "time"

// Accessors required by the generic store. IDs are ObjectID hex strings.

func (t *Tour) GetID() string             { return t.ID }
func (t *Tour) SetID(id string)           { t.ID = id }
func (t *Tour) SetCreatedAt(ts time.Time) { t.CreatedAt = ts }

func (u *User) GetID() string             { return u.ID }
func (u *User) SetID(id string)           { u.ID = id }
func (u *User) SetCreatedAt(ts time.Time) { u.CreatedAt = ts }

func (r *Review) GetID() string             { return r.ID }
func (r *Review) SetID(id string)           { r.ID = id }
func (r *Review) SetCreatedAt(ts time.Time) { r.CreatedAt = ts }

func (b *Booking) GetID() string             { return b.ID }
func (b *Booking) SetID(id string)           { b.ID = id }
func (b *Booking) SetCreatedAt(ts time.Time) { b.CreatedAt = ts }
