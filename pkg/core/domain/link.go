package domain

import "time"

// Link is a short path redirecting to a target URL, owned by exactly one user.
type Link struct {
	Path    string    `json:"path,omitempty"` // Populated on reads; the path is the record key
	Target  string    `json:"target"`
	Owner   string    `json:"owner"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	Count   int64     `json:"count"`
}

// Field names of a link record.
const (
	FieldTarget  = "target"
	FieldOwner   = "owner"
	FieldCreated = "created"
	FieldUpdated = "updated"
	FieldCount   = "count"
)

// IsUpdatableProperty reports whether name may be changed through a property
// update. Owner, timestamps and the counter are maintained by the link store.
func IsUpdatableProperty(name string) bool {
	return name == FieldTarget
}

// WithProperty returns a copy of l with the named property replaced.
func (l Link) WithProperty(name, value string, now time.Time) Link {
	switch name {
	case FieldTarget:
		l.Target = value
	}
	l.Updated = now
	return l
}
