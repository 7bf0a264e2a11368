package projection

import "time"

// Metadata carries the backend timestamps of a stored resource.
type Metadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LastModified is the most recent write time known for the resource.
func (m Metadata) LastModified() time.Time {
	if m.UpdatedAt.After(m.CreatedAt) {
		return m.UpdatedAt
	}
	return m.CreatedAt
}

// Projection pairs a resource read from the backend with its metadata.
type Projection[T any] struct {
	Entity   T
	Metadata Metadata
}

// New builds a projection stamped with the given timestamps.
func New[T any](entity T, createdAt, updatedAt time.Time) *Projection[T] {
	return &Projection[T]{
		Entity:   entity,
		Metadata: Metadata{CreatedAt: createdAt, UpdatedAt: updatedAt},
	}
}
