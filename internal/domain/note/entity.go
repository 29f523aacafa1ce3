// internal/domain/note/entity.go
package note

import "time"

// Note is a single note record. Notes live only in memory; the id is
// generated client-side of any real backend.
type Note struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Pinned     bool      `json:"pinned"`
	Color      string    `json:"color,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a copy safe to hand to callers while the original keeps
// being mutated under the store's lock.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Tags = append([]string(nil), n.Tags...)
	return &cp
}

// SortKey selects the ordering of a note listing. Pinned notes always sort
// ahead of unpinned notes regardless of the key.
type SortKey string

const (
	SortByTitle   SortKey = "title"   // lexicographic ascending
	SortByCreated SortKey = "created" // newest first
	SortByUpdated SortKey = "updated" // newest first
)
