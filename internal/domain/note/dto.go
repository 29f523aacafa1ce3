// internal/domain/note/dto.go
package note

// Draft is the payload for creating a note.
type Draft struct {
	Title    string   `json:"title" binding:"required"`
	Body     string   `json:"body"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Color    string   `json:"color"`
	Pinned   bool     `json:"pinned"`
}

// Patch carries partial updates for a note. Nil fields are left untouched.
type Patch struct {
	Title    *string   `json:"title"`
	Body     *string   `json:"body"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
	Color    *string   `json:"color"`
	Pinned   *bool     `json:"pinned"`
}

// ListQuery narrows and orders a note listing. Zero values mean "no filter"
// and the default updated-descending sort.
type ListQuery struct {
	Search   string  `form:"q"`
	Category string  `form:"category"`
	Sort     SortKey `form:"sort"`
}
