package shared

// Filter carries list-query options from the HTTP layer down to the
// repositories. Filters holds column criteria the repository knows how
// to interpret, like status, user_id or stop_desk; Search matches the
// order reference and the guest contact fields.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// DefaultFilter lists newest orders first, twenty per page.
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}
