package shared

// ListFilters carries common listing parameters for master data modules.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}
