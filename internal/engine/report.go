package engine

// Remap maps ids of deleted duplicates to the id of their survivor.
type Remap struct {
	Categories    map[string]string
	Subcategories map[string]string
}

// NewRemap returns an empty remap table.
func NewRemap() Remap {
	return Remap{
		Categories:    make(map[string]string),
		Subcategories: make(map[string]string),
	}
}

// Category returns the survivor for a category id, or the id itself.
func (r Remap) Category(id string) (string, bool) {
	if to, ok := r.Categories[id]; ok {
		return to, true
	}
	return id, false
}

// Subcategory returns the survivor for a subcategory id, or the id itself.
func (r Remap) Subcategory(id string) (string, bool) {
	if to, ok := r.Subcategories[id]; ok {
		return to, true
	}
	return id, false
}

// Len returns the number of remapped ids.
func (r Remap) Len() int {
	return len(r.Categories) + len(r.Subcategories)
}

// SeedReport summarizes one seeding run.
type SeedReport struct {
	Repair               *RepairReport
	CatalogVersion       string
	CategoriesCreated    int
	CategoriesUpdated    int
	SubcategoriesCreated int
	SubcategoriesUpdated int
}

// Changed reports whether the run wrote any category or subcategory.
func (r *SeedReport) Changed() bool {
	return r.CategoriesCreated+r.CategoriesUpdated+r.SubcategoriesCreated+r.SubcategoriesUpdated > 0
}

// DedupReport summarizes one deduplication run.
type DedupReport struct {
	Remap                Remap
	Repair               *RepairReport
	CategoriesRemoved    int
	CategoriesPromoted   int
	SubcategoriesRemoved int
	SubcategoriesMoved   int
	SubcategoriesPinned  int
}

// RepairReason explains why a task's links changed.
type RepairReason string

// Repair reasons.
const (
	ReasonRemapped            RepairReason = "remapped"
	ReasonAdoptedParent       RepairReason = "adopted_subcategory_parent"
	ReasonFallback            RepairReason = "fallback"
	ReasonDanglingSubcategory RepairReason = "dangling_subcategory"
	ReasonParentMismatch      RepairReason = "subcategory_parent_mismatch"
)

// LinkChange records one task update made by link repair.
type LinkChange struct {
	TaskID          string         `json:"task_id"`
	FromCategory    string         `json:"from_category"`
	ToCategory      string         `json:"to_category"`
	FromSubcategory string         `json:"from_subcategory,omitempty"`
	ToSubcategory   string         `json:"to_subcategory,omitempty"`
	Reasons         []RepairReason `json:"reasons"`
}

// RepairReport summarizes one link repair run. Unresolved counts tasks left
// dangling because the owner has no categories at all.
type RepairReport struct {
	Changes    []LinkChange
	Scanned    int
	Updated    int
	Unresolved int
}

// ResetReport combines the phases of a force reset.
type ResetReport struct {
	Dedup *DedupReport
	Seed  *SeedReport
}
