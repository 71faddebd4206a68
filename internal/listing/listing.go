// Package listing replicates the browsing UI's client-held filter, sort, and
// pagination behavior over an already-fetched row set. It is deliberately
// independent of the server-side query normalizer: both satisfy their own
// contracts and share no pattern logic.
package listing

import (
	"sort"
	"strings"

	"github.com/studyvault/studyvault-api/internal/models"
)

// SortKey selects the comparison column.
type SortKey string

const (
	SortCourseCode SortKey = "course_code"
	SortProfessor  SortKey = "professor"
	SortDate       SortKey = "date"
)

// DefaultPageSize is used whenever the requested size is not one of the
// selectable sizes.
const DefaultPageSize = 25

var allowedPageSizes = map[int]struct{}{25: {}, 50: {}, 100: {}}

// State is the current filter/sort/page selection.
type State struct {
	CourseCode   string
	CourseNumber string
	Professor    string
	Search       string
	Sort         SortKey
	Ascending    bool
	Page         int
	PageSize     int
}

// Page is one renderable page of rows plus pagination metadata.
type Page struct {
	Rows       []models.Document
	Pagination models.Pagination
}

// Options are the cascading dropdown choices. Codes always derive from the
// full unfiltered set, numbers from the set restricted to the selected code,
// professors from the set restricted to code and number. Selecting a code
// never removes other codes from its own dropdown.
type Options struct {
	CourseCodes   []string `json:"course_codes"`
	CourseNumbers []string `json:"course_numbers"`
	Professors    []string `json:"professors"`
}

// Apply filters, sorts, and paginates the fetched row set.
func Apply(all []models.Document, st State) Page {
	rows := filter(all, st)
	sortRows(rows, st)
	return paginate(rows, st)
}

// OptionsFor derives the cascading dropdown lists from the full row set.
func OptionsFor(all []models.Document, code, number string) Options {
	codes := make(map[string]struct{})
	numbers := make(map[string]struct{})
	professors := make(map[string]struct{})

	for _, d := range all {
		codes[d.CourseCode] = struct{}{}
		if code != "" && d.CourseCode == code {
			numbers[d.CourseNumber] = struct{}{}
			if number != "" && d.CourseNumber == number {
				professors[d.Professor] = struct{}{}
			}
		}
	}

	return Options{
		CourseCodes:   sortedKeys(codes),
		CourseNumbers: sortedKeys(numbers),
		Professors:    sortedKeys(professors),
	}
}

func filter(all []models.Document, st State) []models.Document {
	needle := strings.ToLower(strings.TrimSpace(st.Search))
	hyphenated := strings.ReplaceAll(needle, " ", "-")

	out := make([]models.Document, 0, len(all))
	for _, d := range all {
		if st.CourseCode != "" && d.CourseCode != st.CourseCode {
			continue
		}
		if st.CourseNumber != "" && d.CourseNumber != st.CourseNumber {
			continue
		}
		if st.Professor != "" && d.Professor != st.Professor {
			continue
		}
		if needle != "" {
			hay := haystack(d)
			if !strings.Contains(hay, needle) && !strings.Contains(hay, hyphenated) {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// haystack concatenates every searchable field, including the date both with
// and without hyphens so "fall-2024" style needles can still land.
func haystack(d models.Document) string {
	parts := []string{
		d.Title,
		d.Professor,
		d.CourseName,
		d.CourseCode,
		d.CourseNumber,
		d.Date,
		strings.ReplaceAll(d.Date, "-", ""),
		d.Term,
		d.FilePath,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func sortRows(rows []models.Document, st State) {
	var less func(a, b models.Document) int
	switch st.Sort {
	case SortCourseCode:
		less = func(a, b models.Document) int {
			return strings.Compare(a.CourseCode, b.CourseCode)
		}
	case SortProfessor:
		less = func(a, b models.Document) int {
			return int(lastNameInitial(a.Professor)) - int(lastNameInitial(b.Professor))
		}
	case SortDate:
		less = func(a, b models.Document) int {
			return strings.Compare(a.Date, b.Date)
		}
	default:
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		cmp := less(rows[i], rows[j])
		if !st.Ascending {
			cmp = -cmp
		}
		return cmp < 0
	})
}

// lastNameInitial returns the upper-cased first letter of the token after
// the final space. Ties on the initial are not broken further.
func lastNameInitial(professor string) byte {
	name := professor
	if idx := strings.LastIndex(professor, " "); idx >= 0 {
		name = professor[idx+1:]
	}
	if name == "" {
		return 0
	}
	return strings.ToUpper(name)[0]
}

func paginate(rows []models.Document, st State) Page {
	size := st.PageSize
	if _, ok := allowedPageSizes[size]; !ok {
		size = DefaultPageSize
	}

	total := len(rows)
	totalPages := (total + size - 1) / size

	page := st.Page
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Rows: rows[start:end],
		Pagination: models.Pagination{
			Page:       page,
			PageSize:   size,
			TotalCount: total,
			TotalPages: totalPages,
		},
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
