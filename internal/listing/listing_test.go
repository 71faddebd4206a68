package listing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault-api/internal/models"
)

func doc(code, number, professor, date string) models.Document {
	return models.Document{
		Title:        code + number + " notes",
		CourseCode:   code,
		CourseNumber: number,
		Professor:    professor,
		Date:         date,
		FilePath:     code + "/" + number + "/file.pdf",
	}
}

func TestApplyExactFilters(t *testing.T) {
	all := []models.Document{
		doc("CS", "1113", "Alice Smith", "2024-01-10"),
		doc("CS", "2413", "Bob Jones", "2024-02-10"),
		doc("MATH", "1513", "Carol Adams", "2024-03-10"),
	}

	page := Apply(all, State{CourseCode: "CS", PageSize: 25})
	assert.Len(t, page.Rows, 2)

	page = Apply(all, State{CourseCode: "CS", CourseNumber: "2413", PageSize: 25})
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Bob Jones", page.Rows[0].Professor)
}

func TestApplySoftSearchHyphenForm(t *testing.T) {
	all := []models.Document{
		{Title: "Final Review", Term: "Fall 2024", Date: "2024-12-01", CourseCode: "CS", CourseNumber: "1113"},
		{Title: "Quiz 1", Term: "Spring 2024", Date: "2024-02-01", CourseCode: "CS", CourseNumber: "1113"},
	}

	// space-preserved form
	page := Apply(all, State{Search: "fall 2024", PageSize: 25})
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Final Review", page.Rows[0].Title)

	// space-to-hyphen form hits the raw date
	page = Apply(all, State{Search: "2024 12", PageSize: 25})
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Final Review", page.Rows[0].Title)
}

func TestApplyDateSearchWithoutHyphens(t *testing.T) {
	all := []models.Document{{Title: "A", Date: "2024-12-01"}}
	page := Apply(all, State{Search: "20241201", PageSize: 25})
	assert.Len(t, page.Rows, 1)
}

func TestSortByProfessorLastNameInitial(t *testing.T) {
	all := []models.Document{
		doc("CS", "1", "Alice Young", "2024-01-01"),
		doc("CS", "2", "Bob Adams", "2024-01-02"),
		doc("CS", "3", "Carol marsh", "2024-01-03"),
	}

	page := Apply(all, State{Sort: SortProfessor, Ascending: true, PageSize: 25})
	got := []string{page.Rows[0].Professor, page.Rows[1].Professor, page.Rows[2].Professor}
	// Compared on the upper-cased initial of the token after the final
	// space: Adams < Marsh < Young, regardless of input case.
	assert.Equal(t, []string{"Bob Adams", "Carol marsh", "Alice Young"}, got)

	page = Apply(all, State{Sort: SortProfessor, Ascending: false, PageSize: 25})
	assert.Equal(t, "Alice Young", page.Rows[0].Professor)
}

func TestSortByDateDescending(t *testing.T) {
	all := []models.Document{
		doc("CS", "1", "A B", "2023-05-01"),
		doc("CS", "2", "A B", "2024-05-01"),
	}
	page := Apply(all, State{Sort: SortDate, Ascending: false, PageSize: 25})
	assert.Equal(t, "2024-05-01", page.Rows[0].Date)
}

func TestPaginationInvariant(t *testing.T) {
	for _, total := range []int{0, 1, 24, 25, 26, 100, 101, 250} {
		for _, size := range []int{25, 50, 100} {
			all := make([]models.Document, total)
			for i := range all {
				all[i] = doc("CS", fmt.Sprintf("%04d", i), "A B", fmt.Sprintf("2024-01-%02d", i%28+1))
			}

			wantPages := (total + size - 1) / size
			var seen int
			for p := 1; p <= wantPages || p == 1; p++ {
				page := Apply(all, State{Page: p, PageSize: size})
				assert.Equal(t, wantPages, page.Pagination.TotalPages)
				assert.Equal(t, total, page.Pagination.TotalCount)
				seen += len(page.Rows)
				if wantPages == 0 {
					assert.Empty(t, page.Rows)
					break
				}
			}
			assert.Equal(t, total, seen, "total=%d size=%d", total, size)
		}
	}
}

func TestPageClamping(t *testing.T) {
	all := make([]models.Document, 30)
	for i := range all {
		all[i] = doc("CS", fmt.Sprintf("%d", i), "A B", "2024-01-01")
	}

	page := Apply(all, State{Page: 99, PageSize: 25})
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Len(t, page.Rows, 5)

	page = Apply(all, State{Page: -3, PageSize: 25})
	assert.Equal(t, 1, page.Pagination.Page)

	// unsupported page size falls back to the default
	page = Apply(all, State{Page: 1, PageSize: 33})
	assert.Equal(t, 25, page.Pagination.PageSize)
}

func TestCascadingOptions(t *testing.T) {
	all := []models.Document{
		doc("CS", "1113", "Alice Smith", "2024-01-01"),
		doc("CS", "1113", "Bob Jones", "2024-01-02"),
		doc("CS", "2413", "Carol Adams", "2024-01-03"),
		doc("MATH", "1513", "Dan Brown", "2024-01-04"),
	}

	// selecting a code never reduces the code list itself
	opts := OptionsFor(all, "CS", "")
	assert.Equal(t, []string{"CS", "MATH"}, opts.CourseCodes)
	assert.Equal(t, []string{"1113", "2413"}, opts.CourseNumbers)
	assert.Empty(t, opts.Professors)

	opts = OptionsFor(all, "CS", "1113")
	assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, opts.Professors)

	opts = OptionsFor(all, "", "")
	assert.Equal(t, []string{"CS", "MATH"}, opts.CourseCodes)
	assert.Empty(t, opts.CourseNumbers)
}
