package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCellTexts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table>
			<thead><tr><th>date</th><th>amount</th></tr></thead>
			<tbody>
				<tr><td> 2024-01-05 </td><td>1,000,000
				</td></tr>
			</tbody>
		</table>
		<ul class="tableBody">
			<li><div>2024-02-01</div><div>500</div></li>
		</ul>
	`))
	if err != nil {
		t.Fatal(err)
	}

	rows := doc.Find("tbody tr")
	require.Equal(t, 1, rows.Length())
	require.Equal(t, []string{"2024-01-05", "1,000,000"}, CellTexts(rows.First()))

	items := doc.Find("ul.tableBody > li")
	require.Equal(t, []string{"2024-02-01", "500"}, CellTexts(items.First()))

	header := doc.Find("thead tr").First()
	require.True(t, IsHeaderRow(header))
	require.False(t, IsHeaderRow(rows.First()))
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "a b c", CleanText("  a \n\t b   c "))
	require.Equal(t, "10-17 (금)", CleanText(" 10-17 (금)\n"))
}
