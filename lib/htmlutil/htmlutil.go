package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText collapses scraped text into a single printable line.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// CellTexts extracts the cleaned text of every cell in a listing row.
// <td>/<th> cells are preferred, direct children otherwise (some
// listings render rows as <li> with <div> cells).
func CellTexts(row *goquery.Selection) []string {
	cells := row.Find("td, th")
	if cells.Length() == 0 {
		cells = row.Children()
	}

	texts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, CleanText(cell.Text()))
	})
	return texts
}

// IsHeaderRow reports whether a row only labels columns.
func IsHeaderRow(row *goquery.Selection) bool {
	if row.Closest("thead").Length() > 0 {
		return true
	}
	return row.Find("th").Length() > 0 && row.Find("td").Length() == 0
}
