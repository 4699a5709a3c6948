package ledger

import (
	"testing"
	"time"

	"gwreport-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func testParseConfig() ParseConfig {
	return ParseConfig{
		Layouts: []ColumnLayout{
			{Date: 0, DocumentID: 1, Kind: 2, Status: 3, Amount: 4},
		},
		DateFormats: []string{
			"2006-01-02",
			"2006.01.02",
			"2006/01/02",
			"01-02",
		},
		ReferenceYear:  2024,
		SalesTokens:    []string{"매출"},
		PurchaseTokens: []string{"매입"},
	}
}

func TestParseRow(t *testing.T) {
	cfg := testParseConfig()

	cases := []struct {
		name   string
		cells  []string
		expect CandidateRecord
		err    error
	}{
		{
			name:  "sales row",
			cells: []string{"2024-01-05", "DOC-1", "매출품의", "종결", "₩1,000,000"},
			expect: CandidateRecord{
				DocumentID: "DOC-1",
				Kind:       KindSales,
				ClosedDate: timezone.Date(2024, time.January, 5),
				Amount:     1000000,
				Status:     "종결",
			},
		},
		{
			name:  "purchase row with dotted date",
			cells: []string{"2024.02.10", "DOC-2", "매입품의", "종결", "600"},
			expect: CandidateRecord{
				DocumentID: "DOC-2",
				Kind:       KindPurchase,
				ClosedDate: timezone.Date(2024, time.February, 10),
				Amount:     600,
				Status:     "종결",
			},
		},
		{
			name:  "year-less date with weekday resolves against reference year",
			cells: []string{"10-17 (금)", "DOC-3", "매출품의", "진행중", "42"},
			expect: CandidateRecord{
				DocumentID: "DOC-3",
				Kind:       KindSales,
				ClosedDate: timezone.Date(2024, time.October, 17),
				Amount:     42,
				Status:     "진행중",
			},
		},
		{
			name:  "non-numeric amount cell",
			cells: []string{"2024-01-05", "DOC-4", "매출품의", "종결", "—"},
			err:   ErrAmountParse,
		},
		{
			name:  "unparseable date",
			cells: []string{"soon", "DOC-5", "매출품의", "종결", "10"},
			err:   ErrDateParse,
		},
		{
			name:  "unknown document kind",
			cells: []string{"2024-01-05", "DOC-6", "출장보고", "종결", "10"},
			err:   ErrKindParse,
		},
		{
			name:  "short row",
			cells: []string{"2024-01-05", "DOC-7"},
			err:   ErrShortRow,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			row := RawRow{Page: 1, Index: 0, Cells: test.cells}
			record, err := ParseRow(row, cfg)
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			test.expect.RawSource = test.cells
			require.Equal(t, test.expect, record)
		})
	}
}

func TestParseRowDeterministic(t *testing.T) {
	cfg := testParseConfig()
	row := RawRow{Page: 3, Index: 7, Cells: []string{"2024-03-01", "DOC-9", "매출품의", "종결", "12,345"}}

	first, err := ParseRow(row, cfg)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ParseRow(row, cfg)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestParseRowLayoutFallback(t *testing.T) {
	cfg := testParseConfig()
	cfg.Layouts = append([]ColumnLayout{
		{Date: 1, DocumentID: 2, Kind: 3, Status: 4, Amount: 5},
	}, cfg.Layouts...)

	// six-cell row fits the first layout, five-cell row falls back
	wide := RawRow{Cells: []string{"1", "2024-01-05", "DOC-1", "매출품의", "종결", "100"}}
	narrow := RawRow{Cells: []string{"2024-01-06", "DOC-2", "매입품의", "종결", "200"}}

	record, err := ParseRow(wide, cfg)
	require.NoError(t, err)
	require.Equal(t, "DOC-1", record.DocumentID)
	require.Equal(t, KindSales, record.Kind)

	record, err = ParseRow(narrow, cfg)
	require.NoError(t, err)
	require.Equal(t, "DOC-2", record.DocumentID)
	require.Equal(t, KindPurchase, record.Kind)
}
