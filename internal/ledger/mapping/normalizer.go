package mapping

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// LocationSeparator joins primary and secondary location values
const LocationSeparator = " / "

var maxQuantity = decimal.NewFromInt(1_000_000_000)

// CombineLocation builds the location key from the primary and secondary
// values, primary first. Blank input resolves to domain.UnspecifiedLocation.
func CombineLocation(primary, secondary string) string {
	primary = strings.TrimSpace(primary)
	secondary = strings.TrimSpace(secondary)

	switch {
	case primary != "" && secondary != "":
		return primary + LocationSeparator + secondary
	case primary != "":
		return primary
	case secondary != "":
		return secondary
	default:
		return domain.UnspecifiedLocation
	}
}

// ParseQuantity reads a quantity cell. Thousands separators are ignored and
// fractions are truncated; anything that does not yield a positive whole
// number is rejected.
func ParseQuantity(raw string) (int, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	d = d.Truncate(0)
	if !d.IsPositive() || d.GreaterThan(maxQuantity) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// NormalizeRow turns one raw row into a tuple. The boolean is false when the
// row must be dropped: blank part number, or a quantity that is not a
// positive number. Headers are only consulted when the part role is
// unmapped, to fall back on the classifier's guess.
func NormalizeRow(row []string, m domain.Mapping, headers []string) (domain.Tuple, bool) {
	partCol := m.Part
	if partCol == domain.NoColumn {
		partCol = Classify(headers).Part
	}

	partNumber := cell(row, partCol)
	if partNumber == "" {
		return domain.Tuple{}, false
	}

	qty := 1
	if raw := cell(row, m.Quantity); m.Quantity != domain.NoColumn && raw != "" {
		parsed, ok := ParseQuantity(raw)
		if !ok {
			return domain.Tuple{}, false
		}
		qty = parsed
	}

	return domain.Tuple{
		PartNumber:  partNumber,
		Location:    CombineLocation(cell(row, m.Location), cell(row, m.Location2)),
		Quantity:    qty,
		Description: cell(row, m.Description),
	}, true
}

// NormalizeRows normalizes every row, silently dropping rejected ones
func NormalizeRows(rows [][]string, m domain.Mapping, headers []string) []domain.Tuple {
	tuples := make([]domain.Tuple, 0, len(rows))
	for _, row := range rows {
		if t, ok := NormalizeRow(row, m, headers); ok {
			tuples = append(tuples, t)
		}
	}
	return tuples
}

// cell returns the trimmed value at idx; short rows read as blank
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
