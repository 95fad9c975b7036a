package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/scopeview/internal/model"
)

// WriteCSV writes every sample of ds as `Time(s),<channel names>` rows. Time
// keeps nine fractional digits in exponent form, values six.
func WriteCSV(w io.Writer, ds *model.Dataset) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Time(s)"}, ds.ChannelNames()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(header))
	for i, t := range ds.Time {
		record[0] = strconv.FormatFloat(t, 'e', 9, 64)
		for j, ch := range ds.Channels {
			record[j+1] = strconv.FormatFloat(ch.Values[i], 'e', 6, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
