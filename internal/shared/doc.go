// Package shared holds code used by several kpiboard packages that belongs to
// none of them. Today that is only the testutil subpackage:
//
//   - SampleGrid, SampleCSV and SampleValues: one sheet export with every KPI,
//     a header row and unrecognized rows, in grid, CSV and Sheets API shape
//   - ServiceAccountKey: a well-formed but unusable service credential
//   - DisplayHTML: a minimal board page with the given row labels
//   - NewTestLogger / BufferedSlogHandler: capture slog output for assertions
//
// Example:
//
//	func TestPresenter(t *testing.T) {
//		logger, logs := testutil.NewTestLogger(t)
//		ext := extract.Extract(testutil.SampleGrid(), extract.DefaultOptions())
//		...
//		testutil.AssertNoErrors(t, logs)
//	}
package shared
