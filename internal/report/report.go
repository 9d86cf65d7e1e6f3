// Package report writes research results as CSV tables and an optional
// XLSX workbook.
package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/internal/model"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatBoth = "both"
)

// table is one rendered output table. Data is always CSV; the workbook
// is built by re-reading it.
type table struct {
	suffix string
	sheet  string
	data   []byte
}

// Writer renders a model.Report under an output directory.
type Writer struct {
	dir    string
	format string
	log    *zap.Logger
}

// New creates a Writer from output config.
func New(cfg config.OutputConfig) *Writer {
	format := cfg.Format
	if format == "" {
		format = FormatCSV
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "output"
	}
	return &Writer{
		dir:    dir,
		format: format,
		log:    zap.L().With(zap.String("component", "report")),
	}
}

// Write renders every non-empty section of r and returns the files written.
func (w *Writer) Write(r *model.Report) ([]string, error) {
	if r == nil || r.Job == nil {
		return nil, eris.New("report: nothing to write")
	}
	tables, err := buildTables(r)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "report: create output dir")
	}

	prefix := filepath.Join(w.dir, r.Job.Landscape.RunKey())
	var written []string

	if w.format == FormatCSV || w.format == FormatBoth {
		for _, t := range tables {
			path := prefix + t.suffix + ".csv"
			if err := os.WriteFile(path, t.data, 0o644); err != nil {
				return written, eris.Wrapf(err, "report: write %s", path)
			}
			written = append(written, path)
		}
	}
	if w.format == FormatXLSX || w.format == FormatBoth {
		path := prefix + "_research.xlsx"
		if err := writeWorkbook(path, tables); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	for _, p := range written {
		w.log.Info("report: wrote file", zap.String("path", p))
	}
	return written, nil
}

func buildTables(r *model.Report) ([]table, error) {
	var tables []table
	add := func(suffix, sheet string, data []byte, err error) error {
		if err != nil {
			return eris.Wrapf(err, "report: render %s", suffix)
		}
		tables = append(tables, table{suffix: suffix, sheet: sheet, data: data})
		return nil
	}

	if len(r.Features) > 0 {
		data, err := analysisCSV(r.Job.FeatureNames(), r.Features)
		if err := add("_analysis", "Analysis", data, err); err != nil {
			return nil, err
		}
	}
	if len(r.Products) > 0 {
		data, err := encode(productRows(r.Products), productRow{})
		if err := add("_products", "Products", data, err); err != nil {
			return nil, err
		}
	}
	if r.Checkpoint != nil && len(r.Checkpoint.Results) > 0 {
		results := r.Checkpoint.Results
		sections := []struct {
			suffix, sheet string
			rows          any
			zero          any
		}{
			{"_deep_crawl", "Deep Crawl", deepCrawlRows(results), deepCrawlRow{}},
			{"_case_studies", "Case Studies", caseStudyRows(results), caseStudyRow{}},
			{"_pricing", "Pricing", pricingRows(results), pricingRow{}},
			{"_url_summary", "URL Summary", urlSummaryRows(results), urlSummaryRow{}},
		}
		for _, s := range sections {
			data, err := encode(s.rows, s.zero)
			if err := add(s.suffix, s.sheet, data, err); err != nil {
				return nil, err
			}
		}
	}
	return tables, nil
}

// analysisCSV writes URL, one answer column per feature, then one
// <feature>_reason column per feature. The columns depend on the rubric,
// so this table does not go through a struct encoder.
func analysisCSV(features []string, rows []model.FeatureAnalysis) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	header := make([]string, 0, 1+2*len(features))
	header = append(header, "URL")
	header = append(header, features...)
	for _, f := range features {
		header = append(header, f+"_reason")
	}
	if err := cw.Write(header); err != nil {
		return nil, err
	}

	for _, a := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, a.URL)
		reasons := make([]string, 0, len(features))
		for _, f := range features {
			v, ok := a.Verdict(f)
			if !ok {
				v = model.FeatureVerdict{Answer: model.AnswerUnsure, Reason: model.AIDataMissing}
			}
			rec = append(rec, string(v.Answer))
			reasons = append(reasons, v.Reason)
		}
		rec = append(rec, reasons...)
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// encode writes rows (a slice of structs) with csvutil. An empty slice
// still produces the header taken from zero.
func encode(rows, zero any) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(cw)

	if err := enc.Encode(rows); err != nil {
		return nil, err
	}
	cw.Flush()
	if buf.Len() == 0 {
		if err := enc.EncodeHeader(zero); err != nil {
			return nil, err
		}
		cw.Flush()
	}
	return buf.Bytes(), cw.Error()
}

func joinEntries(entries []string) string {
	return strings.Join(entries, " || ")
}
