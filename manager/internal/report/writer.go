package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultFileName is the timestamped report name used when the caller gives
// only a directory.
func DefaultFileName(campaignID string, at time.Time) string {
	return fmt.Sprintf("campaign_%s_%s.json", campaignID, at.UTC().Format("20060102T150405Z"))
}

// WriteJSON writes the document to path. An existing file is never replaced.
func (r *Report) WriteJSON(path string) error {
	return writeOnce(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.Document())
	})
}

var csvHeader = []string{
	"index", "name", "strategy_kind", "target_scheme", "status",
	"input_count", "recovered_count", "elapsed_seconds", "recovery_rate", "partial", "note",
}

// WriteCSV writes the per-phase summary table.
func (r *Report) WriteCSV(path string) error {
	return writeOnce(path, func(w io.Writer) error {
		return r.EncodeCSV(w)
	})
}

func (r *Report) EncodeCSV(w io.Writer) error {
	doc := r.Document()
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range doc.Phases {
		record := []string{
			strconv.Itoa(p.Index),
			p.Name,
			string(p.StrategyKind),
			p.TargetScheme,
			string(p.Status),
			strconv.Itoa(p.InputCount),
			strconv.Itoa(p.RecoveredCount),
			strconv.FormatFloat(p.ElapsedSeconds, 'f', 3, 64),
			strconv.FormatFloat(p.RecoveryRate, 'f', 4, 64),
			strconv.FormatBool(p.Partial),
			p.Note,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeOnce(path string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create report dir")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "create report %s", path)
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write report %s", path)
	}
	return errors.Wrapf(f.Close(), "close report %s", path)
}

// Markdown renders a human summary of the report.
func (r *Report) Markdown() string {
	doc := r.Document()
	var b strings.Builder
	title := doc.Name
	if title == "" {
		title = doc.CampaignID
	}
	fmt.Fprintf(&b, "# Campaign %s\n\n", title)
	fmt.Fprintf(&b, "- **Campaign id:** `%s`\n", doc.CampaignID)
	fmt.Fprintf(&b, "- **Digests:** %d (malformed lines skipped: %d, already known: %d)\n",
		doc.InitialCount, doc.MalformedCount, doc.PreRecoveredCount)
	if env := doc.Environment; env != nil {
		engine := env.EngineVersion
		if engine == "" {
			engine = env.EngineBinary + " (version unknown)"
		}
		fmt.Fprintf(&b, "- **Engine:** %s on %s/%s, %d CPUs\n", engine, env.OS, env.Arch, env.CPUs)
	}
	if doc.HaltReason != "" {
		fmt.Fprintf(&b, "- **Halted:** %s\n", doc.HaltReason)
	}
	b.WriteString("\n| # | Phase | Kind | Status | Input | Recovered | Rate | Elapsed |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, p := range doc.Phases {
		status := string(p.Status)
		if p.Partial {
			status += " (partial)"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %d | %.1f%% | %s |\n",
			p.Index, tableCell(p.Name), p.StrategyKind, status, p.InputCount, p.RecoveredCount,
			p.RecoveryRate*100, formatSeconds(p.ElapsedSeconds))
	}
	if t := doc.Totals; t != nil {
		b.WriteString("\n## Totals\n\n")
		fmt.Fprintf(&b, "- **Recovered:** %d\n", t.CumulativeRecovered+t.PreRecovered)
		fmt.Fprintf(&b, "- **Remaining:** %d\n", t.Remaining)
		fmt.Fprintf(&b, "- **Overall rate:** %.1f%%\n", t.OverallRecoveryRate*100)
		fmt.Fprintf(&b, "- **Elapsed:** %s\n", formatSeconds(t.CumulativeElapsedSeconds))
	}
	var notes []string
	for _, p := range doc.Phases {
		if p.Note != "" {
			notes = append(notes, fmt.Sprintf("- phase %d: %s", p.Index, singleLine(p.Note)))
		}
	}
	if len(notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func formatSeconds(s float64) string {
	return (time.Duration(s * float64(time.Second))).Round(time.Millisecond).String()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

// tableCell keeps s inside one Markdown table cell.
func tableCell(s string) string {
	return strings.ReplaceAll(singleLine(s), "|", `\|`)
}
