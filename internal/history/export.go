package history

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"casewise/internal/casefile"
	"casewise/internal/payload"
)

// ExportOptions controls what an export bundle contains.
type ExportOptions struct {
	Role            string
	SafeMode        bool
	IncludePayload  bool
	IncludeEvidence bool
	RetentionPolicy string
}

// DefaultExportOptions includes everything, unredacted.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{IncludePayload: true, IncludeEvidence: true}
}

// ExportMetadata describes how and when a bundle was generated.
type ExportMetadata struct {
	GeneratedAt         time.Time `json:"generated_at"`
	CaseID              string    `json:"case_id"`
	Role                string    `json:"role,omitempty"`
	RedactionMode       string    `json:"redaction_mode"`
	RedactedFieldsCount int       `json:"redacted_fields_count"`
	RetentionPolicy     string    `json:"retention_policy,omitempty"`
	Permissions         string    `json:"permissions"`
	RecordCount         int       `json:"record_count"`
}

// Bundle is a self-contained export of a case's intelligence trail.
type Bundle struct {
	Metadata ExportMetadata `json:"export_metadata"`
	Case     *casefile.Case `json:"case"`
	Latest   payload.Value  `json:"latest_intelligence"`
	History  []Record       `json:"history"`
}

// BuildBundle assembles an export for a case. With safe mode set, every
// payload in the bundle passes through the redactor first; the metadata
// reports how many fields were nulled.
func BuildBundle(ctx context.Context, cases *casefile.Store, store *Store, red *Redactor, caseID string, opts ExportOptions) (*Bundle, error) {
	c, err := cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("loading case: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("case %s not found", caseID)
	}

	recs, err := store.ListByCase(ctx, caseID, 0)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	var latest payload.Value
	if len(recs) > 0 {
		latest = recs[0].IntelligencePayload
	}

	if !opts.IncludeEvidence {
		for i := range recs {
			recs[i].EvidenceSnapshot = payload.Null()
		}
	}
	if !opts.IncludePayload {
		latest = payload.Null()
		for i := range recs {
			recs[i].IntelligencePayload = payload.Null()
		}
	}

	redacted := 0
	redactionMode := "none"
	permissions := "full"
	if opts.SafeMode {
		redactionMode = "safe_mode"
		permissions = "redacted"
		var n int
		latest, n = red.Redact(latest)
		redacted += n
		for i := range recs {
			recs[i].EvidenceSnapshot, n = red.Redact(recs[i].EvidenceSnapshot)
			redacted += n
			recs[i].IntelligencePayload, n = red.Redact(recs[i].IntelligencePayload)
			redacted += n
		}
	}

	return &Bundle{
		Metadata: ExportMetadata{
			GeneratedAt:         time.Now().UTC(),
			CaseID:              caseID,
			Role:                opts.Role,
			RedactionMode:       redactionMode,
			RedactedFieldsCount: redacted,
			RetentionPolicy:     opts.RetentionPolicy,
			Permissions:         permissions,
			RecordCount:         len(recs),
		},
		Case:    c,
		Latest:  latest,
		History: recs,
	}, nil
}

// HTML renders the bundle as a standalone HTML document. The body is
// generated as markdown and converted with goldmark.
func (b *Bundle) HTML() ([]byte, error) {
	md := b.markdown()

	var body bytes.Buffer
	converter := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := converter.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("rendering export html: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Case %s intelligence export</title>\n</head>\n<body>\n", b.Metadata.CaseID)
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

func (b *Bundle) markdown() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Intelligence export: %s\n\n", b.Case.Title)
	fmt.Fprintf(&sb, "Case `%s` (%s), status %s.\n\n", b.Case.ID, b.Case.DecisionType, b.Case.Status)
	fmt.Fprintf(&sb, "Generated %s", b.Metadata.GeneratedAt.Format(time.RFC3339))
	if b.Metadata.RedactionMode == "safe_mode" {
		sb.WriteString(" in safe mode")
	}
	sb.WriteString(".\n\n")

	if !b.Latest.IsNull() {
		fmt.Fprintf(&sb, "## Current intelligence\n\n")
		fmt.Fprintf(&sb, "Confidence %.1f (%s)",
			b.Latest.At("confidence_score").Num(0),
			b.Latest.At("confidence_band").Str("unknown"))
		if headline := b.Latest.At("narrative.headline").Str(""); headline != "" {
			fmt.Fprintf(&sb, " -- %s", headline)
		}
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "## History (%d run(s))\n\n", len(b.History))
	if len(b.History) > 0 {
		sb.WriteString("| Computed | Score | Band | Rules | Gaps | Bias | Trigger | Evidence hash |\n")
		sb.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, rec := range b.History {
			fmt.Fprintf(&sb, "| %s | %.1f | %s | %d/%d | %d | %d | %s | `%.12s` |\n",
				rec.ComputedAt.Format(time.DateTime), rec.ConfidenceScore, rec.ConfidenceBand,
				rec.RulesPassed, rec.RulesTotal, rec.GapCount, rec.BiasCount,
				rec.Trigger, rec.EvidenceHash)
		}
	}
	return sb.String()
}
