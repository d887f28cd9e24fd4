package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/angeraphael/parrainage/core/referral"
)

const (
	markerExpanded  = "▼"
	markerCollapsed = "▶"
	markerLeaf      = "•"

	emptyTreeText = "Aucun arbre de parrainage disponible"
)

func printStats(w io.Writer, snap *referral.Snapshot) {
	_, _ = fmt.Fprintf(w, "Membres: %d\n", snap.Stats.TotalMembers)
	_, _ = fmt.Fprintf(w, "Niveaux: %d\n", snap.Stats.MaxLevel)
}

// printOutline prints the visible rows of view, one per line, indented by depth.
// Collapsed nodes show how many direct children they hide.
func printOutline(w io.Writer, view *referral.ViewNode) {
	rows := view.Rows()
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, emptyTreeText)
		return
	}
	_, _ = fmt.Fprintln(w)
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, outlineRow(row))
	}
}

func outlineRow(row *referral.ViewNode) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", row.Depth))
	switch {
	case !row.HasChildren:
		sb.WriteString(markerLeaf)
	case row.Expanded:
		sb.WriteString(markerExpanded)
	default:
		sb.WriteString(markerCollapsed)
	}
	sb.WriteString(" ")
	sb.WriteString(row.FullName)
	sb.WriteString(" · ")
	sb.WriteString(row.LevelLabel)
	if row.HasChildren && !row.Expanded {
		fmt.Fprintf(&sb, " (+%d)", row.ChildCount)
	}
	return sb.String()
}
