package table

import (
	"strconv"

	"github.com/agentstation/upcmap"
	"github.com/agentstation/upcmap/internal/cmd/emoji"
	"github.com/agentstation/upcmap/pkg/budget"
)

// SourcesToTableData converts source descriptions to table format.
func SourcesToTableData(infos []upcmap.SourceInfo) Data {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		host := info.Host
		if host == "" {
			host = None
		}
		rows = append(rows, []string{
			info.ID.String(),
			host,
			credentialStatus(info),
			info.Description,
		})
	}

	return Data{
		Headers: []string{"Source", "Host", "Credential", "Description"},
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignLeft,
			AlignLeft,
			AlignCenter,
			AlignLeft,
		},
	}
}

func credentialStatus(info upcmap.SourceInfo) string {
	switch {
	case !info.NeedsCredential:
		return emoji.Optional
	case info.HasCredential:
		return emoji.Success + " configured"
	default:
		return emoji.Error + " missing"
	}
}

// BudgetsToTableData converts host budgets to table format.
func BudgetsToTableData(budgets []budget.HostBudget) Data {
	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		status := ""
		if b.Remaining() == 0 {
			status = emoji.Warning
		}
		rows = append(rows, []string{
			b.Host,
			strconv.Itoa(b.Used),
			strconv.Itoa(b.Limit),
			strconv.Itoa(b.Remaining()),
			status,
		})
	}

	return Data{
		Headers: []string{"Host", "Used", "Limit", "Remaining", ""},
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignLeft,
			AlignRight,
			AlignRight,
			AlignRight,
			AlignCenter,
		},
	}
}
