// Package console renders engine state for the command line.
package console

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shelterly/automation/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	statusColors = map[model.JobStatus]lipgloss.Color{
		model.JOB_COMPLETED: lipgloss.Color("2"),
		model.JOB_FAILED:    lipgloss.Color("1"),
		model.JOB_CANCELLED: lipgloss.Color("8"),
		model.JOB_RUNNING:   lipgloss.Color("3"),
	}
)

var jobHeaders = []string{"ID", "FLOW", "STATUS", "RETRIES", "TRIGGER", "CREATED", "ERROR"}

// JobRows turns jobs into table rows, one per job, in the order of jobHeaders.
func JobRows(jobs []*model.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		trigger := "-"
		if j.TriggerRecordType != "" {
			trigger = j.TriggerRecordType + "#" + strconv.FormatInt(j.TriggerRecordId, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(j.Id, 10),
			strconv.FormatInt(j.FlowId, 10),
			string(j.Status),
			strconv.Itoa(j.RetryCount),
			trigger,
			j.CreatedAt.UTC().Format(time.RFC3339),
			firstLine(j.ErrorMessage),
		})
	}
	return rows
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func RenderJobs(jobs []*model.Job) string {
	rows := JobRows(jobs)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(jobHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rows) {
				if color, ok := statusColors[model.JobStatus(rows[row][col])]; ok {
					return cellStyle.Foreground(color)
				}
			}
			return cellStyle
		})
	return t.String()
}
