package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/yigit/classroom/internal/app/models"
)

// RosterCSVFilename is the attachment name of roster downloads
const RosterCSVFilename = "classroom_roster.csv"

var rosterCSVHeader = []string{"identifier", "github_username", "github_id", "name", "status"}

// WriteRosterCSV writes one row per entry, in the given order. When
// groupNames is non-nil a group_name column is added holding the title of
// the linked user's group, blank for users outside the grouping.
func WriteRosterCSV(w io.Writer, entries []*models.RosterEntry, groupNames map[int64]string) error {
	writer := csv.NewWriter(w)

	header := rosterCSVHeader
	if groupNames != nil {
		header = append(append([]string{}, rosterCSVHeader...), "group_name")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, entry := range entries {
		var login, githubID, name string
		status := string(models.EntryStatusUnlinked)
		if entry.IsLinked() {
			status = string(models.EntryStatusLinked)
		}
		if entry.User != nil {
			login = entry.User.Login
			githubID = strconv.FormatInt(entry.User.UID, 10)
			if entry.User.Name != nil {
				name = *entry.User.Name
			}
		}

		row := []string{entry.Identifier, login, githubID, name, status}
		if groupNames != nil {
			var group string
			if entry.UserID != nil {
				group = groupNames[*entry.UserID]
			}
			row = append(row, group)
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
